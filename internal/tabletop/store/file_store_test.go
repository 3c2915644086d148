package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/stretchr/testify/require"
)

func Test_FileStore_Data_Survives_Reopen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	dir := t.TempDir()
	first, err := NewFileStore(dir)
	require.NoError(t, err)

	game, err := first.AddGame(ctx, models.Game{Name: "Carcassonne", MinPlayers: 2, MaxPlayers: 5, AverageTime: 35})
	require.NoError(t, err)
	sess, err := first.AddSession(ctx, session("", "Carcassonne", time.Now().UTC(), "A", "A", "B"))
	require.NoError(t, err)

	// Act
	second, err := NewFileStore(dir)
	require.NoError(t, err)
	games, err := second.ListGames(ctx)
	require.NoError(t, err)
	sessions, err := second.ListSessions(ctx)
	require.NoError(t, err)

	// Assert
	require.Equal(t, []models.Game{game}, games)
	require.Len(t, sessions, 1)
	require.Equal(t, sess.ID, sessions[0].ID)
	require.True(t, sess.PlayedAt.Equal(sessions[0].PlayedAt))
}

func Test_FileStore_Writes_Literal_Status_And_Parseable_Timestamp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.AddSession(ctx, session("s1", "Chess", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "A", "A"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, sessionsFile))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"status": "OPEN"`)
	require.Contains(t, string(raw), `"dateTime": "2024-05-06T07:08:09Z"`)
	require.Contains(t, string(raw), `"id": "s1"`)
}

func Test_FileStore_Corrupt_File_Is_StorageError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, gamesFile), []byte("{not json"), 0644))
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.ListGames(context.Background())

	var serr *StorageError
	require.ErrorAs(t, err, &serr)
}

func Test_FileStore_Missing_Files_Read_As_Empty(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)

	games, err := s.ListGames(context.Background())
	require.NoError(t, err)
	require.Empty(t, games)

	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	require.Empty(t, sessions)
}
