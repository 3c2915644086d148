package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func Test_MongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list sessions decodes delimited players and legacy ids", func(mt *mtest.T) {
		// Arrange
		s := NewMongoStore(mt.DB, "test")
		older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		newer := older.Add(48 * time.Hour)
		oid := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.test_sessions", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "gameId", Value: "g1"},
				{Key: "gameName", Value: "Chess"},
				{Key: "date", Value: primitive.NewDateTimeFromTime(newer)},
				{Key: "players", Value: "Anna, Boris"},
				{Key: "winner", Value: "Anna"},
				{Key: "status", Value: "OPEN"},
			},
			bson.D{
				{Key: "_id", Value: "legacy-1"},
				{Key: "gameId", Value: "g1"},
				{Key: "gameName", Value: "Chess"},
				{Key: "date", Value: primitive.NewDateTimeFromTime(older)},
				{Key: "players", Value: "Boris,Chen"},
				{Key: "winner", Value: "Chen"},
			},
		))

		// Act
		sessions, err := s.ListSessions(context.Background())

		// Assert
		require.NoError(mt, err)
		require.Len(mt, sessions, 2)

		require.Equal(mt, oid.Hex(), sessions[0].ID)
		require.Equal(mt, []string{"Anna", "Boris"}, sessions[0].Players)
		require.Equal(mt, models.StatusOpen, sessions[0].Status)
		require.True(mt, newer.Equal(sessions[0].PlayedAt))

		require.Equal(mt, "legacy-1", sessions[1].ID)
		require.Equal(mt, []string{"Boris", "Chen"}, sessions[1].Players)
		require.Equal(mt, models.StatusClosed, sessions[1].Status)
	})

	mt.Run("add session assigns object id", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := s.AddSession(context.Background(), session("", "Chess", time.Now().UTC(), "A", "A", "B"))

		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(created.ID)
		require.NoError(mt, err)
	})

	mt.Run("add game write error is storage error", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := s.AddGame(context.Background(), models.Game{Name: "Chess", MinPlayers: 2, MaxPlayers: 2, AverageTime: 30})

		var serr *StorageError
		require.ErrorAs(mt, err, &serr)
	})

	mt.Run("list games fills legacy defaults", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.test_games", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Uno"},
				{Key: "category", Value: "Party"},
			},
		))

		games, err := s.ListGames(context.Background())

		require.NoError(mt, err)
		require.Equal(mt, []models.Game{{
			ID:          oid.Hex(),
			Name:        "Uno",
			Category:    "Party",
			MinPlayers:  2,
			MaxPlayers:  4,
			AverageTime: 30,
		}}, games)
	})

	mt.Run("update status of unknown session is not found", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := s.UpdateSessionStatus(context.Background(), models.Session{ID: primitive.NewObjectID().Hex(), Status: models.StatusClosed})

		var nf *NotFoundError
		require.ErrorAs(mt, err, &nf)
	})

	mt.Run("update status of existing session", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := s.UpdateSessionStatus(context.Background(), models.Session{ID: "legacy-1", Status: models.StatusClosed})

		require.NoError(mt, err)
	})

	mt.Run("native win statistics include players without wins", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.test_sessions", mtest.FirstBatch,
			bson.D{
				{Key: "total", Value: bson.A{bson.D{{Key: "n", Value: 3}}}},
				{Key: "players", Value: bson.A{
					bson.D{{Key: "_id", Value: "A"}, {Key: "wins", Value: 2}},
					bson.D{{Key: "_id", Value: "B"}, {Key: "wins", Value: 1}},
					bson.D{{Key: "_id", Value: "C"}, {Key: "wins", Value: 0}},
				}},
			},
		))

		stats, err := s.WinStatistics(context.Background(), "chess")

		require.NoError(mt, err)
		require.Len(mt, stats, 3)
		byPlayer := map[string]models.PlayerStat{}
		for _, st := range stats {
			byPlayer[st.Player] = st
		}
		require.Equal(mt, 2, byPlayer["A"].Wins)
		require.Equal(mt, 3, byPlayer["A"].TotalGames)
		require.InDelta(mt, 66.67, byPlayer["A"].WinPercentage, 0.01)
		require.Equal(mt, 0, byPlayer["C"].Wins)
		require.Equal(mt, 0.0, byPlayer["C"].WinPercentage)
	})

	mt.Run("native win statistics with no sessions", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, "test")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.test_sessions", mtest.FirstBatch,
			bson.D{
				{Key: "total", Value: bson.A{}},
				{Key: "players", Value: bson.A{}},
			},
		))

		stats, err := s.WinStatistics(context.Background(), "chess")

		require.NoError(mt, err)
		require.Empty(mt, stats)
	})
}

func Test_MongoStore_WinStatistics_Runs_Pipeline_On_Server(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI is not set")
	}

	// Arrange
	ctx := context.Background()
	s, database, prefix := newMongoTestStore(t, uri)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, sess := range []models.Session{
		session("", "Chess", base, "A", "A", "B"),
		session("", "Chess", base.Add(time.Hour), "B", "A", "B"),
		session("", "chess", base.Add(2*time.Hour), "A", "B", "A", "Dora"),
		session("", "Go", base.Add(3*time.Hour), "C", "A", "C"),
	} {
		_, err := s.AddSession(ctx, sess)
		require.NoError(t, err, "session %d", i)
	}

	// written by an older version: string id, no status, no space after the comma
	_, err := database.Collection(prefix+"_sessions").InsertOne(ctx, bson.M{
		"_id":      "legacy-1",
		"gameId":   "g-Chess",
		"gameName": "CHESS",
		"date":     base.Add(-24 * time.Hour),
		"players":  "Boris,Chen",
		"winner":   "Boris",
	})
	require.NoError(t, err)

	// Act
	stats, err := s.WinStatistics(ctx, "Chess")

	// Assert
	require.NoError(t, err)
	byPlayer := map[string]models.PlayerStat{}
	for _, st := range stats {
		byPlayer[st.Player] = st
	}
	require.Equal(t, map[string]models.PlayerStat{
		"A":     {Player: "A", Wins: 2, TotalGames: 4, WinPercentage: 50},
		"B":     {Player: "B", Wins: 1, TotalGames: 4, WinPercentage: 25},
		"Boris": {Player: "Boris", Wins: 1, TotalGames: 4, WinPercentage: 25},
		"Chen":  {Player: "Chen", Wins: 0, TotalGames: 4, WinPercentage: 0},
		"Dora":  {Player: "Dora", Wins: 0, TotalGames: 4, WinPercentage: 0},
	}, byPlayer)

	none, err := s.WinStatistics(ctx, "Catan")
	require.NoError(t, err)
	require.Empty(t, none)
}

func Test_Mongo_ID_Helpers(t *testing.T) {
	id, docID := newDocID("")
	require.IsType(t, primitive.ObjectID{}, docID)
	require.Len(t, id, 24)

	id, docID = newDocID("legacy")
	require.Equal(t, "legacy", id)
	require.Equal(t, "legacy", docID)

	require.Equal(t, bson.M{"_id": "legacy"}, idFilter("legacy"))
	require.Equal(t, "", docIDString(nil))
}
