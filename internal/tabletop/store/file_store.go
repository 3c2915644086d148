package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/google/uuid"
)

const (
	gamesFile    = "games.json"
	sessionsFile = "sessions.json"
)

// FileStore persists games and sessions as two JSON files under one
// directory. Every call is a full read-modify-write of the file it touches;
// the mutex serializes callers sharing this value. Separate processes writing
// the same directory can still lose updates (last writer wins).
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "create data dir", Err: err}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) ListGames(ctx context.Context) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var games []models.Game
	if err := s.read(gamesFile, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (s *FileStore) AddGame(ctx context.Context, game models.Game) (models.Game, error) {
	if err := validateGame(game); err != nil {
		return models.Game{}, err
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var games []models.Game
	if err := s.read(gamesFile, &games); err != nil {
		return models.Game{}, err
	}
	games = append(games, game)
	if err := s.write(gamesFile, games); err != nil {
		return models.Game{}, err
	}
	return game, nil
}

func (s *FileStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *FileStore) AddSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions()
	if err != nil {
		return models.Session{}, err
	}
	sessions = append(sessions, session)
	if err := s.write(sessionsFile, sessions); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *FileStore) UpdateSessionStatus(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions()
	if err != nil {
		return err
	}

	found := false
	for i := range sessions {
		if sessions[i].ID == session.ID {
			sessions[i].Status = session.Status
			found = true
			break
		}
	}
	if !found {
		return &NotFoundError{Kind: "session", ID: session.ID}
	}
	return s.write(sessionsFile, sessions)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) readSessions() ([]models.Session, error) {
	var sessions []models.Session
	if err := s.read(sessionsFile, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// read decodes name into v. A missing file leaves v untouched.
func (s *FileStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "read " + name, Err: err}
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StorageError{Op: "decode " + name, Err: err}
	}
	return nil
}

// write replaces name atomically through a temp file in the same directory.
func (s *FileStore) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode " + name, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write " + name, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "write " + name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write " + name, Err: err}
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return &StorageError{Op: "write " + name, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}
