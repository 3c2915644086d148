package store

import (
	"context"
	"sync"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/google/uuid"
)

// MemoryStore keeps games and sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	games    map[string]models.Game
	sessions []models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string]models.Game),
	}
}

func (s *MemoryStore) ListGames(ctx context.Context) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	return games, nil
}

func (s *MemoryStore) AddGame(ctx context.Context, game models.Game) (models.Game, error) {
	if err := validateGame(game); err != nil {
		return models.Game{}, err
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
	return game, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.RLock()
	sessions := make([]models.Session, len(s.sessions))
	for i, sess := range s.sessions {
		sessions[i] = cloneSession(sess)
	}
	s.mu.RUnlock()

	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *MemoryStore) AddSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session = cloneSession(session)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return cloneSession(session), nil
}

func (s *MemoryStore) UpdateSessionStatus(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == session.ID {
			s.sessions[i].Status = session.Status
			return nil
		}
	}
	return &NotFoundError{Kind: "session", ID: session.ID}
}

// Close is a no-op; the data lives as long as the store value.
func (s *MemoryStore) Close() error {
	return nil
}
