package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/tabletop-services/internal/comm"
	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	log "github.com/sirupsen/logrus"
)

// OpenSessionWindow is how long a session stays OPEN before a sweep closes it.
const OpenSessionWindow = 24 * time.Hour

// GameFinder resolves a game by name, case-insensitively.
type GameFinder interface {
	FindByName(name string) *models.Game
}

type SessionService struct {
	store     store.Store
	games     GameFinder
	publisher EventPublisher
	now       func() time.Time
}

type SessionOption func(*SessionService)

// WithClock replaces time.Now as the source of session timestamps and sweep cutoffs.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		s.now = now
	}
}

func NewSessionService(s store.Store, games GameFinder, publisher EventPublisher, opts ...SessionOption) *SessionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	svc := &SessionService{
		store:     s,
		games:     games,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RecordSession validates and stores a new OPEN session. Callers are expected
// to run SweepStatuses afterwards.
func (s *SessionService) RecordSession(ctx context.Context, gameName, winner string, players []string) (*models.Session, error) {
	gameName = strings.TrimSpace(gameName)
	winner = strings.TrimSpace(winner)

	if gameName == "" {
		return nil, invalid("game name is required")
	}
	if winner == "" {
		return nil, invalid("winner is required")
	}

	cleaned, err := cleanPlayers(players)
	if err != nil {
		return nil, err
	}
	if len(cleaned) == 0 {
		return nil, invalid("players are required")
	}

	candidate := models.Session{Players: cleaned}
	if !candidate.HasPlayer(winner) {
		return nil, invalid(fmt.Sprintf("winner %q must be one of the players", winner))
	}

	game := s.games.FindByName(gameName)
	if game == nil {
		return nil, invalid(fmt.Sprintf("game %q not found", gameName))
	}

	session, err := s.store.AddSession(ctx, models.Session{
		GameID:   game.ID,
		GameName: game.Name,
		PlayedAt: s.now(),
		Players:  cleaned,
		Winner:   winner,
		Status:   models.StatusOpen,
	})
	if err != nil {
		logStorageError("add session", err)
		return nil, err
	}

	s.publish(comm.EventSessionRecorded, comm.SessionRecorded{
		SessionId: session.ID,
		GameName:  session.GameName,
		Players:   session.Players,
		Winner:    session.Winner,
	})

	return &session, nil
}

// RecentSessions returns at most limit sessions, newest first.
func (s *SessionService) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		return nil, invalid("limit must be positive")
	}

	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		logStorageError("list sessions", err)
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session history is empty: %w", ErrEmpty)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// WinStatistics returns the per-player statistics for gameName, pushed down
// to the backend when it supports native aggregation.
func (s *SessionService) WinStatistics(ctx context.Context, gameName string) ([]models.PlayerStat, error) {
	gameName = strings.TrimSpace(gameName)
	if gameName == "" {
		return nil, invalid("game name is required")
	}

	var stats []models.PlayerStat
	if agg, ok := s.store.(store.WinStatsAggregator); ok {
		var err error
		stats, err = agg.WinStatistics(ctx, gameName)
		if err != nil {
			logStorageError("win statistics", err)
			return nil, err
		}
		SortStats(stats)
	} else {
		sessions, err := s.store.ListSessions(ctx)
		if err != nil {
			logStorageError("list sessions", err)
			return nil, err
		}
		stats = ComputeWinStatistics(sessions, gameName)
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("no sessions for %q: %w", gameName, ErrEmpty)
	}
	return stats, nil
}

// SweepStatuses closes every OPEN session older than OpenSessionWindow and
// returns how many were closed. It stops at the first failed update; sessions
// closed before that stay closed.
func (s *SessionService) SweepStatuses(ctx context.Context) (int, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		logStorageError("list sessions", err)
		return 0, err
	}

	cutoff := s.now().Add(-OpenSessionWindow)
	closed := 0
	for _, sess := range sessions {
		if sess.Status != models.StatusOpen || !sess.PlayedAt.Before(cutoff) {
			continue
		}

		sess.Status = models.StatusClosed
		if err := s.store.UpdateSessionStatus(ctx, sess); err != nil {
			logStorageError("update session status", err)
			return closed, fmt.Errorf("close session %s: %w", sess.ID, err)
		}
		closed++

		s.publish(comm.EventSessionClosed, comm.SessionClosed{SessionId: sess.ID, GameName: sess.GameName})
	}

	if closed > 0 {
		log.WithField("closed", closed).Info("session sweep finished")
	}
	return closed, nil
}

// History applies f to the full session list.
func (s *SessionService) History(ctx context.Context, f SessionFilter) ([]models.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		logStorageError("list sessions", err)
		return nil, err
	}

	filtered := Filter(sessions, f)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no sessions match the filter: %w", ErrEmpty)
	}
	return filtered, nil
}

func (s *SessionService) publish(eventType string, payload any) {
	if err := s.publisher.Publish(eventType, payload); err != nil {
		log.Errorf("Error publishing %s: %s", eventType, err)
	}
}

// cleanPlayers trims names and drops repeats, keeping the first occurrence.
// Names may not contain commas since some backends store the list as one
// comma separated field.
func cleanPlayers(players []string) ([]string, error) {
	var cleaned []string
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, invalid("player names cannot be empty")
		}
		if strings.Contains(p, ",") {
			return nil, invalid(fmt.Sprintf("player name %q cannot contain a comma", p))
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		cleaned = append(cleaned, p)
	}
	return cleaned, nil
}
