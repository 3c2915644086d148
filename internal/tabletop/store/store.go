package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/avvvet/tabletop-services/internal/tabletop/db"
	"github.com/avvvet/tabletop-services/internal/tabletop/models"
)

// Store is the persistence port every backend implements. Implementations
// must be safe for concurrent use and behave identically for every method,
// including ordering and error conditions.
type Store interface {
	// ListGames returns all games in no particular order.
	ListGames(ctx context.Context) ([]models.Game, error)
	// AddGame assigns an id when absent and persists the game.
	AddGame(ctx context.Context, game models.Game) (models.Game, error)
	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]models.Session, error)
	// AddSession assigns an id when absent and persists the session as given.
	AddSession(ctx context.Context, session models.Session) (models.Session, error)
	// UpdateSessionStatus persists the status of the session with session.ID.
	UpdateSessionStatus(ctx context.Context, session models.Session) error
	// Close releases connections and handles. Safe to call more than once.
	Close() error
}

// WinStatsAggregator is implemented by backends that can compute win
// statistics natively. The result must match the derivation done by the
// session service over ListSessions; ordering is left to the caller.
type WinStatsAggregator interface {
	WinStatistics(ctx context.Context, gameName string) ([]models.PlayerStat, error)
}

const (
	KindMemory        = "memory"
	KindFile          = "file"
	KindDocumentStore = "document-store"
	KindMongoDB       = "mongodb"
	KindPostgres      = "postgres"
)

type Config struct {
	Kind             string
	DataDir          string // file
	MongoURI         string // document-store
	MongoDatabase    string
	CollectionPrefix string
	PostgresURL      string // postgres
}

// Open builds the backend selected by cfg.Kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		return NewFileStore(cfg.DataDir)
	case KindDocumentStore, KindMongoDB:
		database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, &StorageError{Op: "open document store", Err: err}
		}
		return NewMongoStore(database, cfg.CollectionPrefix), nil
	case KindPostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, &StorageError{Op: "open postgres", Err: err}
		}
		return NewPostgresStore(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// sortNewestFirst orders by PlayedAt descending, then by ID ascending so
// equal timestamps come back in the same order from every backend.
func sortNewestFirst(sessions []models.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].PlayedAt.Equal(sessions[j].PlayedAt) {
			return sessions[i].PlayedAt.After(sessions[j].PlayedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func validateGame(game models.Game) error {
	switch {
	case strings.TrimSpace(game.Name) == "":
		return &ValidationError{Reason: "game name is required"}
	case game.MinPlayers <= 0:
		return &ValidationError{Reason: "minimum players must be greater than 0"}
	case game.MinPlayers > game.MaxPlayers:
		return &ValidationError{Reason: "minimum players cannot exceed maximum players"}
	case game.AverageTime <= 0:
		return &ValidationError{Reason: "average time must be positive"}
	}
	return nil
}

func cloneSession(s models.Session) models.Session {
	s.Players = append([]string(nil), s.Players...)
	return s
}
