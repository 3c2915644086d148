package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/avvvet/tabletop-services/internal/comm"
	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	log "github.com/sirupsen/logrus"
)

// CatalogService validates and creates games and answers lookups from a
// snapshot of the catalog. The snapshot is reloaded after every write made
// through this service or on an explicit Refresh; writes made by other
// processes to the same backend are not seen until then.
type CatalogService struct {
	store     store.Store
	publisher EventPublisher

	// writeMu serializes AddGame so the duplicate check and the insert are
	// one step for callers of this service.
	writeMu sync.Mutex

	mu    sync.RWMutex
	games []models.Game
}

// NewCatalogService creates a CatalogService and loads the catalog snapshot
func NewCatalogService(ctx context.Context, s store.Store, publisher EventPublisher) (*CatalogService, error) {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	c := &CatalogService{store: s, publisher: publisher}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh replaces the snapshot with the backend's current game list.
func (c *CatalogService) Refresh(ctx context.Context) error {
	games, err := c.store.ListGames(ctx)
	if err != nil {
		logStorageError("list games", err)
		return err
	}
	sort.SliceStable(games, func(i, j int) bool {
		return strings.ToLower(games[i].Name) < strings.ToLower(games[j].Name)
	})

	c.mu.Lock()
	c.games = games
	c.mu.Unlock()
	return nil
}

func (c *CatalogService) AddGame(ctx context.Context, name, description, category string,
	minPlayers, maxPlayers, avgTime int) (*models.Game, error) {
	name = strings.TrimSpace(name)

	switch {
	case name == "":
		return nil, invalid("game name is required")
	case minPlayers <= 0:
		return nil, invalid("minimum players must be greater than 0")
	case minPlayers > maxPlayers:
		return nil, invalid("minimum players cannot exceed maximum players")
	case avgTime <= 0:
		return nil, invalid("average time must be positive")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.FindByName(name) != nil {
		return nil, invalid(fmt.Sprintf("a game named %q already exists", name))
	}

	game, err := c.store.AddGame(ctx, models.Game{
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
		AverageTime: avgTime,
	})
	if err != nil {
		logStorageError("add game", err)
		return nil, err
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	if err := c.publisher.Publish(comm.EventGameAdded, comm.GameAdded{GameId: game.ID, Name: game.Name}); err != nil {
		log.Errorf("Error publishing %s for %s: %s", comm.EventGameAdded, game.ID, err)
	}

	return &game, nil
}

// FindByName returns the game whose name matches case-insensitively, or nil.
func (c *CatalogService) FindByName(name string) *models.Game {
	name = strings.TrimSpace(name)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.games {
		if strings.EqualFold(g.Name, name) {
			game := g
			return &game
		}
	}
	return nil
}

func (c *CatalogService) FindByCategory(category string) []models.Game {
	category = strings.TrimSpace(category)
	return c.filter(func(g models.Game) bool {
		return strings.EqualFold(g.Category, category)
	})
}

// GamesForPlayers lists the games playable by exactly n players.
func (c *CatalogService) GamesForPlayers(n int) []models.Game {
	return c.filter(func(g models.Game) bool {
		return g.Supports(n)
	})
}

// ListAll returns the whole catalog, or ErrEmpty when there are no games.
func (c *CatalogService) ListAll() ([]models.Game, error) {
	games := c.filter(func(models.Game) bool { return true })
	if len(games) == 0 {
		return nil, fmt.Errorf("catalog has no games: %w", ErrEmpty)
	}
	return games, nil
}

func (c *CatalogService) filter(keep func(models.Game) bool) []models.Game {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var games []models.Game
	for _, g := range c.games {
		if keep(g) {
			games = append(games, g)
		}
	}
	return games
}
