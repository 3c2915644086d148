package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/db"
	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type event struct {
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (p *recordingPublisher) Publish(eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{Type: eventType, Payload: payload})
	return p.err
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	store.Store
	listGamesErr    error
	listSessionsErr error
	updateErr       error
	failUpdateAfter int
	updates         int
}

func (f *faultyStore) ListGames(ctx context.Context) ([]models.Game, error) {
	if f.listGamesErr != nil {
		return nil, f.listGamesErr
	}
	return f.Store.ListGames(ctx)
}

func (f *faultyStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	if f.listSessionsErr != nil {
		return nil, f.listSessionsErr
	}
	return f.Store.ListSessions(ctx)
}

func (f *faultyStore) UpdateSessionStatus(ctx context.Context, s models.Session) error {
	if f.updateErr != nil && f.updates >= f.failUpdateAfter {
		return f.updateErr
	}
	f.updates++
	return f.Store.UpdateSessionStatus(ctx, s)
}

// aggregatingStore answers WinStatistics from canned rows so the native path
// can be told apart from the derived one.
type aggregatingStore struct {
	store.Store
	stats []models.PlayerStat
	calls int
}

func (a *aggregatingStore) WinStatistics(ctx context.Context, gameName string) ([]models.PlayerStat, error) {
	a.calls++
	return append([]models.PlayerStat(nil), a.stats...), nil
}

func (a *aggregatingStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	return nil, errors.New("derived path must not be used")
}

type fixture struct {
	store     store.Store
	catalog   *CatalogService
	sessions  *SessionService
	clock     *fakeClock
	publisher *recordingPublisher
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()

	pub := &recordingPublisher{}
	clock := newFakeClock()

	catalog, err := NewCatalogService(context.Background(), s, pub)
	require.NoError(t, err)

	return &fixture{
		store:     s,
		catalog:   catalog,
		sessions:  NewSessionService(s, catalog, pub, WithClock(clock.Now)),
		clock:     clock,
		publisher: pub,
	}
}

func (f *fixture) addGame(t *testing.T, name string, minPlayers, maxPlayers int) *models.Game {
	t.Helper()
	g, err := f.catalog.AddGame(context.Background(), name, name+" description", "Strategy", minPlayers, maxPlayers, 30)
	require.NoError(t, err)
	return g
}

func (f *fixture) record(t *testing.T, game, winner string, players ...string) *models.Session {
	t.Helper()
	s, err := f.sessions.RecordSession(context.Background(), game, winner, players)
	require.NoError(t, err)
	return s
}

// storeBackends lists the backends service behavior is verified against.
// The postgres and document-store backends aggregate natively, the others
// go through the derived path.
func storeBackends(t *testing.T) map[string]func(t *testing.T) store.Store {
	b := map[string]func(t *testing.T) store.Store{
		store.KindMemory: func(t *testing.T) store.Store {
			return store.NewMemoryStore()
		},
		store.KindFile: func(t *testing.T) store.Store {
			s, err := store.NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	if dsn := os.Getenv("POSTGRES_URL"); dsn != "" {
		b[store.KindPostgres] = func(t *testing.T) store.Store {
			ctx := context.Background()
			pool, err := db.ConnectPostgres(ctx, dsn)
			require.NoError(t, err)
			s, err := store.NewPostgresStore(ctx, pool)
			require.NoError(t, err)
			_, err = pool.Exec(ctx, "TRUNCATE games, sessions")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}
	}

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		b[store.KindDocumentStore] = func(t *testing.T) store.Store {
			ctx := context.Background()
			dbName := os.Getenv("MONGODB_DATABASE")
			if dbName == "" {
				dbName = "tabletop_test"
			}
			database, err := db.ConnectMongo(ctx, uri, dbName)
			require.NoError(t, err)

			prefix := "t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
			s := store.NewMongoStore(database, prefix)
			t.Cleanup(func() {
				database.Collection(prefix + "_games").Drop(ctx)
				database.Collection(prefix + "_sessions").Drop(ctx)
				s.Close()
			})
			return s
		}
	}
	return b
}
