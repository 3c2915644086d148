package store

import (
	"context"
	"sync"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	min_players  INT  NOT NULL,
	max_players  INT  NOT NULL,
	average_time INT  NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id        TEXT PRIMARY KEY,
	game_id   TEXT NOT NULL,
	game_name TEXT NOT NULL,
	played_at TIMESTAMPTZ NOT NULL,
	players   TEXT[] NOT NULL,
	winner    TEXT NOT NULL,
	status    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_game_name_idx ON sessions (lower(game_name));
`

type PostgresStore struct {
	db        *pgxpool.Pool
	closeOnce sync.Once
}

// NewPostgresStore wraps pool and creates the tables when missing.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, &StorageError{Op: "create schema", Err: err}
	}
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, category, min_players, max_players, average_time
		FROM games
	`)
	if err != nil {
		return nil, &StorageError{Op: "query games", Err: err}
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Description,
			&g.Category,
			&g.MinPlayers,
			&g.MaxPlayers,
			&g.AverageTime,
		)
		if err != nil {
			return nil, &StorageError{Op: "scan game", Err: err}
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query games", Err: err}
	}
	return games, nil
}

func (s *PostgresStore) AddGame(ctx context.Context, game models.Game) (models.Game, error) {
	if err := validateGame(game); err != nil {
		return models.Game{}, err
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO games (id, name, description, category, min_players, max_players, average_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, game.ID, game.Name, game.Description, game.Category, game.MinPlayers, game.MaxPlayers, game.AverageTime)
	if err != nil {
		return models.Game{}, &StorageError{Op: "insert game", Err: err}
	}
	return game, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, game_id, game_name, played_at, players, winner, status
		FROM sessions
		ORDER BY played_at DESC, id COLLATE "C"
	`)
	if err != nil {
		return nil, &StorageError{Op: "query sessions", Err: err}
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var status string
		err := rows.Scan(
			&sess.ID,
			&sess.GameID,
			&sess.GameName,
			&sess.PlayedAt,
			&sess.Players,
			&sess.Winner,
			&status,
		)
		if err != nil {
			return nil, &StorageError{Op: "scan session", Err: err}
		}
		sess.Status = models.SessionStatus(status)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query sessions", Err: err}
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *PostgresStore) AddSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, game_id, game_name, played_at, players, winner, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, session.ID, session.GameID, session.GameName, session.PlayedAt, session.Players, session.Winner, string(session.Status))
	if err != nil {
		return models.Session{}, &StorageError{Op: "insert session", Err: err}
	}
	return session, nil
}

func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, session models.Session) error {
	tag, err := s.db.Exec(ctx, `UPDATE sessions SET status = $1 WHERE id = $2`, string(session.Status), session.ID)
	if err != nil {
		return &StorageError{Op: "update session status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Kind: "session", ID: session.ID}
	}
	return nil
}

// WinStatistics counts every distinct participant of the matching sessions,
// winners or not, in one query.
func (s *PostgresStore) WinStatistics(ctx context.Context, gameName string) ([]models.PlayerStat, error) {
	const query = `
WITH matched AS (
  SELECT players, winner
  FROM sessions
  WHERE lower(game_name) = lower($1)
)
SELECT p.player,
       count(*) FILTER (WHERE p.player = m.winner) AS wins,
       (SELECT count(*) FROM matched) AS total
FROM matched m
CROSS JOIN LATERAL (SELECT DISTINCT unnest(m.players) AS player) p
GROUP BY p.player;
`
	rows, err := s.db.Query(ctx, query, gameName)
	if err != nil {
		return nil, &StorageError{Op: "query win statistics", Err: err}
	}
	defer rows.Close()

	var stats []models.PlayerStat
	for rows.Next() {
		var st models.PlayerStat
		var wins, total int64
		if err := rows.Scan(&st.Player, &wins, &total); err != nil {
			return nil, &StorageError{Op: "scan win statistics", Err: err}
		}
		st.Wins = int(wins)
		st.TotalGames = int(total)
		st.WinPercentage = models.Percentage(st.Wins, st.TotalGames)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query win statistics", Err: err}
	}
	return stats, nil
}

func (s *PostgresStore) Close() error {
	s.closeOnce.Do(s.db.Close)
	return nil
}
