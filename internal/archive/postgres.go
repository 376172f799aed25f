package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a Postgres connection.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Test the connection
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY,
	white      TEXT NOT NULL,
	black      TEXT NOT NULL,
	start_fen  TEXT NOT NULL,
	moves      TEXT[] NOT NULL,
	status     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	pgn        TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS games_created_at_idx ON games (created_at DESC);
`

const columns = `id, white, black, start_fen, moves, status, reason, pgn, created_at`

// PostgresStore archives games in the games table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error migrating games table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, e *Entry) error {
	prepare(e, time.Now())
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO games (`+columns+`)
		VALUES (:id, :white, :black, :start_fen, :moves, :status, :reason, :pgn, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("error archiving game %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var e Entry
	err := s.db.GetContext(ctx, &e, `SELECT `+columns+` FROM games WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting game %s: %w", id, err)
	}
	return &e, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	entries := []Entry{}
	err := s.db.SelectContext(ctx, &entries,
		`SELECT `+columns+` FROM games ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing games: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
