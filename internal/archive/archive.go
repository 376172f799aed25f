// Package archive keeps finished games.
package archive

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/justinabrahms/deskchess/internal/chess"
	"github.com/justinabrahms/deskchess/internal/config"
	"github.com/justinabrahms/deskchess/internal/record"
)

var ErrNotFound = errors.New("game not found")

// Entry is an archived game.
type Entry struct {
	ID        string           `json:"id" db:"id"`
	White     string           `json:"white" db:"white"`
	Black     string           `json:"black" db:"black"`
	StartFEN  string           `json:"startFen" db:"start_fen"`
	Moves     Moves            `json:"moves" db:"moves"`
	Status    chess.GameStatus `json:"status" db:"status"`
	Reason    string           `json:"reason" db:"reason"`
	PGN       string           `json:"pgn" db:"pgn"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// Moves is a list of coordinate moves stored as a Postgres text array.
type Moves []string

// Scan implements the sql.Scanner interface for Moves
func (m *Moves) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Moves: %w", value, err)
	}
	*m = Moves(arr)
	return nil
}

// Value implements the driver.Valuer interface for Moves
func (m Moves) Value() (driver.Value, error) {
	return pq.StringArray(m).Value()
}

// NewEntry prepares g for archiving. ID and CreatedAt are filled in by Save.
func NewEntry(g record.Game) (Entry, error) {
	pgn, err := record.PGN(g)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to render PGN: %w", err)
	}
	return Entry{
		White:    g.White,
		Black:    g.Black,
		StartFEN: g.StartFEN,
		Moves:    Moves(g.MoveStrings()),
		Status:   g.Status,
		Reason:   g.Reason,
		PGN:      pgn,
	}, nil
}

// Game converts the entry back for replaying.
func (e Entry) Game() (record.Game, error) {
	g := record.Game{
		White:    e.White,
		Black:    e.Black,
		StartFEN: e.StartFEN,
		Status:   e.Status,
		Reason:   e.Reason,
	}
	for _, s := range e.Moves {
		m, err := chess.ParseFullMove(s)
		if err != nil {
			return record.Game{}, err
		}
		g.Moves = append(g.Moves, m)
	}
	return g, nil
}

// Store persists archived games.
type Store interface {
	// Save stores e, assigning ID and CreatedAt when they are unset.
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	// List returns up to limit games, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

func prepare(e *Entry, now time.Time) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	if e.Moves == nil {
		e.Moves = Moves{}
	}
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		db, err := Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
}
