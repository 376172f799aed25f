// Package record turns games into durable forms: PGN text and binary save
// files.
package record

import (
	"fmt"

	"github.com/justinabrahms/deskchess/internal/chess"
	"github.com/justinabrahms/deskchess/internal/game"
)

// Game is everything needed to reproduce a game.
type Game struct {
	White    string
	Black    string
	StartFEN string
	Moves    []chess.FullMove
	Status   chess.GameStatus
	// Reason describes how a finished game ended
	Reason string
}

// FromSession captures the current state of a session.
func FromSession(s *game.Session) Game {
	status, reason := s.Status()
	return Game{
		White:    s.PlayerName(chess.White),
		Black:    s.PlayerName(chess.Black),
		StartFEN: s.StartFEN(),
		Moves:    s.History(),
		Status:   status,
		Reason:   reason,
	}
}

// MoveStrings returns the moves in coordinate notation.
func (g Game) MoveStrings() []string {
	res := make([]string, 0, len(g.Moves))
	for _, m := range g.Moves {
		res = append(res, m.String())
	}
	return res
}

// Replay starts a new session from g's start position and plays its moves.
// The names in g override those in opts.
func Replay(g Game, opts game.Options, listeners ...game.Listener) (*game.Session, error) {
	opts.WhiteName = g.White
	opts.BlackName = g.Black
	if g.StartFEN != chess.StartingFEN {
		opts.FEN = g.StartFEN
	}

	s, err := game.New(opts, listeners...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(g.Moves); err != nil {
		return nil, fmt.Errorf("failed to replay game: %w", err)
	}
	return s, nil
}
