package game

import (
	"github.com/justinabrahms/deskchess/internal/chess"
)

// State is a point-in-time view of a session, safe to hand to other
// goroutines and to encode as JSON.
type State struct {
	White            string              `json:"white"`
	Black            string              `json:"black"`
	Status           chess.GameStatus    `json:"status"`
	Message          string              `json:"message,omitempty"`
	Turn             string              `json:"turn"`
	FEN              string              `json:"fen"`
	Check            bool                `json:"check"`
	PromotionPending bool                `json:"promotionPending"`
	Moves            []string            `json:"moves"`
	Material         chess.MaterialCount `json:"material"`
	Captured         chess.MaterialCount `json:"captured"`
	Clock            *ClockState         `json:"clock,omitempty"`
	Position         Position            `json:"-"`
}

type ClockState struct {
	WhiteMs int64  `json:"whiteMs"`
	BlackMs int64  `json:"blackMs"`
	Running string `json:"running,omitempty"`
}

// Position is a copy of the pieces on the board.
type Position [64]chess.Piece

// At returns the piece on p, or nil for an empty square.
func (p *Position) At(pos chess.Pos) *chess.Piece {
	if !pos.Valid() {
		return nil
	}
	piece := &p[pos.Y*8+pos.X]
	if piece.Kind == chess.NoKind {
		return nil
	}
	return piece
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := s.board.CurrentSide()
	st := State{
		White:            s.names[chess.White],
		Black:            s.names[chess.Black],
		Status:           s.status,
		Message:          s.message,
		Turn:             sideName(side),
		FEN:              s.board.FEN(),
		Check:            s.board.IsInCheck(side),
		PromotionPending: s.board.PromotionPending(),
		Moves:            []string{},
		Material:         s.board.Material(),
		Captured:         s.board.CapturedMaterial(),
	}
	for _, m := range s.board.MoveHistory() {
		st.Moves = append(st.Moves, m.String())
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if p := s.board.At(chess.Pos{X: x, Y: y}); p != nil {
				st.Position[y*8+x] = *p
			}
		}
	}

	if s.clock != nil {
		now := s.now()
		st.Clock = &ClockState{
			WhiteMs: s.clock.Remaining(chess.White, now).Milliseconds(),
			BlackMs: s.clock.Remaining(chess.Black, now).Milliseconds(),
		}
		if running, ok := s.clock.Running(); ok {
			st.Clock.Running = sideName(running)
		}
	}
	return st
}
