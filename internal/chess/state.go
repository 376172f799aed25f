package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// PieceID references a piece stored in a board's arena. The zero value is an
// empty square.
type PieceID int16

const NoPiece PieceID = 0

// arena owns every piece created during a game, including captured and
// promoted-away ones. IDs stay valid until the next reset.
type arena struct {
	pieces []Piece
}

func (a *arena) add(p Piece) PieceID {
	a.pieces = append(a.pieces, p)
	return PieceID(len(a.pieces))
}

func (a *arena) get(id PieceID) *Piece {
	if id == NoPiece {
		return nil
	}
	return &a.pieces[id-1]
}

func (a *arena) clear() {
	a.pieces = a.pieces[:0]
}

// BoardState is a snapshot of piece placement plus the derived check and
// king-position data. It only holds IDs into the owning board's arena, so a
// plain value copy is a cheap independent hypothetical position.
type BoardState struct {
	cells   [64]PieceID
	pieces  *arena
	inCheck [2]bool
	kingPos [2]Pos

	halfMoveClock int
	// starts at 1 and is incremented after Black's move
	moveCounter   int
	currentSide   Side
	passingTarget Pos
}

func (s *BoardState) reset() {
	s.cells = [64]PieceID{}
	s.inCheck = [2]bool{}
	s.kingPos = [2]Pos{InvalidPos, InvalidPos}
	s.halfMoveClock = 0
	s.moveCounter = 1
	s.currentSide = White
	s.passingTarget = InvalidPos
}

// At returns the piece on p, or nil when the square is empty.
func (s *BoardState) At(p Pos) *Piece {
	if !p.Valid() {
		return nil
	}
	return s.pieces.get(s.cells[p.index()])
}

func (s *BoardState) CurrentSide() Side { return s.currentSide }

func (s *BoardState) IsInCheck(side Side) bool { return s.inCheck[side] }

func (s *BoardState) KingPos(side Side) Pos { return s.kingPos[side] }

func (s *BoardState) HalfMoveClock() int { return s.halfMoveClock }

func (s *BoardState) MoveCounter() int { return s.moveCounter }

// PassingTarget is the square of the pawn that just double-advanced, or
// InvalidPos.
func (s *BoardState) PassingTarget() Pos { return s.passingTarget }

func (s *BoardState) advance() {
	if s.currentSide == Black {
		s.moveCounter++
	}
	s.currentSide = s.currentSide.Other()
}

// update recomputes king positions and check flags from the cells. Both
// kings must be on the board.
func (s *BoardState) update() {
	s.kingPos = [2]Pos{InvalidPos, InvalidPos}
	for i, id := range s.cells {
		if p := s.pieces.get(id); p != nil && p.Kind == King {
			s.kingPos[p.Side] = Pos{X: i % 8, Y: i / 8}
		}
	}
	if !s.kingPos[White].Valid() || !s.kingPos[Black].Valid() {
		panic(fmt.Sprintf("chess: board state without both kings (white %v, black %v)",
			s.kingPos[White], s.kingPos[Black]))
	}

	s.inCheck = [2]bool{}
	var moves []Move
	for i, id := range s.cells {
		p := s.pieces.get(id)
		if p == nil {
			continue
		}
		enemy := p.Side.Other()
		moves = p.PseudoLegalMoves(Pos{X: i % 8, Y: i / 8}, s, moves[:0])
		for _, m := range moves {
			if m.To == s.kingPos[enemy] {
				s.inCheck[enemy] = true
				break
			}
		}
	}
}

// MoveLeavesInCheck reports whether relocating the piece on from to to would
// leave that piece's side in check. It panics if from is empty.
func (s *BoardState) MoveLeavesInCheck(from, to Pos) bool {
	p := s.At(from)
	if p == nil {
		panic(fmt.Sprintf("chess: MoveLeavesInCheck from empty square %v", from))
	}
	return s.leavesInCheck(from, Move{To: to, Type: Normal}, p.Side)
}

func (s *BoardState) leavesInCheck(from Pos, m Move, side Side) bool {
	next := *s
	next.cells[m.To.index()] = next.cells[from.index()]
	next.cells[from.index()] = NoPiece
	if m.Type == Passing {
		next.cells[s.passingTarget.index()] = NoPiece
	}
	next.update()
	return next.inCheck[side]
}

// legal filters one pseudo-legal move of p. Castling additionally requires
// that the king is not in check and does not pass through an attacked square.
func (s *BoardState) legal(from Pos, p Piece, m Move) bool {
	switch m.Type {
	case Castling, QueensideCastling:
		if s.inCheck[p.Side] {
			return false
		}
		step := Pos{X: 1}
		if m.Type == QueensideCastling {
			step = Pos{X: -1}
		}
		if s.leavesInCheck(from, Move{To: from.Add(step)}, p.Side) {
			return false
		}
	}
	return !s.leavesInCheck(from, m, p.Side)
}

// ValidMoves returns the legal moves of the piece on from, or nil if the
// square is empty.
func (s *BoardState) ValidMoves(from Pos) []Move {
	p := s.At(from)
	if p == nil {
		return nil
	}
	return p.ValidMoves(from, s, nil)
}

// TestWinOrStalemate reports Continue if side has any legal move, otherwise
// Win when side is in check (the opponent delivered mate) or Stalemate.
func (s *BoardState) TestWinOrStalemate(side Side) GameResult {
	var moves []Move
	for i, id := range s.cells {
		p := s.pieces.get(id)
		if p == nil || p.Side != side {
			continue
		}
		moves = p.ValidMoves(Pos{X: i % 8, Y: i / 8}, s, moves[:0])
		if len(moves) > 0 {
			return Continue
		}
	}
	if s.inCheck[side] {
		return Win
	}
	return Stalemate
}

// FEN returns the full Forsyth-Edwards Notation of the state.
func (s *BoardState) FEN() string {
	return s.ShortenedFEN() + " " + strconv.Itoa(s.halfMoveClock) + " " + strconv.Itoa(s.moveCounter)
}

// ShortenedFEN is the FEN without move counters. Two states with the same
// shortened FEN are the same position for repetition purposes.
func (s *BoardState) ShortenedFEN() string {
	var sb strings.Builder
	for y := 7; y >= 0; y-- {
		empty := 0
		for x := 0; x < 8; x++ {
			p := s.At(Pos{X: x, Y: y})
			if p == nil {
				empty++
				continue
			}
			if empty != 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty != 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y != 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if s.currentSide == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(s.castlingRights())

	sb.WriteByte(' ')
	sb.WriteString(s.enPassantSquare().String())
	return sb.String()
}

func (s *BoardState) castlingRights() string {
	var rights []byte
	unmoved := func(x, y int, k Kind, side Side) bool {
		p := s.At(Pos{X: x, Y: y})
		return p != nil && p.Kind == k && p.Side == side && !p.Moved
	}
	for _, side := range []Side{White, Black} {
		y, king, queen := 0, byte('K'), byte('Q')
		if side == Black {
			y, king, queen = 7, 'k', 'q'
		}
		if !unmoved(4, y, King, side) {
			continue
		}
		if unmoved(7, y, Rook, side) {
			rights = append(rights, king)
		}
		if unmoved(0, y, Rook, side) {
			rights = append(rights, queen)
		}
	}
	if len(rights) == 0 {
		return "-"
	}
	return string(rights)
}

// enPassantSquare is the square skipped by the pawn on the passing target.
func (s *BoardState) enPassantSquare() Pos {
	if !s.passingTarget.Valid() {
		return InvalidPos
	}
	p := s.At(s.passingTarget)
	if p == nil {
		return InvalidPos
	}
	return s.passingTarget.Sub(Pos{Y: p.Side.forward()})
}

// String renders the state as its full FEN.
func (s *BoardState) String() string {
	return s.FEN()
}
