package chess

import (
	"fmt"
	"strings"
)

// Pos is a board coordinate: X is the file (0 = a), Y is the rank (0 = 1).
type Pos struct {
	X int
	Y int
}

// InvalidPos is the "no square" sentinel, e.g. when there is no en passant target.
var InvalidPos = Pos{X: -1, Y: -1}

// Valid reports whether the position lies on the board.
func (p Pos) Valid() bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y} }

func (p Pos) Sub(o Pos) Pos { return Pos{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Pos) index() int { return p.Y*8 + p.X }

// String returns the square in algebraic form ("e4"), or "-" when invalid.
func (p Pos) String() string {
	if !p.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + p.X), byte('1' + p.Y)})
}

// ParsePos parses a square such as "e4".
func ParsePos(s string) (Pos, error) {
	if len(s) != 2 {
		return InvalidPos, fmt.Errorf("invalid square %q", s)
	}
	p := Pos{X: int(s[0]) - 'a', Y: int(s[1]) - '1'}
	if !p.Valid() {
		return InvalidPos, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}

// Side is a player colour.
type Side int

const (
	White Side = iota
	Black
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	switch s {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return "?"
}

// ParseSide accepts "white"/"w" and "black"/"b" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("invalid side %q", s)
}

// forward is the rank direction pawns of this side advance in.
func (s Side) forward() int {
	if s == White {
		return 1
	}
	return -1
}

// MoveType tags how a move is executed.
type MoveType int

const (
	Normal MoveType = iota
	DoubleAdvance
	Passing // en passant capture
	Castling
	QueensideCastling
	Promotion
)

func (t MoveType) String() string {
	switch t {
	case Normal:
		return "normal"
	case DoubleAdvance:
		return "double-advance"
	case Passing:
		return "en-passant"
	case Castling:
		return "castling"
	case QueensideCastling:
		return "queenside-castling"
	case Promotion:
		return "promotion"
	}
	return "unknown"
}

// Move is a candidate destination produced by move generation.
type Move struct {
	To   Pos
	Type MoveType
}

// PromotionChoice is the piece a pawn becomes. The zero value means no promotion.
type PromotionChoice byte

const (
	PromoteNone   PromotionChoice = 0
	PromoteKnight PromotionChoice = 'n'
	PromoteBishop PromotionChoice = 'b'
	PromoteRook   PromotionChoice = 'r'
	PromoteQueen  PromotionChoice = 'q'
)

// ParsePromotion maps "q", "r", "b", "n" to a choice; anything else is PromoteNone.
func ParsePromotion(s string) PromotionChoice {
	switch s {
	case "q":
		return PromoteQueen
	case "r":
		return PromoteRook
	case "b":
		return PromoteBishop
	case "n":
		return PromoteKnight
	default:
		return PromoteNone
	}
}

func (c PromotionChoice) kind() (Kind, bool) {
	switch c {
	case PromoteKnight:
		return Knight, true
	case PromoteBishop:
		return Bishop, true
	case PromoteRook:
		return Rook, true
	case PromoteQueen:
		return Queen, true
	}
	return NoKind, false
}

// FullMove is a committed or attempted move.
type FullMove struct {
	From      Pos
	To        Pos
	Promotion PromotionChoice
}

// String encodes the move as "e2e4" or "e7e8q".
func (m FullMove) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != PromoteNone {
		s += string(rune(m.Promotion))
	}
	return s
}

// ParseFullMove parses the 4-5 character coordinate encoding.
func ParseFullMove(s string) (FullMove, error) {
	if len(s) != 4 && len(s) != 5 {
		return FullMove{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParsePos(s[0:2])
	if err != nil {
		return FullMove{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	to, err := ParsePos(s[2:4])
	if err != nil {
		return FullMove{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	m := FullMove{From: from, To: to}
	if len(s) == 5 {
		m.Promotion = ParsePromotion(s[4:])
		if m.Promotion == PromoteNone {
			return FullMove{}, fmt.Errorf("invalid promotion in move %q", s)
		}
	}
	return m, nil
}

// GameResult is the outcome of testing one side for remaining moves.
type GameResult int

const (
	Continue GameResult = iota
	Win
	Stalemate
	Draw
)

func (r GameResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case Win:
		return "win"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	}
	return "unknown"
}

// Draw reasons passed to the draw callback.
const (
	DrawFiftyMoves = "fifty-move rule"
	DrawRepetition = "threefold repetition"
)

// GameStatus is the externally visible state of a game.
type GameStatus string

const (
	StatusActive   GameStatus = "active"
	StatusDraw     GameStatus = "draw"
	StatusWhiteWon GameStatus = "white_won"
	StatusBlackWon GameStatus = "black_won"
)

// WonBy returns the status for a win of side.
func WonBy(side Side) GameStatus {
	if side == White {
		return StatusWhiteWon
	}
	return StatusBlackWon
}

// Valid reports whether c names a piece a pawn may promote to.
func (c PromotionChoice) Valid() bool {
	_, ok := c.kind()
	return ok
}
