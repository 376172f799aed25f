package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidFEN = errors.New("invalid FEN")

// SetupFEN replaces the position with the one described by fen and clears
// all history. The half-move clock and move number fields are optional. On
// error the board is left in the starting position.
func (b *Board) SetupFEN(fen string) error {
	if err := b.setupFEN(fen); err != nil {
		b.Reset()
		return err
	}
	return nil
}

func (b *Board) setupFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return fmt.Errorf("%w: expected 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	b.clear()

	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(rows))
	}
	kings := [2]int{}
	for i, row := range rows {
		y := 7 - i
		x := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				x += int(c - '0')
				continue
			}
			kind, side, ok := kindFromLetter(c)
			if !ok {
				return fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, c)
			}
			if x > 7 {
				return fmt.Errorf("%w: rank %d is too long", ErrInvalidFEN, y+1)
			}
			if kind == King {
				kings[side]++
			}
			pos := Pos{X: x, Y: y}
			b.Place(pos, Piece{Kind: kind, Side: side, Moved: !homeSquare(kind, side, pos)})
			x++
		}
		if x != 8 {
			return fmt.Errorf("%w: rank %d has %d squares", ErrInvalidFEN, y+1, x)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}

	switch fields[1] {
	case "w":
		b.state.currentSide = White
	case "b":
		b.state.currentSide = Black
	default:
		return fmt.Errorf("%w: bad side to move %q", ErrInvalidFEN, fields[1])
	}

	if err := b.applyCastlingRights(fields[2]); err != nil {
		return err
	}

	if fields[3] != "-" {
		sq, err := ParsePos(fields[3])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
		}
		// the pawn that moved belongs to the side not to move
		pawnPos := sq.Add(Pos{Y: b.state.currentSide.Other().forward()})
		if !pawnPos.Valid() {
			return fmt.Errorf("%w: bad en passant square %s", ErrInvalidFEN, fields[3])
		}
		p := b.At(pawnPos)
		if p == nil || p.Kind != Pawn || p.Side == b.state.currentSide {
			return fmt.Errorf("%w: no pawn for en passant square %s", ErrInvalidFEN, fields[3])
		}
		b.state.passingTarget = pawnPos
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: bad half-move clock %q", ErrInvalidFEN, fields[4])
		}
		b.state.halfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: bad move number %q", ErrInvalidFEN, fields[5])
		}
		b.state.moveCounter = n
	}

	b.sync()
	if b.state.inCheck[b.state.currentSide.Other()] {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}
	b.positions[b.state.ShortenedFEN()] = 1
	return nil
}

// homeSquare reports whether a piece of this kind could still be unmoved on
// pos. Kings and rooks are refined afterwards from the castling field.
func homeSquare(kind Kind, side Side, pos Pos) bool {
	switch kind {
	case Pawn:
		if side == White {
			return pos.Y == 1
		}
		return pos.Y == 6
	case King, Rook:
		return false
	}
	return true
}

func (b *Board) applyCastlingRights(field string) error {
	if field == "-" {
		return nil
	}
	for i := 0; i < len(field); i++ {
		side, rookX := White, 7
		switch field[i] {
		case 'K':
		case 'Q':
			rookX = 0
		case 'k':
			side = Black
		case 'q':
			side, rookX = Black, 0
		default:
			return fmt.Errorf("%w: bad castling rights %q", ErrInvalidFEN, field)
		}
		y := 0
		if side == Black {
			y = 7
		}
		king := b.At(Pos{X: 4, Y: y})
		rook := b.At(Pos{X: rookX, Y: y})
		if king == nil || king.Kind != King || king.Side != side ||
			rook == nil || rook.Kind != Rook || rook.Side != side {
			return fmt.Errorf("%w: castling right %q without king and rook in place", ErrInvalidFEN, field[i])
		}
		king.Moved = false
		rook.Moved = false
	}
	return nil
}
