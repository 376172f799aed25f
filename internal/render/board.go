// Package render draws a position as text for terminals.
package render

import (
	"bufio"
	"io"

	"github.com/fatih/color"

	"github.com/justinabrahms/deskchess/internal/chess"
)

// Snapshot is anything that can report the piece on a square.
// Both *chess.Board and *game.Position satisfy it.
type Snapshot interface {
	At(chess.Pos) *chess.Piece
}

type Options struct {
	// Flip draws the board from Black's side.
	Flip bool
	// ASCII uses FEN letters instead of chess glyphs.
	ASCII bool
	// NoColor disables ANSI colours regardless of the terminal.
	NoColor bool
	// Selected is outlined when valid.
	Selected chess.Pos
	// Highlights are marked as move targets.
	Highlights []chess.Pos
}

var glyphs = map[byte]string{
	'K': "♔", 'Q': "♕", 'R': "♖", 'B': "♗", 'N': "♘", 'P': "♙",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
}

type palette struct {
	light, dark, selected, target *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		light:    color.New(color.BgHiWhite, color.FgBlack),
		dark:     color.New(color.BgGreen, color.FgBlack),
		selected: color.New(color.BgYellow, color.FgBlack, color.Bold),
		target:   color.New(color.BgCyan, color.FgBlack),
	}
	if noColor {
		for _, c := range []*color.Color{p.light, p.dark, p.selected, p.target} {
			c.DisableColor()
		}
	}
	return p
}

// Board writes an 8x8 diagram of snap to w, with rank and file labels.
// Without colour, the selected square is bracketed and empty targets show
// a dot.
func Board(w io.Writer, snap Snapshot, opts Options) error {
	pal := newPalette(opts.NoColor)
	targets := make(map[chess.Pos]bool, len(opts.Highlights))
	for _, h := range opts.Highlights {
		targets[h] = true
	}

	bw := bufio.NewWriter(w)
	files := fileLabels(opts.Flip)
	bw.WriteString(files)
	for row := 0; row < 8; row++ {
		y := 7 - row
		if opts.Flip {
			y = row
		}
		rank := string(rune('1' + y))
		bw.WriteString(rank + " ")
		for col := 0; col < 8; col++ {
			x := col
			if opts.Flip {
				x = 7 - col
			}
			p := chess.Pos{X: x, Y: y}
			bw.WriteString(square(pal, p, snap.At(p), opts.Selected.Valid() && p == opts.Selected, targets[p], opts))
		}
		bw.WriteString(" " + rank + "\n")
	}
	bw.WriteString(files)
	return bw.Flush()
}

func square(pal palette, p chess.Pos, piece *chess.Piece, selected, target bool, opts Options) string {
	symbol := " "
	if piece != nil {
		if opts.ASCII {
			symbol = string(piece.Letter())
		} else {
			symbol = glyphs[piece.Letter()]
		}
	} else if target && opts.NoColor {
		symbol = "."
	}

	left, right := " ", " "
	if opts.NoColor && selected {
		left, right = "[", "]"
	}
	cell := left + symbol + right

	switch {
	case selected:
		return pal.selected.Sprint(cell)
	case target:
		return pal.target.Sprint(cell)
	case (p.X+p.Y)%2 == 1:
		return pal.light.Sprint(cell)
	default:
		return pal.dark.Sprint(cell)
	}
}

func fileLabels(flip bool) string {
	b := []byte("  ")
	for i := 0; i < 8; i++ {
		f := byte('a' + i)
		if flip {
			f = byte('h' - i)
		}
		b = append(b, ' ', f, ' ')
	}
	return string(b) + "\n"
}
