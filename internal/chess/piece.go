package chess

// Kind is the type of a piece.
type Kind int

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return ""
}

// Letter returns the uppercase FEN letter of the kind.
func (k Kind) Letter() byte {
	switch k {
	case Pawn:
		return 'P'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case Rook:
		return 'R'
	case Queen:
		return 'Q'
	case King:
		return 'K'
	}
	return '?'
}

func kindFromLetter(c byte) (Kind, Side, bool) {
	side := White
	if c >= 'a' && c <= 'z' {
		side = Black
		c -= 'a' - 'A'
	}
	switch c {
	case 'P':
		return Pawn, side, true
	case 'N':
		return Knight, side, true
	case 'B':
		return Bishop, side, true
	case 'R':
		return Rook, side, true
	case 'Q':
		return Queen, side, true
	case 'K':
		return King, side, true
	}
	return NoKind, side, false
}

// Piece is a single chessman. Moved is set once the piece has made any move
// and gates castling and the pawn double advance.
type Piece struct {
	Kind  Kind
	Side  Side
	Moved bool
}

// Letter returns the FEN letter, uppercase for White.
func (p Piece) Letter() byte {
	l := p.Kind.Letter()
	if p.Side == Black {
		l += 'a' - 'A'
	}
	return l
}

var diagonals = []Pos{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

var orthogonal = []Pos{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

var knightJumps = []Pos{
	{1, 2}, {2, 1}, {2, -1}, {1, -2},
	{-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
}

var kingSteps = []Pos{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// ValidMoves appends the legal moves of the piece standing on from: its
// pseudo-legal moves minus those that leave its own king in check.
func (p Piece) ValidMoves(from Pos, s *BoardState, res []Move) []Move {
	start := len(res)
	res = p.PseudoLegalMoves(from, s, res)
	kept := res[:start]
	for _, m := range res[start:] {
		if s.legal(from, p, m) {
			kept = append(kept, m)
		}
	}
	return kept
}

// PseudoLegalMoves appends every destination allowed by the piece's geometry
// and occupancy rules without testing king safety.
func (p Piece) PseudoLegalMoves(from Pos, s *BoardState, res []Move) []Move {
	g := generator{s: s, from: from, side: p.Side, res: res}
	switch p.Kind {
	case Pawn:
		g.pawn(p.Moved)
	case Knight:
		g.steps(knightJumps)
	case Bishop:
		g.slide(diagonals)
	case Rook:
		g.slide(orthogonal)
	case Queen:
		g.slide(diagonals)
		g.slide(orthogonal)
	case King:
		g.steps(kingSteps)
		if !p.Moved {
			g.castling()
		}
	}
	return g.res
}

type generator struct {
	s    *BoardState
	from Pos
	side Side
	res  []Move
}

func (g *generator) add(to Pos, t MoveType) {
	g.res = append(g.res, Move{To: to, Type: t})
}

// tryAdd adds to if it is empty or holds an enemy piece. It returns true
// when a slide may continue past to.
func (g *generator) tryAdd(to Pos) bool {
	if !to.Valid() {
		return false
	}
	occ := g.s.At(to)
	if occ == nil {
		g.add(to, Normal)
		return true
	}
	if occ.Side != g.side {
		g.add(to, Normal)
	}
	return false
}

func (g *generator) steps(offsets []Pos) {
	for _, o := range offsets {
		g.tryAdd(g.from.Add(o))
	}
}

func (g *generator) slide(dirs []Pos) {
	for _, d := range dirs {
		to := g.from.Add(d)
		for g.tryAdd(to) {
			to = to.Add(d)
		}
	}
}

func (g *generator) pawn(moved bool) {
	dir := g.side.forward()
	lastRank, startRank := 7, 1
	if g.side == Black {
		lastRank, startRank = 0, 6
	}
	advance := func(to Pos) MoveType {
		if to.Y == lastRank {
			return Promotion
		}
		return Normal
	}

	one := g.from.Add(Pos{0, dir})
	if one.Valid() && g.s.At(one) == nil {
		g.add(one, advance(one))
		two := one.Add(Pos{0, dir})
		if !moved && g.from.Y == startRank && two.Valid() && g.s.At(two) == nil {
			g.add(two, DoubleAdvance)
		}
	}

	for _, dx := range []int{-1, 1} {
		to := g.from.Add(Pos{dx, dir})
		if !to.Valid() {
			continue
		}
		if occ := g.s.At(to); occ != nil {
			if occ.Side != g.side {
				g.add(to, advance(to))
			}
			continue
		}
		// the target holds the pawn that just double-advanced past to
		beside := g.from.Add(Pos{dx, 0})
		if beside == g.s.passingTarget {
			if occ := g.s.At(beside); occ != nil && occ.Kind == Pawn && occ.Side != g.side {
				g.add(to, Passing)
			}
		}
	}
}

func (g *generator) castling() {
	y := g.from.Y
	if g.from.X != 4 {
		return
	}
	unmovedRook := func(x int) bool {
		r := g.s.At(Pos{x, y})
		return r != nil && r.Kind == Rook && r.Side == g.side && !r.Moved
	}
	empty := func(xs ...int) bool {
		for _, x := range xs {
			if g.s.At(Pos{x, y}) != nil {
				return false
			}
		}
		return true
	}
	if unmovedRook(7) && empty(5, 6) {
		g.add(Pos{6, y}, Castling)
	}
	if unmovedRook(0) && empty(1, 2, 3) {
		g.add(Pos{2, y}, QueensideCastling)
	}
}
