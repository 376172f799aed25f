package chess

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Callbacks are the hooks a board fires towards the game session. Nil hooks
// are skipped.
type Callbacks struct {
	// Promotion is fired when a pawn reached the last rank; the session must
	// answer with OnPromotionResult before any other move.
	Promotion func(side Side)
	Checkmate func(move FullMove, winner Side)
	Stalemate func(move FullMove, cantMove Side)
	Draw      func(move FullMove, reason string)
}

type pendingPromotion struct {
	move       FullMove
	onExecuted func(FullMove)
}

// Board owns the pieces of one game and executes moves on them.
type Board struct {
	pieces  arena
	cells   [64]PieceID
	state   BoardState
	eaten   [2][]PieceID
	history []FullMove
	// shortened FEN -> number of times the position occurred
	positions map[string]int

	pending           *pendingPromotion
	suppressPromotion bool

	callbacks Callbacks
	log       zerolog.Logger
}

// NewBoard creates a board set up in the standard starting position.
func NewBoard(callbacks Callbacks, logger zerolog.Logger) *Board {
	b := &Board{
		callbacks: callbacks,
		log:       logger,
	}
	b.state.pieces = &b.pieces
	b.Reset()
	return b
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Reset puts the pieces in the starting position and clears all history.
func (b *Board) Reset() {
	b.clear()
	for x := 0; x < 8; x++ {
		b.Place(Pos{X: x, Y: 1}, Piece{Kind: Pawn, Side: White})
		b.Place(Pos{X: x, Y: 6}, Piece{Kind: Pawn, Side: Black})
		b.Place(Pos{X: x, Y: 0}, Piece{Kind: backRank[x], Side: White})
		b.Place(Pos{X: x, Y: 7}, Piece{Kind: backRank[x], Side: Black})
	}
	b.sync()
	b.positions[b.state.ShortenedFEN()] = 1
}

func (b *Board) clear() {
	b.pieces.clear()
	b.cells = [64]PieceID{}
	b.eaten = [2][]PieceID{}
	b.history = nil
	b.positions = make(map[string]int)
	b.pending = nil
	b.state.reset()
}

// sync copies the cells into the state and recomputes check data.
func (b *Board) sync() {
	b.state.cells = b.cells
	b.state.update()
}

// At returns the piece on p, or nil. The pointer may be used to adjust
// setup (e.g. the Moved flag); normal play goes through TryMove.
func (b *Board) At(p Pos) *Piece {
	if !p.Valid() {
		return nil
	}
	return b.pieces.get(b.cells[p.index()])
}

// Place puts a new piece on p, replacing any occupant. Call Sync once the
// setup is complete.
func (b *Board) Place(p Pos, piece Piece) {
	b.cells[p.index()] = b.pieces.add(piece)
}

// Remove empties p.
func (b *Board) Remove(p Pos) {
	b.cells[p.index()] = NoPiece
}

// Sync refreshes the state after manual setup through Place or Remove.
func (b *Board) Sync() {
	b.sync()
}

func (b *Board) CurrentSide() Side { return b.state.currentSide }

func (b *Board) IsInCheck(side Side) bool { return b.state.inCheck[side] }

// State returns the current snapshot. Copy it to explore hypothetical moves.
func (b *Board) State() *BoardState { return &b.state }

func (b *Board) FEN() string { return b.state.FEN() }

func (b *Board) ShortenedFEN() string { return b.state.ShortenedFEN() }

// MoveHistory returns the finished moves in order.
func (b *Board) MoveHistory() []FullMove {
	return append([]FullMove(nil), b.history...)
}

// EatenPieces returns the pieces captured by side.
func (b *Board) EatenPieces(side Side) []Piece {
	res := make([]Piece, 0, len(b.eaten[side]))
	for _, id := range b.eaten[side] {
		res = append(res, *b.pieces.get(id))
	}
	return res
}

// PromotionPending reports whether a pawn is waiting for OnPromotionResult.
func (b *Board) PromotionPending() bool { return b.pending != nil }

// ValidMoves returns the legal moves of the piece on from.
func (b *Board) ValidMoves(from Pos) []Move {
	if !from.Valid() {
		return nil
	}
	return b.state.ValidMoves(from)
}

// AllValidMoves returns every legal move of the side to move.
func (b *Board) AllValidMoves() []FullMove {
	var res []FullMove
	var moves []Move
	side := b.state.currentSide
	for i, id := range b.cells {
		p := b.pieces.get(id)
		if p == nil || p.Side != side {
			continue
		}
		from := Pos{X: i % 8, Y: i / 8}
		moves = p.ValidMoves(from, &b.state, moves[:0])
		for _, m := range moves {
			res = append(res, FullMove{From: from, To: m.To})
		}
	}
	return res
}

// TryMove attempts to move the piece on from to to. It returns false and
// changes nothing when the move is not legal. onExecuted, if non-nil, is
// called once the move is finished, which for a promotion is after
// OnPromotionResult.
func (b *Board) TryMove(from, to Pos, onExecuted func(FullMove)) bool {
	if b.pending != nil || !from.Valid() || !to.Valid() {
		return false
	}
	piece := b.At(from)
	if piece == nil || piece.Side != b.state.currentSide {
		return false
	}

	var move Move
	found := false
	for _, m := range b.state.ValidMoves(from) {
		if m.To == to {
			move, found = m, true
			break
		}
	}
	if !found {
		return false
	}

	fm := FullMove{From: from, To: to}
	b.state.halfMoveClock++
	if piece.Kind == Pawn {
		b.state.halfMoveClock = 0
	}

	passing := b.state.passingTarget
	b.state.passingTarget = InvalidPos

	switch move.Type {
	case DoubleAdvance:
		b.state.passingTarget = to
	case Passing:
		b.eatAt(passing)
	case QueensideCastling:
		b.moveUnchecked(Pos{X: 0, Y: from.Y}, from.Sub(Pos{X: 1}))
	case Castling:
		b.moveUnchecked(Pos{X: 7, Y: from.Y}, from.Add(Pos{X: 1}))
	}

	b.moveUnchecked(from, to)

	if move.Type == Promotion {
		b.pending = &pendingPromotion{move: fm, onExecuted: onExecuted}
		if !b.suppressPromotion && b.callbacks.Promotion != nil {
			b.callbacks.Promotion(b.state.currentSide)
		}
		return true
	}

	b.finishMove(fm)
	if onExecuted != nil {
		onExecuted(fm)
	}
	return true
}

// OnPromotionResult completes a pending promotion by replacing the pawn with
// a new piece of the chosen kind. It panics when no promotion is pending or
// the choice is not a knight, bishop, rook or queen.
func (b *Board) OnPromotionResult(side Side, choice PromotionChoice) {
	if b.pending == nil {
		panic("chess: OnPromotionResult without a pending promotion")
	}
	kind, ok := choice.kind()
	if !ok {
		panic(fmt.Sprintf("chess: invalid promotion choice %d", choice))
	}

	p := b.pending
	b.pending = nil
	b.Place(p.move.To, Piece{Kind: kind, Side: side, Moved: true})
	p.move.Promotion = choice

	b.finishMove(p.move)
	if p.onExecuted != nil {
		p.onExecuted(p.move)
	}
}

// DoFullMove forces a move, e.g. when replaying history. If the move is not
// legal the first legal move of the side to move is played instead. A
// promotion without a choice becomes a queen. It returns the move actually
// played and false if the side to move had no legal move at all.
func (b *Board) DoFullMove(move FullMove) (FullMove, bool) {
	b.suppressPromotion = true
	defer func() { b.suppressPromotion = false }()

	var played FullMove
	record := func(m FullMove) { played = m }

	if !b.TryMove(move.From, move.To, record) {
		b.log.Warn().
			Str("move", move.String()).
			Str("fen", b.state.FEN()).
			Msg("Illegal forced move, playing first valid move instead")

		all := b.AllValidMoves()
		if len(all) == 0 || !b.TryMove(all[0].From, all[0].To, record) {
			return FullMove{}, false
		}
	}

	if b.pending != nil {
		choice := move.Promotion
		if _, ok := choice.kind(); !ok {
			choice = PromoteQueen
		}
		b.OnPromotionResult(b.state.currentSide, choice)
	}
	return played, true
}

// eatAt moves the piece on p, if any, to the capturing side's eaten list.
func (b *Board) eatAt(p Pos) {
	id := b.cells[p.index()]
	if id == NoPiece {
		return
	}
	b.cells[p.index()] = NoPiece
	b.state.halfMoveClock = 0
	captured := b.pieces.get(id)
	b.eaten[captured.Side.Other()] = append(b.eaten[captured.Side.Other()], id)
}

func (b *Board) moveUnchecked(from, to Pos) {
	b.eatAt(to)
	b.cells[to.index()] = b.cells[from.index()]
	b.cells[from.index()] = NoPiece
	if p := b.At(to); p != nil {
		p.Moved = true
	}
}

func (b *Board) finishMove(move FullMove) {
	mover := b.state.currentSide
	b.sync()
	b.state.advance()
	b.history = append(b.history, move)

	key := b.state.ShortenedFEN()
	b.positions[key]++
	count := b.positions[key]

	b.log.Debug().Str("move", move.String()).Str("fen", b.state.FEN()).Msg("Move finished")

	opponent := b.state.currentSide
	switch b.state.TestWinOrStalemate(opponent) {
	case Win:
		if b.callbacks.Checkmate != nil {
			b.callbacks.Checkmate(move, mover)
		}
		return
	case Stalemate:
		if b.callbacks.Stalemate != nil {
			b.callbacks.Stalemate(move, opponent)
		}
		return
	}

	if b.callbacks.Draw == nil {
		return
	}
	// 50 moves = 100 half-moves
	if b.state.halfMoveClock >= 100 {
		b.callbacks.Draw(move, DrawFiftyMoves)
	}
	if count == 3 {
		b.callbacks.Draw(move, DrawRepetition)
	}
}

// PositionCount returns how many times the position with the given
// shortened FEN has occurred in this game.
func (b *Board) PositionCount(shortenedFEN string) int {
	return b.positions[shortenedFEN]
}
