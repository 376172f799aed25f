package chess

import (
	"testing"

	"github.com/rs/zerolog"
)

type recorder struct {
	promotions []Side
	checkmates []Side
	stalemates []Side
	draws      []string
}

func newTestBoard(t *testing.T) (*Board, *recorder) {
	t.Helper()
	rec := &recorder{}
	b := NewBoard(Callbacks{
		Promotion: func(side Side) { rec.promotions = append(rec.promotions, side) },
		Checkmate: func(_ FullMove, winner Side) { rec.checkmates = append(rec.checkmates, winner) },
		Stalemate: func(_ FullMove, side Side) { rec.stalemates = append(rec.stalemates, side) },
		Draw:      func(_ FullMove, reason string) { rec.draws = append(rec.draws, reason) },
	}, zerolog.Nop())
	return b, rec
}

func setup(t *testing.T, fen string) (*Board, *recorder) {
	t.Helper()
	b, rec := newTestBoard(t)
	if err := b.SetupFEN(fen); err != nil {
		t.Fatalf("SetupFEN(%q): %v", fen, err)
	}
	return b, rec
}

func mustPos(t *testing.T, s string) Pos {
	t.Helper()
	p, err := ParsePos(s)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func play(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := ParseFullMove(s)
		if err != nil {
			t.Fatal(err)
		}
		if !b.TryMove(m.From, m.To, nil) {
			t.Fatalf("move %s rejected in %s", s, b.FEN())
		}
		if b.PromotionPending() {
			b.OnPromotionResult(b.CurrentSide(), m.Promotion)
		}
	}
}

func hasMove(moves []Move, to Pos, typ MoveType) bool {
	for _, m := range moves {
		if m.To == to && m.Type == typ {
			return true
		}
	}
	return false
}

func TestNewBoard(t *testing.T) {
	b, _ := newTestBoard(t)

	if b.FEN() != StartingFEN {
		t.Errorf("Expected FEN %s, got %s", StartingFEN, b.FEN())
	}
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"
	if b.ShortenedFEN() != want {
		t.Errorf("Expected shortened FEN %s, got %s", want, b.ShortenedFEN())
	}
	if b.CurrentSide() != White {
		t.Errorf("Expected White to move, got %s", b.CurrentSide())
	}
	if b.IsInCheck(White) || b.IsInCheck(Black) {
		t.Error("Expected nobody in check")
	}
}

func TestAtOutsideBoard(t *testing.T) {
	b, _ := newTestBoard(t)

	for _, p := range []Pos{InvalidPos, {X: 8, Y: 0}, {X: 0, Y: -1}, {X: 3, Y: 8}} {
		if piece := b.At(p); piece != nil {
			t.Errorf("At(%v) = %v, want nil", p, piece)
		}
		if piece := b.State().At(p); piece != nil {
			t.Errorf("State().At(%v) = %v, want nil", p, piece)
		}
	}
}

func TestStartingPositionMoveCount(t *testing.T) {
	b, _ := newTestBoard(t)

	if n := len(b.AllValidMoves()); n != 20 {
		t.Fatalf("Expected 20 moves for White, got %d", n)
	}

	play(t, b, "e2e4")

	if n := len(b.AllValidMoves()); n != 20 {
		t.Fatalf("Expected 20 moves for Black after e4, got %d", n)
	}
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	if b.FEN() != want {
		t.Errorf("Expected FEN %s, got %s", want, b.FEN())
	}
}

func TestTryMoveRejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"pawn three squares", "e2", "e5"},
		{"empty square", "e4", "e5"},
		{"opponent piece", "e7", "e5"},
		{"knight blocked by own piece", "b1", "d2"},
		{"same square", "g1", "g1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBoard(t)
			executed := false

			ok := b.TryMove(mustPos(t, tt.from), mustPos(t, tt.to), func(FullMove) { executed = true })
			if ok {
				t.Fatalf("Expected %s%s to be rejected", tt.from, tt.to)
			}
			if executed {
				t.Error("Callback must not run for a rejected move")
			}
			if b.FEN() != StartingFEN {
				t.Errorf("Board changed after rejected move: %s", b.FEN())
			}
			if len(b.MoveHistory()) != 0 {
				t.Error("Rejected move was recorded")
			}
		})
	}
}

func TestTryMoveInvokesCallback(t *testing.T) {
	b, _ := newTestBoard(t)
	var got []string

	if !b.TryMove(mustPos(t, "g1"), mustPos(t, "f3"), func(m FullMove) { got = append(got, m.String()) }) {
		t.Fatal("Expected Nf3 to be legal")
	}
	if len(got) != 1 || got[0] != "g1f3" {
		t.Errorf("Expected callback with g1f3, got %v", got)
	}
	if b.CurrentSide() != Black {
		t.Errorf("Expected Black to move, got %s", b.CurrentSide())
	}
	if h := b.MoveHistory(); len(h) != 1 || h[0].String() != "g1f3" {
		t.Errorf("Unexpected history %v", h)
	}
}

func TestFoolsMate(t *testing.T) {
	b, rec := newTestBoard(t)

	play(t, b, "f2f3", "e7e5", "g2g4", "d8h4")

	if len(rec.checkmates) != 1 || rec.checkmates[0] != Black {
		t.Fatalf("Expected Black to checkmate once, got %v", rec.checkmates)
	}
	if len(rec.stalemates) != 0 {
		t.Errorf("Unexpected stalemate %v", rec.stalemates)
	}
	if !b.IsInCheck(White) {
		t.Error("Expected White in check")
	}
	if n := len(b.AllValidMoves()); n != 0 {
		t.Errorf("Expected no legal moves, got %d", n)
	}
}

func TestStalemate(t *testing.T) {
	b, rec := setup(t, "7k/5K2/8/8/8/8/8/6Q1 w - - 0 1")

	play(t, b, "g1g6")

	if len(rec.stalemates) != 1 || rec.stalemates[0] != Black {
		t.Fatalf("Expected Black stalemated once, got %v", rec.stalemates)
	}
	if len(rec.checkmates) != 0 {
		t.Errorf("Unexpected checkmate %v", rec.checkmates)
	}
	if b.IsInCheck(Black) {
		t.Error("Stalemated king must not be in check")
	}
}

func TestEnPassant(t *testing.T) {
	b, _ := newTestBoard(t)
	play(t, b, "e2e4", "a7a6", "e4e5", "d7d5")

	want := "rnbqkbnr/1pp1pppp/p7/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3"
	if b.FEN() != want {
		t.Fatalf("Expected FEN %s, got %s", want, b.FEN())
	}
	if !hasMove(b.ValidMoves(mustPos(t, "e5")), mustPos(t, "d6"), Passing) {
		t.Fatal("Expected en passant capture e5d6")
	}

	play(t, b, "e5d6")

	if b.At(mustPos(t, "d5")) != nil {
		t.Error("Captured pawn still on d5")
	}
	want = "rnbqkbnr/1pp1pppp/p2P4/8/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3"
	if b.FEN() != want {
		t.Errorf("Expected FEN %s, got %s", want, b.FEN())
	}
	eaten := b.EatenPieces(White)
	if len(eaten) != 1 || eaten[0].Kind != Pawn || eaten[0].Side != Black {
		t.Errorf("Expected White to have eaten a black pawn, got %v", eaten)
	}
}

func TestEnPassantExpires(t *testing.T) {
	b, _ := newTestBoard(t)
	play(t, b, "e2e4", "a7a6", "e4e5", "d7d5", "b1c3", "h7h6")

	for _, m := range b.ValidMoves(mustPos(t, "e5")) {
		if m.Type == Passing {
			t.Fatalf("En passant must only be available immediately, got %v", m)
		}
	}
	if b.TryMove(mustPos(t, "e5"), mustPos(t, "d6"), nil) {
		t.Fatal("Late en passant was accepted")
	}
}

func TestEnPassantExposingKingIsIllegal(t *testing.T) {
	b, _ := setup(t, "8/8/8/KPp4r/8/8/8/7k w - c6 0 1")

	moves := b.ValidMoves(mustPos(t, "b5"))
	if hasMove(moves, mustPos(t, "c6"), Passing) {
		t.Error("En passant that exposes the king along the rank must be illegal")
	}
	if !hasMove(moves, mustPos(t, "b6"), Normal) {
		t.Error("Expected b5b6 to stay legal")
	}
}

func TestCastling(t *testing.T) {
	b, _ := setup(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	moves := b.ValidMoves(mustPos(t, "e1"))
	if !hasMove(moves, mustPos(t, "g1"), Castling) {
		t.Error("Expected kingside castling")
	}
	if !hasMove(moves, mustPos(t, "c1"), QueensideCastling) {
		t.Error("Expected queenside castling")
	}

	play(t, b, "e1g1")

	if p := b.At(mustPos(t, "f1")); p == nil || p.Kind != Rook {
		t.Error("Expected rook on f1 after castling")
	}
	want := "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1"
	if b.FEN() != want {
		t.Errorf("Expected FEN %s, got %s", want, b.FEN())
	}

	play(t, b, "e8c8")

	if p := b.At(mustPos(t, "d8")); p == nil || p.Kind != Rook || p.Side != Black {
		t.Error("Expected black rook on d8 after queenside castling")
	}
	want = "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2"
	if b.FEN() != want {
		t.Errorf("Expected FEN %s, got %s", want, b.FEN())
	}
}

func TestCastlingRestrictions(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		kingside  bool
		queenside bool
	}{
		{"transit square attacked", "4kr2/8/8/8/8/8/8/R3K2R w KQ - 0 1", false, true},
		{"destination attacked", "2r1k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, false},
		{"king in check", "1k6/8/8/4r3/8/8/8/R3K2R w KQ - 0 1", false, false},
		{"knight check", "4k3/8/8/8/8/3n4/8/R3K2R w KQ - 0 1", false, false},
		{"path blocked", "4k3/8/8/8/8/8/8/RN2K1NR w KQ - 0 1", false, false},
		{"no rights", "4k3/8/8/8/8/8/8/R3K2R w - - 0 1", false, false},
		{"b-file attacked only", "1r2k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := setup(t, tt.fen)
			moves := b.ValidMoves(mustPos(t, "e1"))
			if got := hasMove(moves, mustPos(t, "g1"), Castling); got != tt.kingside {
				t.Errorf("kingside castling = %v, want %v", got, tt.kingside)
			}
			if got := hasMove(moves, mustPos(t, "c1"), QueensideCastling); got != tt.queenside {
				t.Errorf("queenside castling = %v, want %v", got, tt.queenside)
			}
		})
	}
}

func TestCastlingRightsLostAfterRookMoves(t *testing.T) {
	b, _ := setup(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	play(t, b, "h1h2", "a8b8", "h2h1", "b8a8")

	if got := b.State().castlingRights(); got != "Qk" {
		t.Errorf("Expected castling rights Qk, got %s", got)
	}
	if hasMove(b.ValidMoves(mustPos(t, "e1")), mustPos(t, "g1"), Castling) {
		t.Error("Kingside castling must be gone after the rook moved")
	}
}

func TestCastlingRightsLostAfterKingMoves(t *testing.T) {
	b, _ := setup(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	play(t, b, "e1e2", "e8e7", "e2e1", "e7e8")

	if got := b.State().castlingRights(); got != "-" {
		t.Errorf("Expected no castling rights, got %s", got)
	}
	for _, m := range b.ValidMoves(mustPos(t, "e1")) {
		if m.Type == Castling || m.Type == QueensideCastling {
			t.Errorf("Unexpected castling move %v", m)
		}
	}
}

func TestPromotion(t *testing.T) {
	tests := []struct {
		choice PromotionChoice
		kind   Kind
	}{
		{PromoteKnight, Knight},
		{PromoteBishop, Bishop},
		{PromoteRook, Rook},
		{PromoteQueen, Queen},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			b, rec := setup(t, "8/P7/8/8/8/7k/8/7K w - - 0 1")
			from, to := mustPos(t, "a7"), mustPos(t, "a8")

			if !hasMove(b.ValidMoves(from), to, Promotion) {
				t.Fatal("Expected a promotion move")
			}

			var executed []FullMove
			if !b.TryMove(from, to, func(m FullMove) { executed = append(executed, m) }) {
				t.Fatal("Promotion move rejected")
			}
			if len(rec.promotions) != 1 || rec.promotions[0] != White {
				t.Fatalf("Expected promotion callback for White, got %v", rec.promotions)
			}
			if !b.PromotionPending() || b.CurrentSide() != White || len(b.MoveHistory()) != 0 {
				t.Fatal("Move must stay pending until the choice arrives")
			}
			if len(executed) != 0 {
				t.Fatal("Move callback fired before the promotion was resolved")
			}

			b.OnPromotionResult(White, tt.choice)

			p := b.At(to)
			if p == nil || p.Kind != tt.kind || p.Side != White {
				t.Fatalf("Expected white %s on a8, got %+v", tt.kind, p)
			}
			want := "a7a8" + string(rune(tt.choice))
			if len(executed) != 1 || executed[0].String() != want {
				t.Errorf("Expected callback with %s, got %v", want, executed)
			}
			if h := b.MoveHistory(); len(h) != 1 || h[0].String() != want {
				t.Errorf("Expected history [%s], got %v", want, h)
			}
			if b.CurrentSide() != Black {
				t.Error("Expected Black to move after promotion")
			}
		})
	}
}

func TestPromotionRejectsBadChoice(t *testing.T) {
	b, _ := setup(t, "8/P7/8/8/8/7k/8/7K w - - 0 1")
	b.TryMove(mustPos(t, "a7"), mustPos(t, "a8"), nil)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for an invalid promotion choice")
		}
	}()
	b.OnPromotionResult(White, PromoteNone)
}

func TestTryMoveWhilePromotionPending(t *testing.T) {
	b, _ := setup(t, "8/P7/8/8/8/7k/8/7K w - - 0 1")
	b.TryMove(mustPos(t, "a7"), mustPos(t, "a8"), nil)

	if b.TryMove(mustPos(t, "h1"), mustPos(t, "g1"), nil) {
		t.Error("Expected moves to be refused while a promotion is pending")
	}
}

func TestFiftyMoveRule(t *testing.T) {
	b, rec := setup(t, "7k/8/8/8/8/8/8/K5R1 w - - 98 70")

	play(t, b, "g1g2")
	if len(rec.draws) != 0 {
		t.Fatalf("Unexpected draw at half-move clock 99: %v", rec.draws)
	}

	play(t, b, "h8h7")
	if len(rec.draws) != 1 || rec.draws[0] != DrawFiftyMoves {
		t.Fatalf("Expected fifty-move draw, got %v", rec.draws)
	}
	if b.State().HalfMoveClock() != 100 {
		t.Errorf("Expected half-move clock 100, got %d", b.State().HalfMoveClock())
	}
}

func TestHalfMoveClockResets(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		moves []string
	}{
		{"capture", "7k/8/8/8/8/8/6p1/K5R1 w - - 97 70", []string{"g1g2"}},
		{"pawn move", "7k/8/8/8/8/8/P7/K5R1 w - - 97 70", []string{"a2a3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, rec := setup(t, tt.fen)
			play(t, b, tt.moves...)
			if got := b.State().HalfMoveClock(); got != 0 {
				t.Errorf("Expected half-move clock 0, got %d", got)
			}
			play(t, b, "h8h7", "a1b1", "h7h8")
			if len(rec.draws) != 0 {
				t.Errorf("Unexpected draw %v", rec.draws)
			}
		})
	}
}

func TestThreefoldRepetition(t *testing.T) {
	b, rec := newTestBoard(t)

	play(t, b, "g1f3", "g8f6", "f3g1", "f6g8")
	if len(rec.draws) != 0 {
		t.Fatalf("Unexpected draw after second occurrence: %v", rec.draws)
	}
	if n := b.PositionCount(b.ShortenedFEN()); n != 2 {
		t.Fatalf("Expected starting position seen twice, got %d", n)
	}

	play(t, b, "g1f3", "g8f6", "f3g1")
	if len(rec.draws) != 0 {
		t.Fatalf("Unexpected draw before third occurrence: %v", rec.draws)
	}

	play(t, b, "f6g8")
	if len(rec.draws) != 1 || rec.draws[0] != DrawRepetition {
		t.Fatalf("Expected threefold repetition draw, got %v", rec.draws)
	}
}

func TestRepetitionIgnoresDifferentCastlingRights(t *testing.T) {
	b, rec := setup(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	// the first king trip drops castling rights, so the starting position
	// never recurs and the count starts over
	play(t, b, "e1f1", "e8f8", "f1e1", "f8e8")
	play(t, b, "e1f1", "e8f8", "f1e1", "f8e8")
	if len(rec.draws) != 0 {
		t.Fatalf("Unexpected draw: %v", rec.draws)
	}
	if n := b.PositionCount("r3k2r/8/8/8/8/8/8/R3K2R w KQkq -"); n != 1 {
		t.Errorf("Expected the starting position once, got %d", n)
	}
	play(t, b, "e1f1", "e8f8")
	if len(rec.draws) != 1 || rec.draws[0] != DrawRepetition {
		t.Fatalf("Expected repetition draw, got %v", rec.draws)
	}
}

func TestDoFullMove(t *testing.T) {
	b, _ := newTestBoard(t)

	played, ok := b.DoFullMove(FullMove{From: mustPos(t, "e2"), To: mustPos(t, "e4")})
	if !ok || played.String() != "e2e4" {
		t.Fatalf("Expected e2e4 to be played, got %s (%v)", played, ok)
	}
}

func TestDoFullMoveFallsBackToFirstValidMove(t *testing.T) {
	b, _ := newTestBoard(t)

	played, ok := b.DoFullMove(FullMove{From: mustPos(t, "e2"), To: mustPos(t, "e5")})
	if !ok {
		t.Fatal("Expected the fallback move to be played")
	}
	if played.String() != "b1c3" {
		t.Errorf("Expected fallback b1c3, got %s", played)
	}
	if b.CurrentSide() != Black {
		t.Error("Expected Black to move after fallback")
	}
}

func TestDoFullMoveWithPromotion(t *testing.T) {
	b, rec := setup(t, "8/P7/8/8/8/7k/8/7K w - - 0 1")

	played, ok := b.DoFullMove(FullMove{From: mustPos(t, "a7"), To: mustPos(t, "a8"), Promotion: PromoteRook})
	if !ok || played.String() != "a7a8r" {
		t.Fatalf("Expected a7a8r, got %s (%v)", played, ok)
	}
	if len(rec.promotions) != 0 {
		t.Error("Promotion callback must be suppressed during forced moves")
	}
	if p := b.At(mustPos(t, "a8")); p == nil || p.Kind != Rook {
		t.Errorf("Expected rook on a8, got %+v", p)
	}
}

func TestDoFullMovePromotionDefaultsToQueen(t *testing.T) {
	b, _ := setup(t, "8/P7/8/8/8/7k/8/7K w - - 0 1")

	played, ok := b.DoFullMove(FullMove{From: mustPos(t, "a7"), To: mustPos(t, "a8")})
	if !ok || played.String() != "a7a8q" {
		t.Fatalf("Expected a7a8q, got %s (%v)", played, ok)
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	b, _ := setup(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1")

	if moves := b.ValidMoves(mustPos(t, "e2")); len(moves) != 0 {
		t.Errorf("Pinned bishop must have no moves, got %v", moves)
	}
	if !b.State().MoveLeavesInCheck(mustPos(t, "e2"), mustPos(t, "d3")) {
		t.Error("Expected Bd3 to leave the king in check")
	}
}

func TestMoveLeavesInCheckPanicsOnEmptySquare(t *testing.T) {
	b, _ := newTestBoard(t)
	state := b.State()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for an empty from square")
		}
	}()
	state.MoveLeavesInCheck(mustPos(t, "e4"), mustPos(t, "e5"))
}

func TestReset(t *testing.T) {
	b, _ := newTestBoard(t)
	play(t, b, "e2e4", "d7d5", "e4d5")

	b.Reset()

	if b.FEN() != StartingFEN {
		t.Errorf("Expected starting FEN after reset, got %s", b.FEN())
	}
	if len(b.MoveHistory()) != 0 || len(b.EatenPieces(White)) != 0 {
		t.Error("Expected history and eaten pieces to be cleared")
	}
	if n := b.PositionCount(b.ShortenedFEN()); n != 1 {
		t.Errorf("Expected repetition table reset, got count %d", n)
	}
}
