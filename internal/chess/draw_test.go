package chess

import (
	"testing"
)

func TestGameEndDetection(t *testing.T) {
	tests := []struct {
		name          string
		fen           string
		moves         []string
		wantCheckmate []Side
		wantStalemate []Side
		wantDraws     []string
	}{
		{
			name:          "Stalemate by queen",
			fen:           "7k/5Q2/8/6K1/8/8/8/8 w - - 0 1",
			moves:         []string{"g5g6"},
			wantStalemate: []Side{Black},
		},
		{
			name:          "Back rank mate",
			fen:           "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
			moves:         []string{"a1a8"},
			wantCheckmate: []Side{White},
		},
		{
			name:          "Mate on the fiftieth move is not a draw",
			fen:           "6k1/5ppp/8/8/8/8/8/R5K1 w - - 99 80",
			moves:         []string{"a1a8"},
			wantCheckmate: []Side{White},
		},
		{
			name:      "Fifty-move rule",
			fen:       "7k/8/8/8/8/8/8/K5R1 w - - 99 70",
			moves:     []string{"g1g2"},
			wantDraws: []string{DrawFiftyMoves},
		},
		{
			name:      "Fifty-move rule from a loaded clock past one hundred",
			fen:       "7k/8/8/8/8/8/8/K5R1 w - - 100 70",
			moves:     []string{"g1g2"},
			wantDraws: []string{DrawFiftyMoves},
		},
		{
			name:  "Capture on the fiftieth move resets the clock",
			fen:   "7k/8/8/8/8/8/6p1/K5R1 w - - 99 70",
			moves: []string{"g1g2"},
		},
		{
			name:      "Knights shuffling back repeat the position",
			fen:       StartingFEN,
			moves:     []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8"},
			wantDraws: []string{DrawRepetition},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, rec := setup(t, tt.fen)
			play(t, b, tt.moves...)

			if !equalSides(rec.checkmates, tt.wantCheckmate) {
				t.Errorf("Checkmates: expected %v, got %v", tt.wantCheckmate, rec.checkmates)
			}
			if !equalSides(rec.stalemates, tt.wantStalemate) {
				t.Errorf("Stalemates: expected %v, got %v", tt.wantStalemate, rec.stalemates)
			}
			if len(rec.draws) != len(tt.wantDraws) {
				t.Fatalf("Draws: expected %v, got %v", tt.wantDraws, rec.draws)
			}
			for i := range rec.draws {
				if rec.draws[i] != tt.wantDraws[i] {
					t.Errorf("Draw %d: expected %q, got %q", i, tt.wantDraws[i], rec.draws[i])
				}
			}
		})
	}
}

func equalSides(a, b []Side) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
