package record

import (
	"fmt"
	"io"

	notnil "github.com/notnil/chess"

	"github.com/justinabrahms/deskchess/internal/chess"
)

// replayReference plays g's moves on a notnil game.
func replayReference(g Game) (*notnil.Game, error) {
	var opts []func(*notnil.Game)
	if g.StartFEN != "" && g.StartFEN != chess.StartingFEN {
		fen, err := notnil.FEN(g.StartFEN)
		if err != nil {
			return nil, fmt.Errorf("invalid start position: %w", err)
		}
		opts = append(opts, fen)
	}
	ng := notnil.NewGame(opts...)

	for i, m := range g.Moves {
		move, err := notnil.UCINotation{}.Decode(ng.Position(), m.String())
		if err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
		if err := ng.Move(move); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
	}
	return ng, nil
}

// SAN returns the moves of g in standard algebraic notation.
func SAN(g Game) ([]string, error) {
	ng, err := replayReference(g)
	if err != nil {
		return nil, err
	}
	positions := ng.Positions()
	res := make([]string, 0, len(g.Moves))
	for i, m := range ng.Moves() {
		res = append(res, notnil.AlgebraicNotation{}.Encode(positions[i], m))
	}
	return res, nil
}

// PGN renders g as PGN text with the seven tag roster names that are known.
func PGN(g Game) (string, error) {
	ng, err := replayReference(g)
	if err != nil {
		return "", err
	}

	ng.AddTagPair("Event", "Casual game")
	ng.AddTagPair("White", g.White)
	ng.AddTagPair("Black", g.Black)
	if g.StartFEN != "" && g.StartFEN != chess.StartingFEN {
		ng.AddTagPair("SetUp", "1")
		ng.AddTagPair("FEN", g.StartFEN)
	}

	// checkmate and stalemate are detected by the reference game itself
	if ng.Outcome() == notnil.NoOutcome {
		switch g.Status {
		case chess.StatusWhiteWon:
			ng.Resign(notnil.Black)
		case chess.StatusBlackWon:
			ng.Resign(notnil.White)
		case chess.StatusDraw:
			if err := ng.Draw(notnil.DrawOffer); err != nil {
				return "", fmt.Errorf("failed to record draw: %w", err)
			}
		}
	}
	if g.Reason != "" {
		ng.AddTagPair("Termination", g.Reason)
	}
	ng.AddTagPair("Result", ng.Outcome().String())

	return ng.String(), nil
}

// ParsePGN reads the first game of a PGN text.
func ParsePGN(r io.Reader) (Game, error) {
	opt, err := notnil.PGN(r)
	if err != nil {
		return Game{}, fmt.Errorf("failed to parse PGN: %w", err)
	}
	ng := notnil.NewGame(opt)

	g := Game{
		White:    tag(ng, "White"),
		Black:    tag(ng, "Black"),
		StartFEN: chess.StartingFEN,
		Status:   chess.StatusActive,
		Reason:   tag(ng, "Termination"),
	}
	if fen := tag(ng, "FEN"); fen != "" {
		g.StartFEN = fen
	}

	positions := ng.Positions()
	for i, m := range ng.Moves() {
		fm, err := chess.ParseFullMove(notnil.UCINotation{}.Encode(positions[i], m))
		if err != nil {
			return Game{}, err
		}
		g.Moves = append(g.Moves, fm)
	}

	switch ng.Outcome() {
	case notnil.WhiteWon:
		g.Status = chess.StatusWhiteWon
	case notnil.BlackWon:
		g.Status = chess.StatusBlackWon
	case notnil.Draw:
		g.Status = chess.StatusDraw
	}
	return g, nil
}

func tag(ng *notnil.Game, key string) string {
	if tp := ng.GetTagPair(key); tp != nil {
		return tp.Value
	}
	return ""
}
