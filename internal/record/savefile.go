package record

import (
	"errors"
	"fmt"
	"io"

	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	"github.com/ipld/go-ipld-prime/node/basicnode"

	"github.com/justinabrahms/deskchess/internal/chess"
)

// SaveVersion is written into every save file.
const SaveVersion = 1

var ErrBadSave = errors.New("invalid save file")

// Encode writes g as a DAG-CBOR map.
func Encode(w io.Writer, g Game) error {
	moves := g.MoveStrings()
	node, err := qp.BuildMap(basicnode.Prototype.Any, 7, func(ma datamodel.MapAssembler) {
		qp.MapEntry(ma, "version", qp.Int(SaveVersion))
		qp.MapEntry(ma, "white", qp.String(g.White))
		qp.MapEntry(ma, "black", qp.String(g.Black))
		qp.MapEntry(ma, "fen", qp.String(g.StartFEN))
		qp.MapEntry(ma, "moves", qp.List(int64(len(moves)), func(la datamodel.ListAssembler) {
			for _, m := range moves {
				qp.ListEntry(la, qp.String(m))
			}
		}))
		qp.MapEntry(ma, "status", qp.String(string(g.Status)))
		qp.MapEntry(ma, "reason", qp.String(g.Reason))
	})
	if err != nil {
		return fmt.Errorf("failed to build save node: %w", err)
	}
	if err := dagcbor.Encode(node, w); err != nil {
		return fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return nil
}

// Decode reads a save file written by Encode.
func Decode(r io.Reader) (Game, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := dagcbor.Decode(nb, r); err != nil {
		return Game{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	node := nb.Build()
	if node.Kind() != datamodel.Kind_Map {
		return Game{}, fmt.Errorf("%w: expected map, got %v", ErrBadSave, node.Kind())
	}

	version, err := intField(node, "version")
	if err != nil {
		return Game{}, err
	}
	if version != SaveVersion {
		return Game{}, fmt.Errorf("%w: unsupported version %d", ErrBadSave, version)
	}

	var g Game
	fields := []struct {
		key string
		dst *string
	}{
		{"white", &g.White},
		{"black", &g.Black},
		{"fen", &g.StartFEN},
		{"reason", &g.Reason},
	}
	for _, f := range fields {
		if *f.dst, err = stringField(node, f.key); err != nil {
			return Game{}, err
		}
	}
	status, err := stringField(node, "status")
	if err != nil {
		return Game{}, err
	}
	g.Status = chess.GameStatus(status)

	moves, err := node.LookupByString("moves")
	if err != nil {
		return Game{}, fmt.Errorf("%w: missing moves: %v", ErrBadSave, err)
	}
	if moves.Kind() != datamodel.Kind_List {
		return Game{}, fmt.Errorf("%w: moves is %v, not a list", ErrBadSave, moves.Kind())
	}
	iter := moves.ListIterator()
	for !iter.Done() {
		_, v, err := iter.Next()
		if err != nil {
			return Game{}, err
		}
		s, err := v.AsString()
		if err != nil {
			return Game{}, fmt.Errorf("%w: move is not a string: %v", ErrBadSave, err)
		}
		m, err := chess.ParseFullMove(s)
		if err != nil {
			return Game{}, fmt.Errorf("%w: %v", ErrBadSave, err)
		}
		g.Moves = append(g.Moves, m)
	}
	return g, nil
}

func stringField(node datamodel.Node, key string) (string, error) {
	v, err := node.LookupByString(key)
	if err != nil {
		return "", fmt.Errorf("%w: missing %s: %v", ErrBadSave, key, err)
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a string: %v", ErrBadSave, key, err)
	}
	return s, nil
}

func intField(node datamodel.Node, key string) (int64, error) {
	v, err := node.LookupByString(key)
	if err != nil {
		return 0, fmt.Errorf("%w: missing %s: %v", ErrBadSave, key, err)
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %v", ErrBadSave, key, err)
	}
	return i, nil
}
