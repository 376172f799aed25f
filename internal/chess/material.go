package chess

// MaterialCount represents the material count for both sides
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Balance is White's material minus Black's.
func (m MaterialCount) Balance() int {
	return m.White - m.Black
}

// PieceValue returns the standard value of a kind; the king has none.
func PieceValue(k Kind) int {
	switch k {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	}
	return 0
}

// Material counts the material each side still has on the board.
func (b *Board) Material() MaterialCount {
	var count MaterialCount
	for _, id := range b.cells {
		p := b.pieces.get(id)
		if p == nil {
			continue
		}
		if p.Side == White {
			count.White += PieceValue(p.Kind)
		} else {
			count.Black += PieceValue(p.Kind)
		}
	}
	return count
}

// CapturedMaterial sums the value of the pieces each side has eaten.
func (b *Board) CapturedMaterial() MaterialCount {
	var count MaterialCount
	for _, p := range b.EatenPieces(White) {
		count.White += PieceValue(p.Kind)
	}
	for _, p := range b.EatenPieces(Black) {
		count.Black += PieceValue(p.Kind)
	}
	return count
}
