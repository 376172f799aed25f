package game

import "github.com/justinabrahms/deskchess/internal/chess"

type EventType string

const (
	EventMove      EventType = "move"
	EventPromotion EventType = "promotion"
	EventCheckmate EventType = "checkmate"
	EventStalemate EventType = "stalemate"
	EventDraw      EventType = "draw"
	EventTimeout   EventType = "timeout"
	EventResign    EventType = "resign"
	EventStepBack  EventType = "step_back"
	EventNewGame   EventType = "new_game"
)

// Event is sent to listeners whenever the session changes.
type Event struct {
	Type EventType `json:"type"`
	// Move is the executed move for move, checkmate, stalemate and draw events
	Move string `json:"move,omitempty"`
	// Side is the side the event is about: the mover, the winner of a
	// checkmate, the side that cannot move, the side that resigned or flagged.
	Side   string           `json:"side,omitempty"`
	Reason string           `json:"reason,omitempty"`
	FEN    string           `json:"fen"`
	Status chess.GameStatus `json:"status"`
}

// Listener receives session events. It is called synchronously with the
// session locked and must not call back into the session.
type Listener interface {
	OnEvent(e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(e Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

func sideName(side chess.Side) string {
	if side == chess.White {
		return "white"
	}
	return "black"
}
