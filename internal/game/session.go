package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/justinabrahms/deskchess/internal/chess"
)

var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrPromotionPending = errors.New("promotion pending")
	ErrNoPromotion      = errors.New("no promotion pending")
	ErrInvalidPromotion = errors.New("invalid promotion choice")
	ErrGameOver         = errors.New("game is over")
	ErrNothingToUndo    = errors.New("no move to take back")
)

const (
	DefaultWhiteName = "Player 1"
	DefaultBlackName = "Player 2"
)

// Options configure a new session. The zero value is a standard game
// without a clock.
type Options struct {
	WhiteName      string
	BlackName      string
	ShowValidMoves bool
	TimeControl    TimeControl
	// FEN is the start position; empty means the standard one.
	FEN    string
	Logger *zerolog.Logger
	// Now is the time source for the clock, time.Now by default.
	Now func() time.Time
}

// Session is one game in progress: the board plus everything a UI needs to
// drive it. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	names          [2]string
	startFEN       string
	showValidMoves bool
	tc             TimeControl
	now            func() time.Time
	log            zerolog.Logger

	board     *chess.Board
	clock     *Clock
	listeners []Listener

	status  chess.GameStatus
	message string

	selected   chess.Pos
	validMoves []chess.Move

	// events raised by board callbacks, sent once the move is complete
	queued    []Event
	replaying bool
}

// New creates a session and starts the game.
func New(opts Options, listeners ...Listener) (*Session, error) {
	s := &Session{
		names:          [2]string{opts.WhiteName, opts.BlackName},
		startFEN:       opts.FEN,
		showValidMoves: opts.ShowValidMoves,
		tc:             opts.TimeControl,
		now:            opts.Now,
		listeners:      listeners,
		log:            zerolog.Nop(),
	}
	if s.names[chess.White] == "" {
		s.names[chess.White] = DefaultWhiteName
	}
	if s.names[chess.Black] == "" {
		s.names[chess.Black] = DefaultBlackName
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	}

	s.board = chess.NewBoard(chess.Callbacks{
		Promotion: s.onPromotion,
		Checkmate: s.onCheckmate,
		Stalemate: s.onStalemate,
		Draw:      s.onDraw,
	}, s.log)

	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// start puts the board in the start position and resets all session state.
func (s *Session) start() error {
	if s.startFEN == "" {
		s.board.Reset()
	} else if err := s.board.SetupFEN(s.startFEN); err != nil {
		return fmt.Errorf("failed to set up start position: %w", err)
	}
	s.status = chess.StatusActive
	s.message = ""
	s.queued = nil
	s.deselect()
	if s.tc.Enabled() {
		s.clock = NewClock(s.tc)
		s.clock.Start(s.board.CurrentSide(), s.now())
	}
	return nil
}

// AddListener registers l for all future events.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) onPromotion(side chess.Side) {
	s.queue(Event{Type: EventPromotion, Side: sideName(side)})
}

func (s *Session) onCheckmate(move chess.FullMove, winner chess.Side) {
	msg := fmt.Sprintf("%s (%s) won!", winner, s.names[winner])
	if s.end(chess.WonBy(winner), msg) {
		s.queue(Event{Type: EventCheckmate, Move: move.String(), Side: sideName(winner), Reason: msg})
	}
}

func (s *Session) onStalemate(move chess.FullMove, cantMove chess.Side) {
	msg := fmt.Sprintf("%s can't move", cantMove)
	if s.end(chess.StatusDraw, msg) {
		s.queue(Event{Type: EventStalemate, Move: move.String(), Side: sideName(cantMove), Reason: msg})
	}
}

func (s *Session) onDraw(move chess.FullMove, reason string) {
	if s.end(chess.StatusDraw, reason) {
		s.queue(Event{Type: EventDraw, Move: move.String(), Reason: reason})
	}
}

// end finishes the game unless it already is.
func (s *Session) end(status chess.GameStatus, msg string) bool {
	if s.status != chess.StatusActive {
		return false
	}
	s.status = status
	s.message = msg
	if s.clock != nil {
		s.clock.Stop(s.now())
	}
	s.log.Info().Str("status", string(status)).Str("reason", msg).Msg("Game over")
	return true
}

func (s *Session) queue(e Event) {
	if s.replaying {
		return
	}
	s.queued = append(s.queued, e)
}

func (s *Session) emit(e Event) {
	e.FEN = s.board.FEN()
	e.Status = s.status
	for _, l := range s.listeners {
		l.OnEvent(e)
	}
}

func (s *Session) flush() {
	queued := s.queued
	s.queued = nil
	for _, e := range queued {
		s.emit(e)
	}
}

// checkTime ends the game if the side to move has flagged.
func (s *Session) checkTime(now time.Time) bool {
	if s.clock == nil || s.status != chess.StatusActive {
		return false
	}
	side, expired := s.clock.Expired(now)
	if !expired {
		return false
	}
	msg := fmt.Sprintf("%s ran out of time", side)
	s.end(chess.WonBy(side.Other()), msg)
	s.emit(Event{Type: EventTimeout, Side: sideName(side), Reason: msg})
	return true
}

// Tick checks the clock at now and reports whether the side to move just
// lost on time.
func (s *Session) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkTime(now)
}

// Move plays from-to for the side to move. A pawn reaching the last rank
// leaves the session waiting for Promote; the returned move then has no
// promotion choice yet.
func (s *Session) Move(from, to chess.Pos) (chess.FullMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(chess.FullMove{From: from, To: to})
}

// MoveString plays a move in coordinate notation such as "e2e4" or "e7e8q".
func (s *Session) MoveString(str string) (chess.FullMove, error) {
	m, err := chess.ParseFullMove(str)
	if err != nil {
		return chess.FullMove{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(m)
}

func (s *Session) move(m chess.FullMove) (chess.FullMove, error) {
	if s.checkTime(s.now()) || s.status != chess.StatusActive {
		return chess.FullMove{}, ErrGameOver
	}
	if s.board.PromotionPending() {
		return chess.FullMove{}, ErrPromotionPending
	}
	if m.Promotion != chess.PromoteNone && !m.Promotion.Valid() {
		return chess.FullMove{}, ErrInvalidPromotion
	}

	played := chess.FullMove{From: m.From, To: m.To}
	if !s.board.TryMove(m.From, m.To, func(fm chess.FullMove) {
		played = fm
		s.onExecuted(fm)
	}) {
		return chess.FullMove{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	s.deselect()

	if s.board.PromotionPending() {
		if m.Promotion != chess.PromoteNone {
			// the choice came with the move, nobody needs to be asked
			s.queued = nil
			s.board.OnPromotionResult(s.board.CurrentSide(), m.Promotion)
			return played, nil
		}
		s.log.Debug().Str("move", played.String()).Msg("Waiting for promotion choice")
		s.flush()
	}
	return played, nil
}

// onExecuted runs once a move is complete, after the board callbacks.
func (s *Session) onExecuted(m chess.FullMove) {
	mover := s.board.CurrentSide().Other()
	if s.clock != nil && s.status == chess.StatusActive {
		s.clock.Switch(s.now())
	}
	s.log.Debug().Str("move", m.String()).Str("fen", s.board.FEN()).Msg("Move played")
	s.emit(Event{Type: EventMove, Move: m.String(), Side: sideName(mover)})
	s.flush()
}

// Promote completes a pending promotion.
func (s *Session) Promote(choice chess.PromotionChoice) (chess.FullMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.board.PromotionPending() {
		return chess.FullMove{}, ErrNoPromotion
	}
	if !choice.Valid() {
		return chess.FullMove{}, ErrInvalidPromotion
	}
	history := s.board.MoveHistory()
	s.board.OnPromotionResult(s.board.CurrentSide(), choice)
	return s.board.MoveHistory()[len(history)], nil
}

// Select marks the piece on pos for moving and returns its legal moves. It
// returns nil and clears the selection when pos does not hold a piece of
// the side to move.
func (s *Session) Select(pos chess.Pos) []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectAt(pos)
	return append([]chess.Move(nil), s.validMoves...)
}

func (s *Session) selectAt(pos chess.Pos) bool {
	s.deselect()
	if s.status != chess.StatusActive || s.board.PromotionPending() || !pos.Valid() {
		return false
	}
	p := s.board.At(pos)
	if p == nil || p.Side != s.board.CurrentSide() {
		return false
	}
	s.selected = pos
	s.validMoves = s.board.ValidMoves(pos)
	return true
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deselect()
}

func (s *Session) deselect() {
	s.selected = chess.InvalidPos
	s.validMoves = nil
}

// Click is the single pointer action of a board UI: with a piece selected,
// clicking it again deselects and clicking one of its targets moves there.
// Anything else selects the clicked square. It reports whether a move was
// played.
func (s *Session) Click(pos chess.Pos) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected.Valid() {
		if s.selected == pos {
			s.deselect()
			return false, nil
		}
		for _, m := range s.validMoves {
			if m.To == pos {
				_, err := s.move(chess.FullMove{From: s.selected, To: pos})
				return err == nil, err
			}
		}
	}
	s.selectAt(pos)
	return false, nil
}

// Selection returns the selected square, or chess.InvalidPos, and the
// targets to highlight. Targets are empty when valid moves are hidden.
func (s *Session) Selection() (chess.Pos, []chess.Pos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.showValidMoves {
		return s.selected, nil
	}
	targets := make([]chess.Pos, 0, len(s.validMoves))
	for _, m := range s.validMoves {
		targets = append(targets, m.To)
	}
	return s.selected, targets
}

// SetShowValidMoves toggles highlighting of the selected piece's targets.
func (s *Session) SetShowValidMoves(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showValidMoves = show
}

// ValidMoves returns the legal moves from pos without changing the selection.
func (s *Session) ValidMoves(pos chess.Pos) []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != chess.StatusActive || s.board.PromotionPending() {
		return nil
	}
	p := s.board.At(pos)
	if p == nil || p.Side != s.board.CurrentSide() {
		return nil
	}
	return s.board.ValidMoves(pos)
}

// StepBack takes back the last move by replaying the game without it. A
// pending promotion is cancelled instead. Stepping back out of a finished
// game makes it active again.
func (s *Session) StepBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.board.MoveHistory()
	if !s.board.PromotionPending() {
		if len(history) == 0 {
			return ErrNothingToUndo
		}
		history = history[:len(history)-1]
	}

	if err := s.replay(history); err != nil {
		return err
	}
	s.log.Debug().Int("moves", len(history)).Msg("Stepped back")
	s.emit(Event{Type: EventStepBack})
	return nil
}

// replay restarts from the start position and forces every move in order.
// The clock keeps the time already spent.
func (s *Session) replay(moves []chess.FullMove) error {
	clock := s.clock
	if err := s.start(); err != nil {
		return err
	}

	s.replaying = true
	defer func() { s.replaying = false }()
	for _, m := range moves {
		if _, ok := s.board.DoFullMove(m); !ok {
			return fmt.Errorf("%w: replay stopped at %s", ErrIllegalMove, m)
		}
	}

	if clock != nil {
		now := s.now()
		clock.Stop(now)
		clock.Start(s.board.CurrentSide(), now)
		s.clock = clock
	}
	return nil
}

// Load replaces the game with the given moves played from the start
// position, e.g. from a save file. Illegal moves are replaced by the
// first legal move, as with chess.Board.DoFullMove.
func (s *Session) Load(moves []chess.FullMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.start(); err != nil {
		return err
	}

	s.replaying = true
	defer func() { s.replaying = false }()
	for i, m := range moves {
		if s.status != chess.StatusActive {
			return fmt.Errorf("%w: %d moves left after the end of the game", ErrGameOver, len(moves)-i)
		}
		if _, ok := s.board.DoFullMove(m); !ok {
			return fmt.Errorf("%w: no legal move for %s", ErrIllegalMove, m)
		}
	}
	if s.clock != nil {
		s.clock.Start(s.board.CurrentSide(), s.now())
	}
	s.emit(Event{Type: EventNewGame})
	return nil
}

// NewGame restarts from the start position with the same players.
func (s *Session) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.start(); err != nil {
		return err
	}
	s.emit(Event{Type: EventNewGame})
	return nil
}

// Resign ends the game as a loss for side.
func (s *Session) Resign(side chess.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := fmt.Sprintf("%s resigned", side)
	if !s.end(chess.WonBy(side.Other()), msg) {
		return ErrGameOver
	}
	s.emit(Event{Type: EventResign, Side: sideName(side), Reason: msg})
	return nil
}

// Status returns the game status and, once the game is over, a message
// describing how it ended.
func (s *Session) Status() (chess.GameStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.message
}

// PlayerName returns the name of the player of side.
func (s *Session) PlayerName(side chess.Side) string {
	return s.names[side]
}

// StartFEN returns the position the game started from.
func (s *Session) StartFEN() string {
	if s.startFEN == "" {
		return chess.StartingFEN
	}
	return s.startFEN
}

// History returns the moves played so far.
func (s *Session) History() []chess.FullMove {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.MoveHistory()
}

// FEN returns the current position.
func (s *Session) FEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.FEN()
}
