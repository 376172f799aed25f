// Package web serves live games over HTTP and streams their events over
// websockets.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/deskchess/internal/archive"
	"github.com/justinabrahms/deskchess/internal/auth"
	"github.com/justinabrahms/deskchess/internal/chess"
	"github.com/justinabrahms/deskchess/internal/config"
	"github.com/justinabrahms/deskchess/internal/game"
	"github.com/justinabrahms/deskchess/internal/record"
)

type Service struct {
	games   *GameStore
	hub     *Hub
	issuer  *auth.Issuer
	archive archive.Store
	config  config.GameConfig
	now     func() time.Time
}

// NewService wires the API. store may be nil, in which case finished games
// are not archived.
func NewService(cfg config.GameConfig, issuer *auth.Issuer, store archive.Store, hub *Hub) *Service {
	return &Service{
		games:   NewGameStore(),
		hub:     hub,
		issuer:  issuer,
		archive: store,
		config:  cfg,
		now:     time.Now,
	}
}

// Router returns the API routes behind the CORS middleware.
func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(CORS)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods("GET")
	api.HandleFunc("/games", s.CreateGameHandler).Methods("POST")
	api.HandleFunc("/games", s.ListGamesHandler).Methods("GET")
	api.HandleFunc("/games/import", s.ImportGameHandler).Methods("POST")
	api.HandleFunc("/games/{id}", s.GetGameHandler).Methods("GET")
	api.HandleFunc("/games/{id}/moves", s.ValidMovesHandler).Methods("GET")
	api.HandleFunc("/games/{id}/moves", s.MakeMoveHandler).Methods("POST")
	api.HandleFunc("/games/{id}/promotion", s.PromotionHandler).Methods("POST")
	api.HandleFunc("/games/{id}/back", s.StepBackHandler).Methods("POST")
	api.HandleFunc("/games/{id}/resign", s.ResignHandler).Methods("POST")
	api.HandleFunc("/games/{id}/pgn", s.PGNHandler).Methods("GET")
	api.HandleFunc("/games/{id}/save", s.SaveFileHandler).Methods("GET")
	api.HandleFunc("/archive", s.ListArchiveHandler).Methods("GET")
	api.HandleFunc("/archive/{id}", s.GetArchivedHandler).Methods("GET")
	// preflight requests are answered by the middleware
	api.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	router.HandleFunc("/ws", s.WebSocketHandler).Methods("GET")
	return router
}

// CORS allows browser UIs on other origins to use the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run advances game clocks and drops games idle for longer than maxIdle
// until ctx is done. A zero maxIdle keeps games forever.
func (s *Service) Run(ctx context.Context, tick, maxIdle time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	lastCleanup := s.now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			s.tick(ctx, now)
			if maxIdle > 0 && now.Sub(lastCleanup) >= maxIdle/4 {
				if n := s.games.CleanupIdle(maxIdle); n > 0 {
					log.Info().Int("removed", n).Msg("Dropped idle games")
				}
				lastCleanup = now
			}
		}
	}
}

// tick flags players out of time and archives the games that ended.
func (s *Service) tick(ctx context.Context, now time.Time) {
	for _, g := range s.games.All() {
		g.mu.Lock()
		if g.Session.Tick(now) {
			log.Info().Str("gameID", g.ID).Msg("Player ran out of time")
			s.settle(ctx, g)
		}
		g.mu.Unlock()
	}
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"games":  s.games.Len(),
	})
}

type ClockRequest struct {
	Initial   string `json:"initial"`
	Increment string `json:"increment"`
}

type CreateGameRequest struct {
	White string        `json:"white"`
	Black string        `json:"black"`
	FEN   string        `json:"fen,omitempty"`
	Clock *ClockRequest `json:"clock,omitempty"`
}

type CreateGameResponse struct {
	ID         string     `json:"id"`
	WhiteToken string     `json:"whiteToken"`
	BlackToken string     `json:"blackToken"`
	State      game.State `json:"state"`
}

func (s *Service) options(req CreateGameRequest) (game.Options, error) {
	opts := game.Options{
		WhiteName:      s.config.WhiteName,
		BlackName:      s.config.BlackName,
		ShowValidMoves: s.config.ShowValidMoves,
		TimeControl: game.TimeControl{
			Initial:   s.config.ClockInitial,
			Increment: s.config.ClockIncrement,
		},
		FEN: req.FEN,
		Now: s.now,
	}
	if req.White != "" {
		opts.WhiteName = req.White
	}
	if req.Black != "" {
		opts.BlackName = req.Black
	}
	if req.Clock != nil {
		tc, err := parseClock(*req.Clock)
		if err != nil {
			return opts, err
		}
		opts.TimeControl = tc
	}
	return opts, nil
}

func parseClock(req ClockRequest) (game.TimeControl, error) {
	var tc game.TimeControl
	var err error
	if req.Initial != "" {
		if tc.Initial, err = time.ParseDuration(req.Initial); err != nil {
			return tc, fmt.Errorf("invalid clock initial: %w", err)
		}
	}
	if req.Increment != "" {
		if tc.Increment, err = time.ParseDuration(req.Increment); err != nil {
			return tc, fmt.Errorf("invalid clock increment: %w", err)
		}
	}
	if tc.Initial < 0 || tc.Increment < 0 {
		return tc, fmt.Errorf("clock durations must not be negative")
	}
	return tc, nil
}

func (s *Service) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	opts, err := s.options(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := s.games.NewID()
	session, err := game.New(opts, s.hub.Listener(id))
	if err != nil {
		log.Error().Err(err).Str("fen", req.FEN).Msg("Failed to create game")
		http.Error(w, fmt.Sprintf("Invalid game: %s", err), http.StatusBadRequest)
		return
	}
	s.register(w, id, session, http.StatusCreated)
}

// register stores a new session and answers with its seat tokens.
func (s *Service) register(w http.ResponseWriter, id string, session *game.Session, status int) {
	resp := CreateGameResponse{ID: id, State: session.State()}
	var err error
	if resp.WhiteToken, err = s.issuer.Issue(id, chess.White); err == nil {
		resp.BlackToken, err = s.issuer.Issue(id, chess.Black)
	}
	if err != nil {
		log.Error().Err(err).Str("gameID", id).Msg("Failed to issue seat tokens")
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}

	s.games.Add(id, session)
	log.Info().Str("gameID", id).Str("white", resp.State.White).Str("black", resp.State.Black).Msg("Game created")
	writeJSON(w, status, resp)
}

// ImportGameHandler starts a live game from a PGN or a save file, picked by
// the request's content type.
func (s *Service) ImportGameHandler(w http.ResponseWriter, r *http.Request) {
	var (
		g   record.Game
		err error
	)
	switch ct := r.Header.Get("Content-Type"); {
	case strings.HasPrefix(ct, "application/cbor"):
		g, err = record.Decode(r.Body)
	default:
		g, err = record.ParsePGN(r.Body)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid game: %s", err), http.StatusBadRequest)
		return
	}

	opts, _ := s.options(CreateGameRequest{})
	id := s.games.NewID()
	session, err := record.Replay(g, opts, s.hub.Listener(id))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid game: %s", err), http.StatusBadRequest)
		return
	}
	s.register(w, id, session, http.StatusCreated)
}

// lookup fetches the game named in the route, answering 404 itself.
func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (*LiveGame, bool) {
	id := mux.Vars(r)["id"]
	g, ok := s.games.Get(id)
	if !ok {
		http.Error(w, "Game not found", http.StatusNotFound)
	}
	return g, ok
}

func (s *Service) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.Session.State())
}

type ValidMovesResponse struct {
	From  string   `json:"from"`
	Moves []string `json:"moves"`
}

func (s *Service) ValidMovesHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	from, err := chess.ParsePos(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "Missing or invalid from parameter", http.StatusBadRequest)
		return
	}

	resp := ValidMovesResponse{From: from.String(), Moves: []string{}}
	for _, m := range g.Session.ValidMoves(from) {
		resp.Moves = append(resp.Moves, m.To.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// seat returns the side the request's bearer token holds in g.
func (s *Service) seat(r *http.Request, g *LiveGame) (chess.Side, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	seat, err := s.issuer.Verify(token)
	if err != nil {
		return chess.White, err
	}
	if seat.Game != g.ID {
		return chess.White, auth.ErrWrongSeat
	}
	return seat.Side, nil
}

// authorize checks the request holds a seat in g and, when mustMove is
// set, that it is that seat's turn. It answers the request itself on
// failure. The caller must hold g.mu.
func (s *Service) authorize(w http.ResponseWriter, r *http.Request, g *LiveGame, mustMove bool) (chess.Side, bool) {
	side, err := s.seat(r, g)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		http.Error(w, "Missing or invalid seat token", http.StatusUnauthorized)
		return side, false
	case err != nil:
		http.Error(w, "Token does not hold a seat in this game", http.StatusForbidden)
		return side, false
	}
	if mustMove {
		turn, _ := chess.ParseSide(g.Session.State().Turn)
		if turn != side {
			http.Error(w, "Not your turn", http.StatusForbidden)
			return side, false
		}
	}
	return side, true
}

type MakeMoveRequest struct {
	// Move is a coordinate move such as "e2e4" or "e7e8q". When empty the
	// move is built from From, To and Promotion.
	Move      string `json:"move,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

type MoveResponse struct {
	Move  string     `json:"move"`
	State game.State `json:"state"`
}

func (s *Service) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	move := req.Move
	if move == "" {
		move = req.From + req.To + req.Promotion
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := s.authorize(w, r, g, true); !ok {
		return
	}

	played, err := g.Session.MoveString(move)
	s.settle(r.Context(), g)
	if err != nil {
		log.Info().Err(err).Str("gameID", g.ID).Str("move", move).Msg("Move rejected")
		writeGameError(w, err)
		return
	}

	log.Info().Str("gameID", g.ID).Str("move", played.String()).Msg("Move played")
	writeJSON(w, http.StatusOK, MoveResponse{Move: played.String(), State: g.Session.State()})
}

type PromotionRequest struct {
	Piece string `json:"piece"`
}

func (s *Service) PromotionHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req PromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := s.authorize(w, r, g, true); !ok {
		return
	}

	played, err := g.Session.Promote(chess.ParsePromotion(strings.ToLower(req.Piece)))
	s.settle(r.Context(), g)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Move: played.String(), State: g.Session.State()})
}

func (s *Service) StepBackHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	side, ok := s.authorize(w, r, g, false)
	if !ok {
		return
	}

	if err := g.Session.StepBack(); err != nil {
		writeGameError(w, err)
		return
	}
	// a reopened game is archived again once it ends
	g.archived = false
	log.Info().Str("gameID", g.ID).Str("by", side.String()).Msg("Move taken back")
	writeJSON(w, http.StatusOK, g.Session.State())
}

func (s *Service) ResignHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	side, ok := s.authorize(w, r, g, false)
	if !ok {
		return
	}

	if err := g.Session.Resign(side); err != nil {
		writeGameError(w, err)
		return
	}
	s.settle(r.Context(), g)
	writeJSON(w, http.StatusOK, g.Session.State())
}

func (s *Service) PGNHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	pgn, err := record.PGN(record.FromSession(g.Session))
	if err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to export PGN")
		http.Error(w, "Failed to export PGN", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	_, _ = w.Write([]byte(pgn))
}

func (s *Service) SaveFileHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.chess"`, g.ID))
	if err := record.Encode(w, record.FromSession(g.Session)); err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to encode save file")
	}
}

// settle archives g once it has ended. The caller must hold g.mu.
func (s *Service) settle(ctx context.Context, g *LiveGame) {
	if s.archive == nil || g.archived {
		return
	}
	if status, _ := g.Session.Status(); status == chess.StatusActive {
		return
	}

	entry, err := archive.NewEntry(record.FromSession(g.Session))
	if err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to build archive entry")
		return
	}
	if err := s.archive.Save(ctx, &entry); err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to archive game")
		return
	}
	g.archived = true
	g.archiveID = entry.ID
	log.Info().Str("gameID", g.ID).Str("archiveID", entry.ID).Str("status", string(entry.Status)).Msg("Game archived")
}

// writeGameError maps session errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrIllegalMove),
		errors.Is(err, game.ErrInvalidPromotion):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrPromotionPending),
		errors.Is(err, game.ErrNoPromotion),
		errors.Is(err, game.ErrNothingToUndo):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
