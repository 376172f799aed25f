package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/deskchess/internal/archive"
	"github.com/justinabrahms/deskchess/internal/chess"
)

// GameIndex is a live game as listed for spectators.
type GameIndex struct {
	GameID    string              `json:"gameId"`
	White     string              `json:"white"`
	Black     string              `json:"black"`
	Status    chess.GameStatus    `json:"status"`
	Turn      string              `json:"turn"`
	MoveCount int                 `json:"moveCount"`
	Watchers  int                 `json:"watchers"`
	Material  chess.MaterialCount `json:"material"`
	ArchiveID string              `json:"archiveId,omitempty"`
}

// ListGamesHandler returns the live games, oldest first.
func (s *Service) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	games := []GameIndex{}
	for _, g := range s.games.All() {
		st := g.Session.State()
		g.mu.Lock()
		archiveID := g.archiveID
		g.mu.Unlock()
		games = append(games, GameIndex{
			GameID:    g.ID,
			White:     st.White,
			Black:     st.Black,
			Status:    st.Status,
			Turn:      st.Turn,
			MoveCount: len(st.Moves),
			Watchers:  s.hub.Watchers(g.ID),
			Material:  st.Material,
			ArchiveID: archiveID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"total": len(games),
	})
}

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 100
)

// ListArchiveHandler returns the most recently finished games.
func (s *Service) ListArchiveHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "Archive disabled", http.StatusNotFound)
		return
	}

	limit := defaultArchiveLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}

	entries, err := s.archive.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list archived games")
		http.Error(w, "Failed to list games", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": entries,
		"total": len(entries),
	})
}

func (s *Service) GetArchivedHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "Archive disabled", http.StatusNotFound)
		return
	}

	id := mux.Vars(r)["id"]
	entry, err := s.archive.Get(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("archiveID", id).Msg("Failed to fetch archived game")
		http.Error(w, "Failed to fetch game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
