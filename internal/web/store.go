package web

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justinabrahms/deskchess/internal/game"
)

// LiveGame is a session being played through the API.
type LiveGame struct {
	ID      string
	Session *game.Session
	Created time.Time

	// mu serializes requests on the game so a seat check and the action it
	// guards happen atomically.
	mu         sync.Mutex
	lastActive time.Time
	archived   bool
	archiveID  string
}

// GameStore holds the live games of this process.
type GameStore struct {
	games map[string]*LiveGame
	mu    sync.RWMutex
	now   func() time.Time
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*LiveGame),
		now:   time.Now,
	}
}

// NewID returns an unused game ID.
func (s *GameStore) NewID() string {
	return uuid.NewString()
}

// Add stores a session under id.
func (s *GameStore) Add(id string, session *game.Session) *LiveGame {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	g := &LiveGame{ID: id, Session: session, Created: now, lastActive: now}
	s.games[id] = g
	return g
}

// Get returns the game with id and marks it active.
func (s *GameStore) Get(id string) (*LiveGame, bool) {
	s.mu.RLock()
	g, ok := s.games[id]
	s.mu.RUnlock()
	if ok {
		g.mu.Lock()
		g.lastActive = s.now()
		g.mu.Unlock()
	}
	return g, ok
}

func (s *GameStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// All returns every live game, oldest first.
func (s *GameStore) All() []*LiveGame {
	s.mu.RLock()
	games := make([]*LiveGame, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool { return games[i].Created.Before(games[j].Created) })
	return games
}

func (s *GameStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// CleanupIdle removes games nobody touched for longer than maxIdle and
// returns how many were dropped.
func (s *GameStore) CleanupIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, g := range s.games {
		g.mu.Lock()
		idle := now.Sub(g.lastActive) > maxIdle
		g.mu.Unlock()
		if idle {
			delete(s.games, id)
			removed++
		}
	}
	return removed
}
