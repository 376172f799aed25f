package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/deskchess/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub fans game updates out to the websocket clients watching each game.
type Hub struct {
	// Registered clients by game ID
	gameClients map[string]map[*Client]bool

	broadcast  chan GameUpdate
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// Client is one websocket connection watching a game.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
	// hello is queued as soon as the client is registered
	hello []byte
}

// GameUpdate is the message sent to watchers.
type GameUpdate struct {
	GameID string      `json:"gameId"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		gameClients: make(map[string]map[*Client]bool),
		broadcast:   make(chan GameUpdate, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.gameClients[client.gameID] == nil {
				h.gameClients[client.gameID] = make(map[*Client]bool)
			}
			h.gameClients[client.gameID][client] = true
			h.mu.Unlock()
			if client.hello != nil {
				client.send <- client.hello
			}

			log.Info().Str("gameID", client.gameID).Msg("Client connected to game")

		case client := <-h.unregister:
			h.remove(client)
			log.Info().Str("gameID", client.gameID).Msg("Client disconnected from game")

		case update := <-h.broadcast:
			message, err := json.Marshal(update)
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal game update")
				continue
			}

			h.mu.RLock()
			var slow []*Client
			for client := range h.gameClients[update.GameID] {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				log.Warn().Str("gameID", client.gameID).Msg("Dropping slow websocket client")
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.gameClients[client.gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.gameClients, client.gameID)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.gameClients {
		for client := range clients {
			close(client.send)
		}
		delete(h.gameClients, id)
	}
}

// Watchers returns the number of clients connected to a game.
func (h *Hub) Watchers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.gameClients[gameID])
}

// BroadcastGameUpdate queues an update for every client watching the game.
// It never blocks; updates are dropped when the hub is backed up.
func (h *Hub) BroadcastGameUpdate(update GameUpdate) {
	select {
	case h.broadcast <- update:
	default:
		log.Warn().Str("gameID", update.GameID).Msg("Broadcast channel full, dropping update")
	}
}

// Listener forwards the events of one game's session to its watchers.
func (h *Hub) Listener(gameID string) game.Listener {
	return game.ListenerFunc(func(e game.Event) {
		h.BroadcastGameUpdate(GameUpdate{GameID: gameID, Type: string(e.Type), Data: e})
	})
}

// WebSocketHandler upgrades GET /ws?gameId=... and streams the game's
// updates. The first message is the current state.
func (s *Service) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "Missing gameId parameter", http.StatusBadRequest)
		return
	}
	g, ok := s.games.Get(gameID)
	if !ok {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	hello, err := json.Marshal(GameUpdate{GameID: gameID, Type: "state", Data: g.Session.State()})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal game state")
		http.Error(w, "Failed to encode game", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
		hello:  hello,
	}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client messages and notices the connection closing.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump sends queued messages, one per websocket frame, and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
