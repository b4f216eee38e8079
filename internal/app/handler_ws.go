package app

import (
	"FS26Rx/internal/model"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait = 2 * time.Second
	wsQueueSize = 32
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// wsClient is one live feed connection. Messages are queued on send and written by
// the client's own writer goroutine.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub tracks websocket clients of the live feed.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	log     zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{clients: map[*wsClient]struct{}{}, log: logger}
}

// add registers conn and starts its writer.
func (h *hub) add(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, wsQueueSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go h.writeLoop(c)
	return c
}

// remove unregisters c, stops its writer and closes the connection. Safe to call twice.
func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		if err := c.conn.Close(); err != nil {
			h.log.Debug().Err(err).Msg("websocket close")
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) writeLoop(c *wsClient) {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Str("remote", c.conn.RemoteAddr().String()).Msg("websocket write failed")
			h.remove(c)
			return
		}
	}
}

// broadcast queues r for every client without blocking. A client whose queue is full
// is disconnected.
func (h *hub) broadcast(r model.Report) {
	b, err := json.Marshal(r)
	if err != nil {
		h.log.Error().Err(err).Msg("encode report")
		return
	}
	var slow []*wsClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()
	for _, c := range slow {
		h.log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client too slow, dropped")
		h.remove(c)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

// handleWS upgrades to a websocket and registers the client for the live feed.
func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	c := a.hub.add(conn)
	a.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go func() {
		defer a.hub.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
