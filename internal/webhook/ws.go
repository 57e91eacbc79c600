package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ngocminh-dev/wareply/internal/bus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// wsClient is one connected event-feed subscriber.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue drops the event if the client is gone or slow.
func (c *wsClient) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// handleWebSocket upgrades the connection and streams bus events to
// the client until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		conn.Close()
	}()

	go client.writePump()

	// Inbound frames are ignored; reading only detects disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) registerClient(c *wsClient) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	s.events.Subscribe(c.id, func(event bus.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		c.enqueue(data)
	})
	slog.Info("ws client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *wsClient) {
	s.events.Unsubscribe(c.id)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	c.close()
	slog.Info("ws client disconnected", "id", c.id)
}
