// Package realtime broadcasts appointment lifecycle events to connected
// WebSocket clients. Delivery is at-most-once and fire-and-forget: a slow
// consumer's events are dropped rather than ever blocking the sender.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is the wire format of a broadcast notification.
type Event struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Client represents a single WebSocket connection.
type Client struct {
	ID   string
	Send chan []byte
	conn *websocket.Conn
}

// Hub is the central connection manager. All operations are thread-safe.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *logrus.Logger
}

// NewHub creates a Hub ready to manage WebSocket clients.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit broadcasts an event to every connected client. It never blocks: a
// client whose buffer is full simply misses the event.
func (h *Hub) Emit(event string, payload interface{}) {
	data, err := json.Marshal(Event{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Warn("realtime: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleConnect upgrades an HTTP request to a WebSocket connection and
// starts the read/write pumps for the new client.
func (h *Hub) HandleConnect(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("realtime: websocket upgrade failed")
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
		conn: ws,
	}
	h.Register(client)
	h.log.WithField("client", client.ID).Debug("realtime: client connected")

	go h.writePump(client)
	go h.readPump(client)
}

// readPump drains inbound messages until the connection drops. Clients do
// not send anything the server acts on; reading keeps the connection alive
// and detects disconnects.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.conn.Close()
		h.log.WithField("client", client.ID).Debug("realtime: client disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued events to the WebSocket connection.
func (h *Hub) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
