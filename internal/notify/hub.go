package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeWait bounds how long a broadcast write may block per client.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans events out to every connected websocket client.
type Hub struct {
	logger    *zap.Logger
	broadcast chan Event

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// ensure Hub implements the sink interface
var _ Sink = (*Hub)(nil)

// NewHub creates a Hub. Run must be started for events to flow.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:    logger,
		broadcast: make(chan Event, 64),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Publish queues an event for broadcast, dropping it when the queue is
// full so a slow consumer never stalls the trading loop.
func (h *Hub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Dropping event, broadcast queue full", zap.String("type", event.Type))
	}
}

// Run delivers queued events until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(event); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Websocket client connected", zap.Int("total_clients", total))

	// Reader loop: incoming frames are discarded, its only job is
	// detecting the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				h.logger.Info("Websocket client disconnected")
				return
			}
		}
	}()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
		delete(h.clients, conn)
	}
}
