package web

import (
	"net/http"
	"sync"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	maxMessageBytes = 512
	sendBufferSize  = 8
)

// Hub pushes dashboard snapshots to connected websocket clients. Sends are
// non-blocking; a client that cannot keep up skips frames instead of
// stalling the broadcast.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[string]*wsClient
	closed  bool
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan *entity.DashboardSnapshot
}

// NewHub creates a new websocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger.WithComponent("ws-hub"),
		clients:  make(map[string]*wsClient),
	}
}

var _ service.SnapshotBroadcaster = (*Hub)(nil)

// HandleWS upgrades the request and registers the connection. The current
// snapshot is queued first so new clients render without waiting for the
// next refresh.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, snapshot *entity.DashboardSnapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan *entity.DashboardSnapshot, sendBufferSize),
	}
	client.send <- snapshot

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Websocket client connected",
		zap.String("client_id", client.id),
		zap.Int("clients", count))

	go h.writeLoop(client)
	go h.readLoop(client)
}

// BroadcastSnapshot queues a snapshot for every connected client
func (h *Hub) BroadcastSnapshot(snapshot *entity.DashboardSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for _, client := range h.clients {
		select {
		case client.send <- snapshot:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("Dropped snapshot for slow clients", zap.Int("count", dropped))
	}
}

// ClientCount reports the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new connections
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}

// remove unregisters a client. The send channel is only closed here and in
// Close, both under the hub lock, so broadcasts never race a close.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(client.send)
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()

	for snapshot := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(snapshot); err != nil {
			h.logger.Debug("Websocket write failed",
				zap.String("client_id", c.id),
				zap.Error(err))
			h.remove(c.id)
			return
		}
	}

	// Channel closed: the hub removed us, say goodbye cleanly.
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readLoop drains client frames so pings and close frames are processed.
// Inbound payloads carry no meaning for the dashboard.
func (h *Hub) readLoop(c *wsClient) {
	c.conn.SetReadLimit(maxMessageBytes)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c.id)
			return
		}
	}
}
