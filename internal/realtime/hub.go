package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/pkg/config"
)

// Envelope is the wire frame pushed to clients.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type connMetrics interface {
	ClientConnected()
	ClientDisconnected()
}

type client struct {
	userID string
	conn   *websocket.Conn

	// writeMu serialises writes; gorilla connections allow one writer at
	// a time.
	writeMu sync.Mutex
}

func (c *client) send(env Envelope, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteJSON(env)
}

// Hub maps each user to at most one active websocket connection and
// delivers negotiation events to them. Delivery is at-most-once: events
// for users without an active connection are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	cfg     config.RealtimeConfig
	metrics connMetrics
	logger  *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(cfg config.RealtimeConfig, metrics connMetrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Register attaches a connection for the user. A newer connection for the
// same user replaces the previous one, which gets closed.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	next := &client{userID: userID, conn: conn}

	h.mu.Lock()
	prev := h.clients[userID]
	h.clients[userID] = next
	h.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close()
	} else if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.logger.Info("client connected", zap.String("user_id", userID))
}

// Unregister detaches the connection if it is still the user's current one.
// A stale connection replaced by Register is ignored.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	current, ok := h.clients[userID]
	if ok && current.conn == conn {
		delete(h.clients, userID)
	} else {
		ok = false
	}
	h.mu.Unlock()

	if ok {
		if h.metrics != nil {
			h.metrics.ClientDisconnected()
		}
		h.logger.Info("client disconnected", zap.String("user_id", userID))
	}
}

// Notify delivers an event to the user's active connection. Offline users
// and write failures are logged and dropped; notification is a best-effort
// side channel and never fails the operation that triggered it.
func (h *Hub) Notify(userID string, event dto.SwapEvent, payload interface{}) {
	h.mu.RLock()
	target := h.clients[userID]
	h.mu.RUnlock()

	if target == nil {
		h.logger.Debug("notification dropped, user offline",
			zap.String("user_id", userID), zap.String("event", string(event)))
		return
	}

	env := Envelope{Type: string(event), Timestamp: time.Now().UTC(), Data: payload}
	if err := target.send(env, h.cfg.WriteTimeout); err != nil {
		h.logger.Warn("notification delivery failed",
			zap.String("user_id", userID), zap.String("event", string(event)), zap.Error(err))
	}
}

// IsOnline reports whether the user has an active connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// ConnectedUsers returns a snapshot of currently connected user ids.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// Serve runs the read pump for a registered connection until the peer goes
// away, then unregisters it. Inbound frames are protocol keepalive only;
// clients receive events, they do not send commands.
func (h *Hub) Serve(userID string, conn *websocket.Conn) {
	defer func() {
		h.Unregister(userID, conn)
		_ = conn.Close()
	}()

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}
	if h.cfg.PongTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		})
	}

	stop := make(chan struct{})
	defer close(stop)
	if h.cfg.PingInterval > 0 {
		go h.pingLoop(userID, conn, stop)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) pingLoop(userID string, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.logger.Debug("ping failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}
}
