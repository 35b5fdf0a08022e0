package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Outgoing socket message types.
const (
	TypeConnected        = "connected"
	TypeStockUpdate      = "stock_update"
	TypeMonitoringStatus = "monitoring_status"
	TypeLogCleared       = "log_cleared"
	TypeCycleError       = "cycle_error"
	TypeTestChangeResult = "test_change_result"
	TypeError            = "error"
)

// Incoming socket message types.
const (
	TypeStartMonitoring = "start_monitoring"
	TypeStopMonitoring  = "stop_monitoring"
	TypeClearLog        = "clear_log"
	TypeRefresh         = "refresh"
	TypeTestChange      = "test_change"
)

// Envelope is the frame of every socket message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StockUpdate is broadcast after every completed cycle.
type StockUpdate struct {
	StockData []models.VariantRecord `json:"stock_data"`
	Changes   []models.ChangeEvent   `json:"changes"`
	Stats     models.Stats           `json:"stats"`
	Time      string                 `json:"time"`
}

// TestChangeResult carries a sample event so a user can check that alerts reach the page.
type TestChangeResult struct {
	Change  models.ChangeEvent `json:"change"`
	Message string             `json:"message"`
}

// MonitoringStatus reports the scheduler state.
type MonitoringStatus struct {
	Active   bool `json:"active"`
	Interval int  `json:"interval,omitempty"` // seconds
}

// Hub tracks the connected sockets and broadcasts cycle results to them.
// It implements notifier.Collaborator.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, now: time.Now, clients: make(map[*client]struct{})}
}

// Len returns the number of connected sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// OnCycleComplete broadcasts a stock_update.
func (h *Hub) OnCycleComplete(ctx context.Context, snap models.Snapshot, events []models.ChangeEvent, stats models.Stats) {
	if events == nil {
		events = []models.ChangeEvent{}
	}

	h.broadcast(ctx, TypeStockUpdate, StockUpdate{
		StockData: snap.Filter("", models.AvailabilityAll),
		Changes:   events,
		Stats:     stats,
		Time:      h.now().Format(time.TimeOnly),
	})
}

// OnCycleError broadcasts a cycle_error.
func (h *Hub) OnCycleError(ctx context.Context, err error) {
	h.broadcast(ctx, TypeCycleError, map[string]string{"error": err.Error()})
}

// Notify is a no-op: events reach sockets inside stock_update.
func (h *Hub) Notify(context.Context, models.ChangeEvent) {}

func (h *Hub) broadcast(ctx context.Context, msgType string, payload any) {
	frame, err := encode(msgType, payload)
	if err != nil {
		h.log.ErrorContext(ctx, "Failed to encode socket message", "op", "server.Hub.broadcast", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop it rather than block the cycle.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects every socket.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	return json.Marshal(Envelope{Type: msgType, Data: data})
}

// client is one socket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// reply queues a message for this socket only.
func (c *client) reply(msgType string, payload any) {
	frame, err := encode(msgType, payload)
	if err != nil {
		return
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()

	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// readPump dispatches incoming messages until the connection fails.
func (c *client) readPump(handle func(*client, Envelope)) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("Socket closed unexpectedly", "op", "server.readPump", "error", err)
			}
			return
		}
		handle(c, msg)
	}
}

// writePump forwards queued messages and keeps the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
