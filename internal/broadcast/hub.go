// Package broadcast pushes live order and dashboard updates to connected
// WebSocket clients. Nothing is queued for clients that are not connected.
package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
)

const (
	EventClientConnected    = "client:connected"
	EventClientDisconnected = "client:disconnected"
	EventOrderCreated       = "order:created"
	EventOrderStatusChanged = "order:status-changed"
	EventOrderCompleted     = "order:completed"
	EventDashboardMetrics   = "dashboard:metrics"
	EventKDSUpdate          = "kds:update"
)

const defaultClientSendBuffer = 64

type Message struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type Client struct {
	ID   string
	send chan []byte
}

func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientSendBuffer
	}
	return &Client{ID: id, send: make(chan []byte, buffer)}
}

// Messages is closed when the hub drops the client.
func (c *Client) Messages() <-chan []byte { return c.send }

type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
}

func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: m,
		now:     time.Now,
		clients: map[string]*Client{},
		rooms:   map[string]map[string]struct{}{},
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.LiveClients(n)
	h.log.Info("live client connected", "client_id", c.ID, "clients", n)
	h.Broadcast(EventClientConnected, map[string]string{"clientId": c.ID})
}

// Unregister removes the client from the registry and every room and closes
// its channel. Calling it twice is harmless.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		for room, members := range h.rooms {
			delete(members, id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.metrics.LiveClients(n)
	h.log.Info("live client disconnected", "client_id", id, "clients", n)
	h.Broadcast(EventClientDisconnected, map[string]string{"clientId": id})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) JoinRoom(clientID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientID]; !ok {
		return fmt.Errorf("live client %s %w", clientID, apperr.ErrNotFound)
	}
	members, ok := h.rooms[room]
	if !ok {
		members = map[string]struct{}{}
		h.rooms[room] = members
	}
	members[clientID] = struct{}{}
	return nil
}

func (h *Hub) LeaveRoom(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, clientID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends to every connected client. It never blocks: a client whose
// buffer is full is disconnected.
func (h *Hub) Broadcast(event string, data any) {
	h.deliver(event, data, func() []*Client {
		out := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			out = append(out, c)
		}
		return out
	})
}

func (h *Hub) BroadcastToRoom(room, event string, data any) {
	h.deliver(event, data, func() []*Client {
		members := h.rooms[room]
		out := make([]*Client, 0, len(members))
		for id := range members {
			if c, ok := h.clients[id]; ok {
				out = append(out, c)
			}
		}
		return out
	})
}

// SendToClient reports whether the client was connected and had room for the
// message.
func (h *Hub) SendToClient(clientID, event string, data any) bool {
	delivered := false
	h.deliver(event, data, func() []*Client {
		if c, ok := h.clients[clientID]; ok {
			delivered = true
			return []*Client{c}
		}
		return nil
	})
	return delivered && h.connected(clientID)
}

func (h *Hub) OrderCreated(order any) {
	h.Broadcast(EventOrderCreated, map[string]any{"order": order})
}

func (h *Hub) OrderStatusChanged(order any, oldStatus, newStatus string) {
	h.Broadcast(EventOrderStatusChanged, map[string]any{
		"order":     order,
		"oldStatus": oldStatus,
		"newStatus": newStatus,
	})
}

func (h *Hub) OrderCompleted(order any) {
	h.Broadcast(EventOrderCompleted, map[string]any{"order": order})
}

func (h *Hub) DashboardMetrics(m any) {
	h.Broadcast(EventDashboardMetrics, map[string]any{"metrics": m})
}

func (h *Hub) KDSUpdate(orders any) {
	h.Broadcast(EventKDSUpdate, map[string]any{"orders": orders})
}

func (h *Hub) connected(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[clientID]
	return ok
}

// deliver encodes once and hands the payload to every target chosen under the
// read lock. Slow clients are collected and dropped after the lock is released.
func (h *Hub) deliver(event string, data any, targets func() []*Client) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	chosen := targets()
	if len(chosen) == 0 {
		h.mu.RUnlock()
		return
	}

	payload, err := json.Marshal(Message{Event: event, Data: data, Timestamp: h.now().UTC()})
	if err != nil {
		h.mu.RUnlock()
		h.log.Error("encode live message failed", "event", event, "err", err)
		return
	}

	var slow []string
	for _, c := range chosen {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c.ID)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.metrics.LiveDropped()
		h.log.Warn("live client too slow, dropping", "client_id", id, "event", event)
		h.Unregister(id)
	}
}
