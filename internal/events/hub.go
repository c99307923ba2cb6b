package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/lorasim/internal/logging"
	"github.com/muurk/lorasim/internal/provision"
)

const (
	// sendBufferSize is the per-client outbound queue length
	sendBufferSize = 256

	// DefaultHistory is how many past events a new client is sent
	DefaultHistory = 512
)

// Hub manages WebSocket clients and broadcasts events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history [][]byte
	limit   int
	closed  bool
}

type client struct {
	send chan []byte
}

// NewHub creates a hub that replays up to DefaultHistory events to new clients.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		limit:   DefaultHistory,
	}
}

// Observer returns a provision.Observer that broadcasts every event.
func (h *Hub) Observer() provision.Observer {
	return func(ev provision.Event) {
		h.Broadcast(ev)
	}
}

// Broadcast encodes ev and queues it for every client. Slow clients whose
// queue is full are dropped rather than blocking the wizard.
func (h *Hub) Broadcast(ev provision.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.history = append(h.history, data)
	if len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("events: dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// register adds a client and preloads its queue with history.
func (h *Hub) register() *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := sendBufferSize
	if len(h.history) > size {
		size = len(h.history) + sendBufferSize
	}
	c := &client{send: make(chan []byte, size)}
	if h.closed {
		close(c.send)
		return c
	}
	for _, msg := range h.history {
		c.send <- msg
	}
	h.clients[c] = struct{}{}
	logging.Debug("Event client connected", zap.Int("clients", len(h.clients)))
	return c
}

// unregister removes a client. Only the call that removes it closes send.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Later broadcasts are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
