// Package webui streams decoded bridge events to browser clients over
// a websocket, so a LAN tool (or the ui/wasm dashboard) can watch a
// print job land live instead of tailing a capture file.
package webui

import "sync"

// BackpressurePolicy controls what happens when a client's outbound
// queue is full.
type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

// Client is one connected websocket viewer.
type Client struct {
	Out       chan []byte
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the client is done; idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Closed) })
}

// Hub fans a stream of encoded bridge events out to every connected
// client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	Policy  BackpressurePolicy
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Remove unregisters and closes a client. Safe to call more than once.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Broadcast sends frame to every connected client, honoring Policy
// when a client's queue is full.
func (h *Hub) Broadcast(frame []byte) {
	for _, c := range h.snapshot() {
		select {
		case c.Out <- frame:
		default:
			if h.Policy == PolicyKick {
				c.Close()
			}
		}
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
