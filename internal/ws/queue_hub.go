package ws

import (
	"encoding/json"
	"sync"
)

// Client is a single queue-feed connection.
type Client struct {
	Send   chan []byte
	hub    *QueueHub
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// send delivers without blocking. The mutex orders delivery against Close, so
// a disconnecting client drops the message instead of panicking the sender.
func (c *Client) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// QueueHub fans the latest ranked-queue snapshot out to connected clients.
// The snapshot source stays poll-based; the hub only rebroadcasts what the
// poller already fetched.
type QueueHub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	snapshot []byte // last published payload, sent to newly connected clients
}

func NewQueueHub() *QueueHub {
	return &QueueHub{clients: make(map[*Client]struct{})}
}

func (h *QueueHub) Register(c *Client) {
	h.mu.Lock()
	c.hub = h
	h.clients[c] = struct{}{}
	last := h.snapshot
	h.mu.Unlock()
	if last != nil {
		c.send(last)
	}
}

func (h *QueueHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Publish broadcasts a fresh snapshot to every connected client. Slow clients
// miss intermediate snapshots rather than blocking the poller.
func (h *QueueHub) Publish(snapshot interface{}) {
	data, err := json.Marshal(map[string]interface{}{"type": "queue", "queue": snapshot})
	if err != nil {
		return
	}
	h.mu.Lock()
	h.snapshot = data
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.send(data)
	}
}

func (h *QueueHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
