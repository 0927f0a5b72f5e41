package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/mediascribe/logger"
)

type broadcast struct {
	pattern string
	ev      Event
}

// Hub fans job events out to connected clients. Membership changes and
// broadcasts are serialized through Run, so a client registered before a
// broadcast is queued always receives it, or is evicted as lagged. Nothing
// is dropped silently.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	stopped bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	log        *logger.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    map[string]*Client{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, clientBuffer),
		done:       make(chan struct{}),
		log:        logger.Get("sse"),
	}
}

// Run blocks until Stop, then closes every client.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.events)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id))
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case b := <-h.broadcast:
			h.deliver(b)
		}
	}
}

// Stop is idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister closes the client's channel unless the hub already did.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues ev for every client whose ID matches pattern, in
// filepath.Match syntax such as "job:abc:*". It is a no-op after Stop.
func (h *Hub) Broadcast(pattern string, ev Event) {
	select {
	case h.broadcast <- broadcast{pattern: pattern, ev: ev}:
	case <-h.done:
	}
}

// deliver evicts clients whose buffer is full. Their stream ends and a
// reconnect replays the job history.
func (h *Hub) deliver(b broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for id, c := range h.clients {
		ok, err := filepath.Match(b.pattern, id)
		if err != nil {
			h.log.Error("bad broadcast pattern", logger.Fields("pattern", b.pattern, logger.FieldError, err.Error()))
			return
		}
		if !ok {
			continue
		}
		if c.Send(b.ev) {
			sent++
			continue
		}
		c.lagged.Store(true)
		h.remove(c)
		h.log.Warn("client lagged, closing stream", logger.Fields("client_id", id))
	}
	h.log.Debug("broadcast delivered", logger.Fields("pattern", b.pattern, "sent", sent))
}

// remove is a no-op when c was already replaced or removed. Callers hold mu.
func (h *Hub) remove(c *Client) {
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
		close(c.events)
		h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "total_clients", len(h.clients)))
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is the registered client with id, or nil.
func (h *Hub) Client(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

var _ Broadcaster = (*Hub)(nil)
