package hub

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

// AllSlots is the slot filter of a client that listens to every pad.
const AllSlots = -1

// Hub manages WebSocket clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		h.remove(c)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Send queues a message for one client. It is dropped if the client is
// gone or its buffer is full.
func (h *Hub) Send(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// remove closes the client's send channel once. Callers hold no lock.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client.
func (h *Hub) Broadcast(msg []byte) {
	h.BroadcastToSlot(msg, AllSlots)
}

// BroadcastToSlot sends a message to the clients following slot, plus the
// ones following every slot. AllSlots reaches everyone.
func (h *Hub) BroadcastToSlot(msg []byte, slot int) {
	h.broadcast(msg, func(c *Client) bool {
		return slot == AllSlots || c.follows(slot)
	})
}

// BroadcastEvent sends an event message to the clients following both its
// slot and its kind.
func (h *Hub) BroadcastEvent(msg []byte, slot int, kind gamepad.EventKind) {
	h.broadcast(msg, func(c *Client) bool {
		return c.follows(slot) && c.wants(kind)
	})
}

func (h *Hub) broadcast(msg []byte, to func(*Client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.closed || !to(client) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, disconnect
			go h.Unregister(client)
		}
	}
}

// Run starts the hub's main loop until ctx is done. Remaining clients are
// closed on the way out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected (total: %d)", n)

		case client := <-h.unregister:
			h.remove(client)
			log.Printf("Client disconnected (total: %d)", h.Len())

		case <-ctx.Done():
			close(h.done)
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				h.remove(client)
			}
			return nil
		}
	}
}
