package server

import (
	"log/slog"
	"sync"
)

// Message types pushed to the page.
const (
	MsgSnapshot = "snapshot"
	MsgEvent    = "event"
	MsgTimer    = "timer"
	MsgSubmit   = "submit"
)

// Message is the websocket envelope.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// clientBuffer bounds the messages queued for one websocket.
const clientBuffer = 128

// Hub fans messages out to every connected page. A client that falls
// behind is disconnected rather than allowed to stall the others.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	send chan Message
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register() *client {
	c := &client{send: make(chan Message, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Broadcast queues m for every client without blocking.
func (h *Hub) Broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.queue(c, m)
	}
}

// send queues m for one client if it is still connected.
func (h *Hub) send(c *client, m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.queue(c, m)
	}
}

// queue is called with h.mu held.
func (h *Hub) queue(c *client, m Message) {
	select {
	case c.send <- m:
	default:
		slog.Warn("server: websocket client too slow, disconnecting")
		delete(h.clients, c)
		c.close()
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
