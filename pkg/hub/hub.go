package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-driverwatch/internal/log"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards clients for ClientCount
	mu sync.RWMutex

	running chan struct{} // closed once Run starts
	once    sync.Once
	done    chan struct{} // closed when Run returns
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		running:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Name returns the hub's name.
func (h *Hub) Name() string {
	return h.name
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.once.Do(func() { close(h.running) })
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full: the client is too slow, drop it.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "type", msg.Type.String())
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	msg, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts binary data (camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether Run has started and not yet returned.
func (h *Hub) IsRunning() bool {
	select {
	case <-h.running:
	default:
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
