package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kiwari-pos/floor/internal/events"
)

// Rooms a screen can subscribe to. The floor room sees every event; the
// kitchen room only sees order events.
const (
	RoomFloor   = "floor"
	RoomKitchen = "kitchen"
)

// IsRoom reports whether name is a known room.
func IsRoom(name string) bool {
	return name == RoomFloor || name == RoomKitchen
}

func roomsFor(eventType string) []string {
	if strings.HasPrefix(eventType, "order.") {
		return []string{RoomFloor, RoomKitchen}
	}
	return []string{RoomFloor}
}

// ErrHubStopped is returned by Publish once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

type roomMessage struct {
	rooms   []string
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for _, room := range msg.rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- msg.message:
					default:
						// slow consumer
						h.drop(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// join hands c to the running hub. It reports false once Run has returned.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// drop removes client and closes its send channel. Caller holds mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Publish queues e for every room subscribed to its type. It blocks only
// while the broadcast buffer is full.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	message, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- roomMessage{rooms: roomsFor(e.Type), message: message}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of clients subscribed to room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
