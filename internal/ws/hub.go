package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/order"
)

// EventOrderUpdated tells the browser to refetch an order. The payload is a
// hint only; the browser always reloads from the gateway.
const EventOrderUpdated = "order.updated"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type orderHint struct {
	OrderID       string `json:"orderId"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
}

// roomEvent routes one event to every client in any of the rooms.
type roomEvent struct {
	Rooms []string
	Event Event
}

// CustomerRoom is the room for every session of a customer.
func CustomerRoom(email string) string { return "customer:" + email }

// ChefRoom is the room for every session of a chef.
func ChefRoom(userID string) string { return "chef:" + userID }

// MealRoom is the room for the chef publishing a meal.
func MealRoom(mealID string) string { return "meal:" + mealID }

// MealLister returns the IDs of the meals a chef publishes.
type MealLister func(ctx context.Context, s auth.Subject) ([]string, error)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithChefMeals joins chefs to the rooms of their meals when they connect.
func WithChefMeals(f MealLister) HubOption {
	return func(h *Hub) { h.chefMeals = f }
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *roomEvent

	// closed when Run returns
	done chan struct{}

	chefMeals MealLister

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.rooms {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			sent := make(map[*Client]bool)
			for _, room := range event.Rooms {
				for client := range h.rooms[room] {
					if sent[client] {
						continue
					}
					sent[client] = true
					select {
					case client.send <- message:
					default:
						// send buffer full
						h.drop(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from all of its rooms and closes its send channel.
// Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	registered := false
	for _, room := range client.rooms {
		clients, ok := h.rooms[room]
		if !ok || !clients[client] {
			continue
		}
		registered = true
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if registered {
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*Client]bool)
	for _, clients := range h.rooms {
		for c := range clients {
			seen[c] = true
		}
	}
	for c := range seen {
		h.drop(c)
	}
}

// Broadcast sends an event to all clients in the given rooms. It never blocks;
// when the queue is full the event is dropped and clients catch up on their
// next refetch.
func (h *Hub) Broadcast(event Event, rooms ...string) {
	select {
	case h.broadcast <- &roomEvent{Rooms: rooms, Event: event}:
	default:
		log.Printf("ERROR: websocket broadcast queue full, dropping %s", event.Type)
	}
}

// NotifyOrder tells the customer and the chef of o to refetch it.
func (h *Hub) NotifyOrder(o order.Order) {
	payload, err := json.Marshal(orderHint{
		OrderID:       o.ID,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
	})
	if err != nil {
		return
	}
	rooms := []string{CustomerRoom(o.CustomerEmail)}
	if o.ChefID != "" {
		rooms = append(rooms, ChefRoom(o.ChefID))
	}
	if o.MealID != "" {
		rooms = append(rooms, MealRoom(o.MealID))
	}
	h.Broadcast(Event{Type: EventOrderUpdated, Payload: payload}, rooms...)
}
