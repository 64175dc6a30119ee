// Package network streams engine events to WebSocket clients.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/events"
)

// Hub maintains the set of active clients and broadcasts engine events to
// them. Slow clients are dropped rather than backpressuring the engine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHub initializes a new WebSocket hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST layer handles origin policy via CORS; the stream is
			// read-only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("service", "network").Logger(),
	}
}

// Run starts the hub's main loop to handle client connections and
// broadcasts. Call in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Info().Msg("WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Info().Msg("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes an engine event and queues it for all clients.
func (h *Hub) BroadcastEvent(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to serialize event for broadcast")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("event_type", string(event.Type)).Msg("Broadcast queue full, event dropped")
	}
}

// SubscribeBus pipes every bus event into the hub. Call in a goroutine after
// Run is started.
func (h *Hub) SubscribeBus(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				h.BroadcastEvent(event)
			}
		}
	}()
}

// ServeWS upgrades an HTTP request to a WebSocket connection and attaches it
// to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client := NewClient(h, conn)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
