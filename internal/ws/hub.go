package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
)

// Event represents a WebSocket event sent to authoring clients.
type Event struct {
	Type      string      `json:"type"` // "process_changed"
	Action    string      `json:"action"`
	ProcessID string      `json:"process_id"`
	Data      interface{} `json:"data"`
}

type envelope struct {
	processID string
	data      []byte
}

// Hub maintains the set of active WebSocket clients and broadcasts process
// changes to the clients watching them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws.hub")),
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.watches(env.processID) {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ProcessChanged broadcasts a process mutation. It never blocks: when the
// queue is full the event is dropped.
func (h *Hub) ProcessChanged(action string, process *entity.Process) {
	data, err := json.Marshal(&Event{
		Type:      "process_changed",
		Action:    action,
		ProcessID: process.ID,
		Data:      process,
	})
	if err != nil {
		h.log.Warn("marshal event", sl.Err(err))
		return
	}
	select {
	case h.broadcast <- envelope{processID: process.ID, data: data}:
	default:
		h.log.With(
			slog.String("process_id", process.ID),
			slog.String("action", action),
		).Warn("broadcast queue full")
	}
}

// clientEvent represents an incoming WebSocket message from a client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and applies an incoming client message.
// A "watch" message narrows the client to one process; an empty id
// watches every process.
func (h *Hub) HandleClientMessage(client *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case "watch":
		var data struct {
			ProcessID string `json:"process_id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			h.log.Warn("failed to parse watch data", sl.Err(err))
			return
		}
		client.watch(data.ProcessID)
		h.log.With(
			slog.String("username", client.username),
			slog.String("process_id", data.ProcessID),
		).Debug("client watch")
	}
}
