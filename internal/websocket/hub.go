package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/services/visits"
)

// Hub maintains the set of subscribed clients and fans out visit events
type Hub struct {
	// Registered clients map: connection ID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu  sync.RWMutex
	log *zap.Logger
}

var _ visits.Publisher = (*Hub)(nil)

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("event subscriber connected", zap.String("conn", client.ID), zap.String("user", client.caller.Username))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("event subscriber disconnected", zap.String("conn", client.ID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishVisit sends ev to every subscriber allowed to see the visit. Field
// agents only receive events for visits they manage. Subscribers whose
// buffer is full miss the event.
func (h *Hub) PublishVisit(ev visits.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to marshal visit event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.caller.Role.OwnVisitsOnly() && ev.Visit.ManagerID != client.caller.ExternalKey() {
			continue
		}
		select {
		case client.send <- msg:
		default:
			h.log.Warn("dropping visit event for slow subscriber", zap.String("conn", client.ID), zap.String("visit", ev.Visit.UUID))
		}
	}
}
