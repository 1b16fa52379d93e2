// Package websocket pushes real-time sync notifications to connected family
// members. Broadcasts are family-scoped; a client only ever sees events from
// its own family.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is one sync notification.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub maintains the set of active clients, indexed by family.
type Hub struct {
	mu       sync.RWMutex
	families map[int64]map[*Client]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		families: make(map[int64]map[*Client]struct{}),
		logger:   logger,
	}
}

// Register adds a client to its family's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.families[c.familyID]
	if !ok {
		set = make(map[*Client]struct{})
		h.families[c.familyID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.families[c.familyID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.families, c.familyID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every connected client of one family.
func (h *Hub) Broadcast(familyID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.families[familyID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full; drop rather than block the broadcaster.
		}
	}
}

// ClientCount returns the number of connected clients for a family.
func (h *Hub) ClientCount(familyID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.families[familyID])
}
