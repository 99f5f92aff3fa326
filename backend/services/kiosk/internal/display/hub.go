package display

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/effects"
	"vendkiosk/backend/services/kiosk/internal/models"
)

// Hub tracks display connections and broadcasts render and sound intents to them.
// It remembers the last screen so a display that connects late starts in sync.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	catalog     []byte
	lastScreen  []byte
	logger      *zap.Logger
}

var _ effects.Emitter = (*Hub)(nil)

// NewHub builds a hub that greets every display with catalog.
func NewHub(catalog []models.ItemRef, logger *zap.Logger) *Hub {
	data, err := json.Marshal(Frame{Type: FrameCatalog, Items: catalog})
	if err != nil {
		logger.Error("failed to encode catalog frame", zap.Error(err))
	}
	return &Hub{
		connections: make(map[string]*Connection),
		catalog:     data,
		logger:      logger,
	}
}

// Add registers a connection and queues the catalog and current screen for it.
// A previous connection with the same display id is closed.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	previous := h.connections[conn.DisplayID()]
	h.connections[conn.DisplayID()] = conn
	if h.catalog != nil {
		conn.Send(h.catalog)
	}
	if h.lastScreen != nil {
		conn.Send(h.lastScreen)
	}
	h.mu.Unlock()

	if previous != nil && previous != conn {
		h.logger.Info("display taken over by a new connection", zap.String("display_id", conn.DisplayID()))
		previous.Close()
	}
}

// Remove forgets conn unless a newer connection took over its display id.
func (h *Hub) Remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[conn.DisplayID()] == conn {
		delete(h.connections, conn.DisplayID())
	}
}

// Count returns the number of connected displays.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Render implements effects.Emitter.
func (h *Hub) Render(s effects.Screen) {
	data, err := json.Marshal(Frame{Type: FrameRender, Screen: &s})
	if err != nil {
		h.logger.Error("failed to encode render frame", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.lastScreen = data
	h.mu.Unlock()
	h.broadcast(data)
}

// Play implements effects.Emitter.
func (h *Hub) Play(s effects.Sound) {
	data, err := json.Marshal(Frame{Type: FrameSound, Sound: s})
	if err != nil {
		h.logger.Error("failed to encode sound frame", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		conn.Send(data)
	}
}

// Start closes every connection once ctx is done.
func (h *Hub) Start(ctx context.Context) {
	<-ctx.Done()
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
}
