package display

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections to display WebSockets.
type Server struct {
	hub          *Hub
	processor    MessageProcessor
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, processor MessageProcessor, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Server{
		hub:          hub,
		processor:    processor,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for /display/ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	displayID := r.URL.Query().Get("display_id")
	if displayID == "" {
		displayID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var connection *Connection
	connection = NewConnection(displayID, conn, s.processor, s.writeTimeout, s.logger, func(string) {
		s.hub.Remove(connection)
		cancel()
	})
	s.hub.Add(connection)

	go connection.Start(ctx)
	s.logger.Info("display connected", zap.String("display_id", displayID))
}
