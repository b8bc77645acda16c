// Package server exposes the HTTP handlers, including the WebSocket upgrade
// and the health check.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server bundles the configuration, hub, and origin policy behind the HTTP
// surface. All state is instance-scoped so isolated servers can coexist, one
// per test if need be.
type Server struct {
	cfg      *Config
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewServer wires a server from configuration. A nil config selects defaults;
// a nil logger disables logging.
func NewServer(cfg *Config, log *zap.Logger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		hub:     NewHub(cfg, log),
		origins: newOriginPolicy(cfg.AllowedOrigins, log),
		log:     log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}
	return s
}

// Hub returns the server's hub for startup and shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartHub starts the hub's event loop in its own goroutine. Must be called
// before the HTTP server begins accepting WebSocket upgrades.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("hub started and ready to manage WebSocket connections")
}

// WebSocketHandler handles WebSocket upgrade requests. It validates the
// method, upgrades the connection, and hands the new client to the hub, which
// launches the read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)

	select {
	case s.hub.register <- client:
	case <-s.hub.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that responds with a
// plain text message indicating the server is running.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "PairChat server is running!")
}
