// Package server wires the HTTP handlers into a router for the PairChat
// application.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Routes configures and returns the application router: health check at the
// root and the WebSocket endpoint at /ws. CORS covers the plain HTTP routes;
// the WebSocket upgrade enforces the same origin list through the upgrader's
// own origin callback.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         300,
	}))

	r.Get("/", s.HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler)

	return r
}
