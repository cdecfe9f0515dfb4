package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-auth/internal/web/handlers"
	"github.com/kozaktomas/face-auth/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Dependencies) {
	identitiesHandler := handlers.NewIdentitiesHandler(deps.Registrar, deps.Store, s.logger)

	// Persistent authentication connections
	s.router.Get("/socket", s.socketHandler.Handle)

	s.router.Group(func(r chi.Router) {
		r.Use(requestTimeout())
		r.Use(middleware.SecurityHeaders())

		// Health check
		r.Get("/health", handlers.HealthCheck)

		// Identities
		r.Post("/register", identitiesHandler.Register)
		r.Get("/detail/{name}", identitiesHandler.Detail)
	})
}
