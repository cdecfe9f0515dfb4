package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-auth/internal/auth"
	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/registration"
	"github.com/kozaktomas/face-auth/internal/web/handlers"
	"github.com/kozaktomas/face-auth/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config        *config.Config
	router        *chi.Mux
	httpServer    *http.Server
	socketHandler *handlers.SocketHandler
	logger        *slog.Logger
}

// Dependencies are the components the server routes requests to.
type Dependencies struct {
	Store         database.IdentityStore
	Registrar     *registration.Registrar
	Authenticator auth.Authenticator
	Logger        *slog.Logger
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	origins := middleware.NewOriginPolicy(cfg.Server.AllowedOrigins)

	s := &Server{
		config:        cfg,
		router:        r,
		socketHandler: handlers.NewSocketHandler(deps.Authenticator, &cfg.Auth, origins.CheckOrigin, logger),
		logger:        logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(origins))

	// Set up routes
	s.setupRoutes(deps)

	// Create HTTP server. No WriteTimeout: websocket connections are long-lived
	// and set their own per-frame deadlines.
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting web server", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	// Hijacked websocket connections are not tracked by http.Server.
	if err := s.socketHandler.Shutdown(ctx); err != nil {
		return fmt.Errorf("closing sockets: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// requestTimeout bounds plain HTTP handlers; the socket route is excluded.
func requestTimeout() func(http.Handler) http.Handler {
	return chiMiddleware.Timeout(constants.RequestTimeoutSeconds * time.Second)
}
