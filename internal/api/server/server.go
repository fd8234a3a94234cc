package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
	"github.com/feral-file/ff-stacks-mint/internal/api/rest"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/minting"
	"github.com/feral-file/ff-stacks-mint/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug          bool
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	Auth           middleware.AuthConfig
	MaxMediaSize   int64
	// MediaDir is served under /media when the local content store is used
	MediaDir string
}

// Server wraps the HTTP server
type Server struct {
	config      Config
	store       store.Store
	coordinator minting.Coordinator
	httpServer  *http.Server
}

// New creates a new API server
func New(cfg Config, st store.Store, coordinator minting.Coordinator) *Server {
	return &Server{
		config:      cfg,
		store:       st,
		coordinator: coordinator,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() (*gin.Engine, error) {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = s.config.MaxMediaSize

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.AllowedOrigins))

	var auth *middleware.Authenticator
	if s.config.Auth.Enabled() {
		a, err := middleware.NewAuthenticator(s.config.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %w", err)
		}
		auth = a
	}

	handler := rest.NewHandler(s.coordinator, s.store, s.config.MaxMediaSize)
	rest.SetupRoutes(router, handler, auth, s.config.MediaDir)

	return router, nil
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	router, err := s.Router()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
		zap.Bool("auth", s.config.Auth.Enabled()),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
