package api

import (
	"context"
	"fmt"
	"net/http"

	"seatwise/internal/config"
	"seatwise/internal/handlers"
	"seatwise/internal/metrics"
	"seatwise/internal/middleware"
	"seatwise/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API process
type Server struct {
	router   *gin.Engine
	config   *config.Config
	backends *Backends
	services *service.Services
}

// NewServer connects the backends, runs migrations and builds the router.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	m := metrics.New(prometheus.DefaultRegisterer)

	backends, err := OpenBackends(ctx, cfg, m)
	if err != nil {
		return nil, err
	}

	if backends.DB != nil {
		if err := backends.DB.RunMigrations(ctx); err != nil {
			backends.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return NewServerWithBackends(cfg, backends), nil
}

// NewServerWithBackends builds the router over already opened backends.
func NewServerWithBackends(cfg *config.Config, backends *Backends) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(backends.Metrics))
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	server := &Server{
		router:   router,
		config:   cfg,
		backends: backends,
		services: backends.Services(),
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	var health handlers.HealthChecker
	if s.backends.DB != nil {
		health = s.backends.DB
	}

	h := handlers.NewHandlers(s.services, health)
	h.Register(s.router, middleware.Authenticate(s.config.Auth.Secret, s.config.Auth.Issuer))

	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// Handler returns the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Cleanup closes every backend connection
func (s *Server) Cleanup() error {
	return s.backends.Close()
}
