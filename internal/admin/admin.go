// Package admin serves the HTTP observability endpoint: cache size, counters,
// health and Prometheus metrics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/models"
)

const shutdownTimeout = 5 * time.Second

// Source is what the endpoint reports on.
type Source interface {
	Len() int
	Stats() models.StatsSnapshot
}

// Metrics is the registry the endpoint serves on /metrics and records its own
// request latencies into.
type Metrics interface {
	Handler() http.Handler
	ObserveRequest(method string, d time.Duration)
}

// Server is the admin HTTP server.
type Server struct {
	addr   string
	logger *zap.Logger
	router *gin.Engine
}

// New builds the router. m may be nil, in which case /metrics falls through
// to the empty reply and requests are not measured.
func New(cfg *config.Config, src Source, m Metrics) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), requestLogger(logger, m))

	return &Server{
		addr:   cfg.AdminAddr,
		logger: logger,
		router: handlersInit(router, src, m, cfg.Version),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Admin server shutdown failed", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("Admin endpoint listening", zap.Stringer("addr", ln.Addr()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin serve: %w", err)
	}
	return nil
}
