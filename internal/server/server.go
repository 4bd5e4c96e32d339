// Package server accepts memcached ASCII connections and serves each one on
// its own goroutine against a shared Store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/cache/ttl"
	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/metrics"
	"goflare.io/cinder/internal/protocol"
	"goflare.io/cinder/internal/retrier"
)

const tracerName = "cinder/server"

// ErrServerClosed is returned by Serve and ListenAndServe after Close or once
// their context is done.
var ErrServerClosed = errors.New("server closed")

// Store is the part of the cache a connection needs.
type Store interface {
	Get(key []byte) (ttl.View, bool)
	InsertWithTTL(key, value []byte, ttlSeconds uint32, flag uint32) ([]byte, bool)
}

// Server is the TCP listener.
type Server struct {
	cfg     *config.Config
	store   Store
	sink    metrics.Sink
	logger  *zap.Logger
	clock   clock.Clock
	tracer  trace.Tracer
	retrier *retrier.Retrier
	version []byte

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	wg     conc.WaitGroup
	active *atomic.Int64
}

// New creates a Server. A nil sink discards measurements.
func New(cfg *config.Config, store Store, sink metrics.Sink) (*Server, error) {
	if sink == nil {
		sink = metrics.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		sink:    sink,
		logger:  logger,
		clock:   clk,
		tracer:  otel.Tracer(tracerName),
		version: protocol.VersionReply(cfg.Version),
		conns:   make(map[net.Conn]struct{}),
		active:  atomic.NewInt64(0),
	}

	r, err := retrier.New(cfg.AcceptRetry,
		retrier.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("Temporary accept error, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("accept retry: %w", err)
	}
	s.retrier = r

	return s, nil
}

// ListenAndServe binds cfg.ListenAddr and serves it.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.logger.Info("Listening for memcached connections", zap.Stringer("addr", ln.Addr()))
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Close is called or ctx is done, then
// returns ErrServerClosed. Temporary accept errors are retried with backoff
// for as long as the server runs; any other accept error is returned. Serve
// takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		var conn net.Conn
		err := s.retrier.Run(ctx, func() error {
			c, err := ln.Accept()
			if err != nil {
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if s.isClosed() || ctx.Err() != nil {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.track(ctx, conn) {
			_ = conn.Close()
			return ErrServerClosed
		}
	}
}

// track registers conn and starts its handler. It reports false once the
// server is closed.
func (s *Server) track(ctx context.Context, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.active.Inc()
	s.wg.Go(func() { s.handle(ctx, conn) })
	return true
}

func (s *Server) untrack(conn net.Conn) {
	_ = conn.Close()

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.active.Dec()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)

	logger := s.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.Stringer("remote", conn.RemoteAddr()),
	)
	logger.Debug("Accepted connection")

	h := &handler{
		conn: protocol.NewConn(conn,
			protocol.WithInitialBufferSize(s.cfg.InitialBufferSize),
			protocol.WithMaxFrameSize(s.cfg.MaxFrameSize),
		),
		store:   s.store,
		sink:    s.sink,
		tracer:  s.tracer,
		clock:   s.clock,
		logger:  logger,
		version: s.version,
	}
	h.serve(ctx)
}

// Close stops accepting, closes every open connection and waits for their
// handlers to return. In-flight commands are not drained.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	s.closed = true

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
