package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/diagnosis/internal/platform/timeouts"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/modules/diagnosis"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/modules/landing"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/httpx"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Config wires the HTTP server.
type Config struct {
	HTTPAddr      string
	Service       *flow.Service
	SchemePolicy  requestmeta.SchemePolicy
	Logger        zerolog.Logger
	Tracer        trace.Tracer
	SweepInterval time.Duration
	Health        []module.HealthReporter
}

// Server runs the diagnosis HTTP surface and the session sweeper.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	service    *flow.Service
	logger     zerolog.Logger
	sweep      time.Duration

	mu       sync.Mutex
	listener net.Listener
}

// NewHandler builds the root handler with the shared middleware chain.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, errors.New("flow service is required")
	}
	root, err := Compose(ComposeInput{Modules: []module.Module{
		landing.New(cfg.Service, cfg.SchemePolicy, cfg.Health...),
		diagnosis.New(cfg.Service, cfg.SchemePolicy),
	}})
	if err != nil {
		return nil, fmt.Errorf("compose modules: %w", err)
	}
	return httpx.Chain(root,
		httpx.RequestID(),
		httpx.Logger(cfg.Logger),
		httpx.Trace(cfg.Tracer),
		httpx.RecoverPanic(),
		httpx.RequireSameOrigin(cfg.SchemePolicy),
	), nil
}

// NewServer builds a configured server.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		service: cfg.Service,
		logger:  cfg.Logger,
		sweep:   cfg.SweepInterval,
	}, nil
}

// Addr returns the bound address once listening, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpAddr
}

// ListenAndServe runs the HTTP server and the session sweeper until ctx
// ends, then shuts down within a bounded timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("diagnosis server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpAddr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	sweepCtx, stopSweep := context.WithCancel(s.logger.WithContext(ctx))
	var wg sync.WaitGroup
	wg.Go(func() {
		s.service.RunSweeper(sweepCtx, s.sweep)
	})
	defer func() {
		stopSweep()
		wg.Wait()
	}()

	serveErr := make(chan error, 1)
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("diagnosis listening")
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		<-serveErr
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
