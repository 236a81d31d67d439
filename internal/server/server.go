// Package server exposes the auditor as an HTTP webhook for voice-agent
// platforms.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/callaudit/internal/audit"
	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/pipeline"
	"github.com/ppiankov/callaudit/internal/rules"
	"github.com/ppiankov/callaudit/internal/store"
)

// ServiceName is reported by the status endpoint
const ServiceName = "callaudit"

const shutdownTimeout = 10 * time.Second

// Server is the webhook HTTP server
type Server struct {
	httpServer *http.Server
	addr       string

	pipeline  *pipeline.Pipeline
	verdicts  store.Store
	rulesPath string
	watch     bool
	maxBody   int64
	version   string
	logger    *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithStore serves recent verdicts from st
func WithStore(st store.Store) Option {
	return func(s *Server) { s.verdicts = st }
}

// WithRuleWatch hot-reloads the rule table at path
func WithRuleWatch(path string) Option {
	return func(s *Server) {
		s.rulesPath = path
		s.watch = path != ""
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the build version reported by the status endpoint
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server that audits through p
func New(cfg model.ServerConfig, p *pipeline.Pipeline, opts ...Option) *Server {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))

	s := &Server{
		addr:     addr,
		pipeline: p,
		verdicts: store.Nop{},
		maxBody:  cfg.MaxBodyBytes,
		logger:   zap.NewNop(),
	}
	if s.maxBody <= 0 {
		s.maxBody = 1 << 20
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/audit-call", s.handleAuditCall)
	mux.HandleFunc("/api/v1/verdicts", s.handleVerdicts)
	return mux
}

// Addr returns the configured listen address
func (s *Server) Addr() string { return s.addr }

// Start listens and serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watch {
		w, err := rules.NewWatcher(s.rulesPath, s.reloadRules, s.logger)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("watch rules: %w", err)
		}
		go func() { _ = w.Run(ctx) }()
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			zap.String("addr", ln.Addr().String()),
			zap.String("rules_version", s.pipeline.Auditor().Table().Version()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancelShutdown()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		s.logger.Info("server shut down gracefully")
		return nil
	case err := <-errChan:
		return err
	}
}

// reloadRules swaps in an auditor built from the new table, keeping the scorer
func (s *Server) reloadRules(table *rules.Table) {
	current := s.pipeline.Auditor()
	next, err := audit.New(table, current.Scorer(), s.logger)
	if err != nil {
		s.logger.Error("rebuild auditor failed, keeping previous rules",
			zap.String("version", table.Version()), zap.Error(err))
		return
	}
	s.pipeline.SetAuditor(next)
}
