// Package server exposes the password evaluator over HTTP.
//
// Routes:
//
//	POST /check     evaluate {"password": "..."} and return the report
//	GET  /healthz   liveness
//	GET  /readyz    readiness, including the evaluator self-test
//	GET  /health    detailed health
//	GET  /metrics   Prometheus exposition (when enabled)
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/exploopio/passcheck/pkg/audit"
	"github.com/exploopio/passcheck/pkg/compress"
	"github.com/exploopio/passcheck/pkg/evaluator"
	"github.com/exploopio/passcheck/pkg/health"
	"github.com/exploopio/passcheck/pkg/metrics"
)

// Options configures the HTTP listener and request handling.
type Options struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Compression     bool
	CompressMinSize int
	MetricsPath     string
	Version         string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Address:         ":5000",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    64 << 10,
		Compression:     true,
		CompressMinSize: compress.DefaultMinSize,
		MetricsPath:     "/metrics",
	}
}

// Option wires an optional collaborator into the server.
type Option func(*Server)

// WithMetrics records request and evaluation metrics to c. The metrics
// endpoint is mounted only when Options.MetricsPath is set.
func WithMetrics(c metrics.Collector) Option {
	return func(s *Server) {
		if c != nil {
			s.metrics = c
		}
	}
}

// WithHealth serves probes from h instead of a handler built by New.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithAudit records lifecycle and rejected-request events to a.
func WithAudit(a *audit.Logger) Option {
	return func(s *Server) {
		s.audit = a
	}
}

// Server is the passcheck HTTP server.
type Server struct {
	opts      Options
	evaluator *evaluator.Evaluator
	logger    *zap.Logger
	metrics   metrics.Collector
	health    *health.Handler
	audit     *audit.Logger

	router  *mux.Router
	handler http.Handler
}

// New builds a server around ev. A nil logger discards logs.
func New(opts Options, ev *evaluator.Evaluator, logger *zap.Logger, options ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		opts:      opts,
		evaluator: ev,
		logger:    logger.Named("server"),
		metrics:   &metrics.NopCollector{},
	}
	for _, o := range options {
		o(s)
	}
	if s.health == nil {
		s.health = health.NewHandler(health.WithVersion(opts.Version))
		s.health.Register("evaluator", &health.EvaluatorCheck{Evaluator: ev})
	}

	s.router = s.routes()
	s.handler = s.middleware(s.router)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	r.HandleFunc("/check", s.handleCheck).Methods(http.MethodPost)
	health.RegisterRoutes(r, s.health)
	if s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the health handler so callers can add checks.
func (s *Server) Health() *health.Handler {
	return s.health
}

// Run listens on Options.Address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight
// requests for up to Options.ShutdownTimeout. Readiness is reported only
// while the listener accepts connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down", zap.Duration("timeout", s.opts.ShutdownTimeout))
		return srv.Shutdown(shutdownCtx)
	})

	s.health.SetReady(true)
	s.logger.Info("listening", zap.String("address", ln.Addr().String()), zap.String("version", s.opts.Version))
	if s.audit != nil {
		s.audit.ServerStarted(ln.Addr().String(), s.opts.Version)
	}

	err := g.Wait()
	if s.audit != nil {
		s.audit.ServerStopped(time.Since(started), err)
	}
	if err != nil {
		s.logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	s.logger.Info("server stopped", zap.Duration("uptime", time.Since(started)))
	return nil
}
