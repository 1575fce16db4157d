// Package server is the OpenChain HTTP server.
//
// It proxies the recommendation backend and serves the browser page:
//
//	GET /api/recommend  validated, cached proxy of {backend}/recommend
//	GET /api/analyze    rate-limited proxy of {backend}/analyze
//	GET /api/health     liveness
//	GET /api/history    recent searches
//	GET /ws/graph       live graph session (WebSocket)
//	GET /metrics        Prometheus metrics, when enabled
//	GET /               browser page
//
// Every request gets an id (X-Request-ID) and is logged with its status and
// duration.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/matzehuels/openchain/pkg/analysis"
	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/history"
	"github.com/matzehuels/openchain/pkg/layout"
)

// Options configures a Server.
type Options struct {
	Backend *backend.Client // required
	History history.Store   // nil keeps an in-memory history
	Logger  *log.Logger     // nil discards logs

	// Registry receives the server's metrics and is exposed at /metrics.
	// Nil disables metrics.
	Registry *prometheus.Registry

	AnalyzeRate     rate.Limit    // per-client analyze requests per second, 0 disables
	AnalyzeBurst    int           // burst allowance for AnalyzeRate
	AnalysisTimeout time.Duration // live session analysis timeout
	Layout          layout.Options
}

// Server holds the handlers and their dependencies.
type Server struct {
	backend  *backend.Client
	history  history.Store
	logger   *log.Logger
	metrics  *Metrics
	limiter  *limiter
	timeout  time.Duration
	layout   layout.Options
	registry *prometheus.Registry
	router   chi.Router
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		backend:  opts.Backend,
		history:  opts.History,
		logger:   opts.Logger,
		limiter:  newLimiter(opts.AnalyzeRate, opts.AnalyzeBurst),
		timeout:  opts.AnalysisTimeout,
		layout:   opts.Layout,
		registry: opts.Registry,
	}
	if s.history == nil {
		s.history = history.NewMemoryStore(0)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.timeout <= 0 {
		s.timeout = analysis.DefaultTimeout
	}
	if opts.Registry != nil {
		s.metrics = NewMetrics(opts.Registry)
	}
	s.router = s.routes()
	return s
}

// Metrics returns the server's collectors, or nil when metrics are disabled.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// giving in-flight requests up to shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "backend", s.backend.BaseURL())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return nil
}
