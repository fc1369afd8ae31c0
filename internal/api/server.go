// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/pipeline"
	"github.com/dbsmedya/nlquery/internal/ratelimit"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Natural Language to SQL API"

const shutdownTimeout = 5 * time.Second

// HealthChecker reports per-dialect connectivity. *database.Manager satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) map[string]database.Status
}

// Options wires a Server.
type Options struct {
	Pipeline *pipeline.Pipeline
	Health   HealthChecker
	Limiter  *ratelimit.Limiter
	Config   config.ServerConfig
	// SweepInterval is how often idle rate-limit keys are dropped.
	SweepInterval time.Duration
	Version       string
	Logger        *logger.Logger
}

// Server serves the HTTP API.
type Server struct {
	pipeline      *pipeline.Pipeline
	health        HealthChecker
	limiter       *ratelimit.Limiter
	cfg            config.ServerConfig
	trustedProxies []netip.Prefix
	sweepInterval  time.Duration
	version        string
	logger         *logger.Logger
	now            func() time.Time
}

// NewServer creates a Server. A nil Limiter disables rate limiting.
func NewServer(opts Options) *Server {
	s := &Server{
		pipeline:      opts.Pipeline,
		health:        opts.Health,
		limiter:       opts.Limiter,
		cfg:           opts.Config,
		sweepInterval: opts.SweepInterval,
		version:       opts.Version,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = 16 << 10
	}
	trusted, err := s.cfg.TrustedProxyPrefixes()
	if err != nil {
		s.logger.Warnf("Ignoring trusted proxies, clients are keyed by connection address: %v", err)
	}
	s.trustedProxies = trusted
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.realIP,
		s.requestID,
		s.accessLog,
		middleware.Recoverer,
	)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/schema", s.handleSchema)
	r.Get("/ui", s.handleUI)
	r.With(s.rateLimit).Post("/query", s.handleQuery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	if s.limiter != nil {
		eg.Go(func() error {
			s.limiter.Run(egctx, s.sweepInterval)
			return nil
		})
	}

	eg.Go(func() error {
		s.logger.Infof("Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
