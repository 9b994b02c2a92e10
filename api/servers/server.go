package servers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/ork-registry/api"
	"github.com/ruteri/ork-registry/metrics"
	"go.uber.org/atomic"
)

// RouteRegistrar mounts API routes on the server router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// ReadinessProbe reports whether a dependency (the ledger store) can serve.
type ReadinessProbe func(ctx context.Context) error

type Option func(*Server)

// WithReadinessProbe makes /readyz fail while probe returns an error.
func WithReadinessProbe(probe ReadinessProbe) Option {
	return func(s *Server) { s.probe = probe }
}

// Server runs the registry API and the metrics listener.
type Server struct {
	cfg      *api.HTTPServerConfig
	log      *slog.Logger
	routes   RouteRegistrar
	probe    ReadinessProbe
	draining atomic.Bool

	apiSrv     *http.Server
	metricsSrv *metrics.MetricsServer
}

func New(cfg *api.HTTPServerConfig, routes RouteRegistrar, opts ...Option) (*Server, error) {
	metricsSrv, err := metrics.New(cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		routes:     routes,
		metricsSrv: metricsSrv,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.apiSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return s, nil
}

// Router returns the API routes together with the health and drain endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return httplogger.LoggingMiddlewareSlog(s.log, next)
	})

	s.routes.RegisterRoutes(r)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "alive")
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/drain", s.handleDrain)
	r.Get("/undrain", s.handleUndrain)

	if s.cfg.EnablePprof {
		s.log.Info("pprof API enabled")
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "draining")
		return
	}
	if s.probe != nil {
		if err := s.probe(r.Context()); err != nil {
			s.log.Warn("Readiness probe failed", "err", err)
			writeStatus(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}
	}
	writeStatus(w, http.StatusOK, "ready")
}

// handleDrain marks the server not ready and holds the request for
// DrainDuration so callers can wait for load balancers to react.
func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if s.draining.Swap(true) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}
	s.log.Info("Draining", "duration", s.cfg.DrainDuration)

	select {
	case <-time.After(s.cfg.DrainDuration):
		s.log.Info("Drain period completed")
	case <-r.Context().Done():
	}
	writeStatus(w, http.StatusOK, "draining")
}

func (s *Server) handleUndrain(w http.ResponseWriter, _ *http.Request) {
	if !s.draining.Swap(false) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}
	s.log.Info("Drain cancelled, serving again")
	writeStatus(w, http.StatusOK, "ready")
}

func (s *Server) RunInBackground() {
	if s.cfg.MetricsAddr != "" {
		go s.serve("metrics", s.cfg.MetricsAddr, s.metricsSrv.ListenAndServe)
	}
	go s.serve("api", s.cfg.ListenAddr, s.apiSrv.ListenAndServe)
}

func (s *Server) serve(name, addr string, listen func() error) {
	s.log.Info("Starting listener", "listener", name, "addr", addr)
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("Listener failed", "listener", name, "err", err)
	}
}

// Shutdown stops both listeners, each within GracefulShutdownDuration.
func (s *Server) Shutdown() {
	s.shutdown("api", s.apiSrv.Shutdown)
	if s.cfg.MetricsAddr != "" {
		s.shutdown("metrics", s.metricsSrv.Shutdown)
	}
}

func (s *Server) shutdown(name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()

	if err := stop(ctx); err != nil {
		s.log.Error("Graceful shutdown failed", "listener", name, "err", err)
		return
	}
	s.log.Info("Listener stopped", "listener", name)
}
