package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the registry HTTP server.
type HTTPServerConfig struct {
	ListenAddr string

	// MetricsAddr is where Prometheus metrics are served. Empty disables the
	// metrics listener.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps the server marked not ready
	// before the drain is reported complete.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long Shutdown waits for in-flight
	// requests.
	GracefulShutdownDuration time.Duration

	// ReadHeaderTimeout bounds reading request headers, which carry the
	// request signature.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	// MaxHeaderBytes caps request header size; 0 uses the net/http default.
	MaxHeaderBytes int
}
