/*
Package servers runs the registry HTTP API.

Server wraps the routes of an api handler with request logging and adds the
operational endpoints:

  - /livez - liveness probe
  - /readyz - readiness probe, 503 while draining or while the
    ReadinessProbe (the ledger store) fails
  - /drain - mark not ready and hold the request for DrainDuration
  - /undrain - serve again
  - /debug/pprof - profiling, when enabled

Prometheus metrics are served on a separate listener (MetricsAddr).
RunInBackground starts both listeners; Shutdown stops them gracefully within
GracefulShutdownDuration.
*/
package servers
