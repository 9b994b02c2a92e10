package servers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ork-registry/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, pingRoutes{}, opts...)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServer_Routes(t *testing.T) {
	router := newTestServer(t).Router()

	rr := get(t, router, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())

	rr = get(t, router, "/livez")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())

	rr = get(t, router, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, rr.Code, "pprof is disabled by default")
}

func TestServer_DrainCycle(t *testing.T) {
	router := newTestServer(t).Router()

	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	rr := get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, rr.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)

	rr = get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, rr.Body.String())

	rr = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, rr.Body.String())
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	rr = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, rr.Body.String())
}

func TestServer_ReadinessProbe(t *testing.T) {
	var storeErr error
	router := newTestServer(t, WithReadinessProbe(func(context.Context) error {
		return storeErr
	})).Router()

	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	storeErr = errors.New("connection refused")
	rr := get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"ledger unavailable"}`, rr.Body.String())
	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
}
