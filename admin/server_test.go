package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/server"
)

type fakeLifecycle struct {
	running  bool
	readyErr error
	reports  []needlekit.HealthReport
}

func (f *fakeLifecycle) Start(context.Context) error { return nil }

func (f *fakeLifecycle) Stop(context.Context) error { return nil }

func (f *fakeLifecycle) Health(context.Context) []needlekit.HealthReport { return f.reports }

func (f *fakeLifecycle) Live(context.Context) error { return nil }

func (f *fakeLifecycle) Ready(context.Context) error { return f.readyErr }

func (f *fakeLifecycle) Running() bool { return f.running }

type staticPeers []server.Server

func (p staticPeers) Peers() []server.Server { return p }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	lc := &fakeLifecycle{
		reports: []needlekit.HealthReport{
			{Name: "transport", Status: needlekit.HealthStatusUp},
		},
	}
	h := New("127.0.0.1", 0, Deps{Lifecycle: lc}, nil).Handler()

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "up", resp.Status)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, "transport", resp.Checks[0].Name)

	lc.reports = append(
		lc.reports, needlekit.HealthReport{
			Name: "registry", Status: needlekit.HealthStatusDown, Error: errors.New("broken"),
		},
	)
	rec = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "broken")
}

func TestReady(t *testing.T) {
	t.Parallel()

	lc := &fakeLifecycle{}
	h := New("127.0.0.1", 0, Deps{Lifecycle: lc}, nil).Handler()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)

	lc.running = true
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)

	lc.readyErr = errors.New("transport is not listening")
	rec := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestBindings(t *testing.T) {
	t.Parallel()

	set, err := needlekit.NewModule("core").
		ProvideValue("config", "cfg").
		Provide(
			"server", func(context.Context, needlekit.Resolver) (any, error) { return "srv", nil },
			needlekit.WithDependencies("config"),
		).
		Produce()
	require.NoError(t, err)

	rec := get(t, New("127.0.0.1", 0, Deps{Bindings: set}, nil).Handler(), "/bindings")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []bindingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "config", resp[0].Key)
	assert.Equal(t, "server", resp[1].Key)
	assert.Equal(t, []string{"config"}, resp[1].Dependencies)
	assert.Equal(t, "core", resp[1].Module)
}

func TestPeers(t *testing.T) {
	t.Parallel()

	peers := staticPeers{{Host: "10.0.0.1", Port: 7003}}
	rec := get(t, New("127.0.0.1", 0, Deps{Peers: peers}, nil).Handler(), "/peers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"host":"10.0.0.1","port":7003}]`, rec.Body.String())
}

func TestRegistryRoutes(t *testing.T) {
	t.Parallel()

	reg := server.NewRegistry()
	h := New("127.0.0.1", 0, Deps{Registry: reg}, nil).Handler()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"id":"i-1","app":"billing","address":"10.0.0.5:8080"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registry", body))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"i-1","app":"billing","address":"10.0.0.5:8080","status":"UP"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registry", strings.NewReader(`{"address":"10.0.0.6:1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	bad := strings.NewReader(`{"id":"i-3","address":"no-port"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registry", bad))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, reg.Size())

	fetched := get(t, h, "/registry/i-1")
	require.Equal(t, http.StatusOK, fetched.Code)
	assert.JSONEq(t, `{"id":"i-1","app":"billing","address":"10.0.0.5:8080","status":"UP"}`, fetched.Body.String())

	stored, ok := reg.Get("i-1")
	require.True(t, ok)
	assert.Equal(t, server.Server{Host: "10.0.0.5", Port: 8080}, stored.Address)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/registry/i-2").Code)

	list := get(t, h, "/registry")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"i-1"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/registry/i-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, reg.Size())
}

func TestMissingDepsAnswerNotFound(t *testing.T) {
	t.Parallel()

	h := New("127.0.0.1", 0, Deps{}, nil).Handler()
	for _, path := range []string{"/health", "/ready", "/bindings", "/peers", "/registry", "/metrics"} {
		assert.Equal(t, http.StatusNotFound, get(t, h, path).Code, path)
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("up 1\n")) })
	rec := get(t, New("127.0.0.1", 0, Deps{Metrics: metrics}, nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up 1\n", rec.Body.String())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	srv := New("127.0.0.1", 0, Deps{Registry: server.NewRegistry()}, nil)
	ctx := context.Background()

	assert.Error(t, srv.ReadinessCheck(ctx))
	require.NoError(t, srv.Start(ctx))
	assert.NoError(t, srv.ReadinessCheck(ctx))
	assert.Error(t, srv.Start(ctx))
	require.NotZero(t, srv.Port())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/registry", srv.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
	assert.Equal(t, 0, srv.Port())
}
