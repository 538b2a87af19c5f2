package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradbench/internal/config"
	"github.com/copyleftdev/gradbench/internal/logging"
	"github.com/copyleftdev/gradbench/internal/metrics"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	// Set up HTTP config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	// Set up logging
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "discard"

	// Set up optimization
	cfg.Optimization.DefaultSteps = 100
	cfg.Optimization.MaxSteps = 100000
	cfg.Optimization.MaxRuns = 16
	cfg.Optimization.HistoryStride = 10
	cfg.Optimization.LogEvery = 1000

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: "discard",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// testServer creates a server and a router with its routes mounted.
func testServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, http.Handler) {
	srv := NewServer(cfg, testLogger(t), opts...)
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createRun(t *testing.T, h http.Handler, body map[string]interface{}) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp["run_id"])
	assert.Equal(t, StatusPending, resp["status"])
	return resp["run_id"]
}

func getRun(t *testing.T, h http.Handler, id string) RunView {
	t.Helper()
	rr := doJSON(t, h, http.MethodGet, "/api/v1/runs/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var v RunView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

// waitForStatus polls the run until it reports status. The condition runs
// off the test goroutine, so it must not call require.
func waitForStatus(t *testing.T, h http.Handler, id, status string) RunView {
	t.Helper()
	require.Eventually(t, func() bool {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id, nil))
		var v RunView
		return rr.Code == http.StatusOK && json.NewDecoder(rr.Body).Decode(&v) == nil && v.Status == status
	}, 10*time.Second, 5*time.Millisecond, "run %s never reached %s", id, status)
	return getRun(t, h, id)
}

func TestNewServer(t *testing.T) {
	// Create a test logger and config
	logger := testLogger(t)
	cfg := testConfig(t)

	// Test server creation
	srv := NewServer(cfg, logger)
	assert.NotNil(t, srv, "Server should be created")
	assert.NotNil(t, srv.runner, "Default runner should be set")
	assert.NotNil(t, srv.metrics, "Default metrics should be set")
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	// Test if routes are registered
	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/runs", true},
		{"GET", "/api/v1/runs/123", true},
		{"DELETE", "/api/v1/runs/123", true},
		{"GET", "/api/v1/objectives", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Not registered by server package
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// Registered routes answer 404 only with a JSON body.
			routed := rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") == "application/json"
			assert.Equal(t, tt.shouldExist, routed, "status %d", rr.Code)
		})
	}
}

func TestCreateAndGetRun(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	id := createRun(t, r, map[string]interface{}{
		"algorithm":     "adam",
		"objective":     "himmelblau",
		"learning_rate": 0.01,
		"steps":         200,
	})

	v := waitForStatus(t, r, id, StatusCompleted)
	assert.Equal(t, id, v.ID)
	assert.Equal(t, "adam", v.Algorithm)
	assert.Equal(t, "himmelblau", v.Objective)
	assert.Equal(t, 200, v.Step)
	assert.Equal(t, 200, v.Steps)
	assert.Equal(t, 1.0, v.Progress)
	assert.NotEmpty(t, v.EndTime)
	assert.False(t, v.Diverged)
	require.NotNil(t, v.Position)
	require.NotNil(t, v.Value)
	require.NotNil(t, v.Distance)
	require.NotNil(t, v.Nearest)

	// Start plus every tenth step.
	require.Len(t, v.History, 21)
	assert.Equal(t, 0, v.History[0].Step)
	assert.Equal(t, 200, v.History[20].Step)
	assert.Equal(t, *v.Position, v.History[20].Point)
}

func TestCreateRunDefaults(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	id := createRun(t, r, map[string]interface{}{
		"algorithm": "rmsprop",
		"objective": "levi",
	})

	v := waitForStatus(t, r, id, StatusCompleted)
	assert.Equal(t, 100, v.Steps)
	assert.Equal(t, 0, v.History[0].Step)
	assert.Equal(t, 2.4, v.History[0].X)
	assert.Equal(t, -2.8, v.History[0].Y)
}

func TestCreateRunValidation(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown algorithm", map[string]interface{}{"algorithm": "sgd", "objective": "levi"}},
		{"unknown objective", map[string]interface{}{"algorithm": "adam", "objective": "sphere"}},
		{"too many steps", map[string]interface{}{"algorithm": "adam", "objective": "levi", "steps": 100001}},
		{"negative steps", map[string]interface{}{"algorithm": "adam", "objective": "levi", "steps": -1}},
		{"zero learning rate", map[string]interface{}{"algorithm": "adam", "objective": "levi", "learning_rate": 0}},
		{"beta out of range", map[string]interface{}{
			"algorithm":       "adam",
			"objective":       "levi",
			"hyperparameters": map[string]interface{}{"beta1": 1.0},
		}},
		{"decay out of range", map[string]interface{}{
			"algorithm":       "rmsprop",
			"objective":       "levi",
			"hyperparameters": map[string]interface{}{"decay_rate": -0.1},
		}},
		{"malformed body", "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, r, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestCreateRunErrorNamesComponent(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr := doJSON(t, r, http.MethodPost, "/api/v1/runs", map[string]interface{}{
		"algorithm":       "rmsprop",
		"objective":       "levi",
		"hyperparameters": map[string]interface{}{"decay_rate": 1.0},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "rmsprop", resp["component"])
	assert.Equal(t, "new", resp["operation"])
	assert.Contains(t, resp["error"], "decay rate")
}

func TestRunNotFound(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr := doJSON(t, r, http.MethodGet, "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, r, http.MethodDelete, "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// longRunConfig allows runs long enough to be cancelled while running.
func longRunConfig(t *testing.T) *config.Config {
	cfg := testConfig(t)
	cfg.Optimization.MaxSteps = 1 << 30
	cfg.Optimization.HistoryStride = 1 << 20
	return cfg
}

func TestCancelRun(t *testing.T) {
	_, r := testServer(t, longRunConfig(t))

	id := createRun(t, r, map[string]interface{}{
		"algorithm": "adam",
		"objective": "levi",
		"steps":     1 << 30,
	})

	rr := doJSON(t, r, http.MethodDelete, "/api/v1/runs/"+id, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	v := waitForStatus(t, r, id, StatusCancelled)
	assert.NotEmpty(t, v.EndTime)
	assert.Less(t, v.Progress, 1.0)
	assert.Nil(t, v.Value)

	rr = doJSON(t, r, http.MethodDelete, "/api/v1/runs/"+id, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestDivergedRun(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	// The gradient is undefined at the origin.
	id := createRun(t, r, map[string]interface{}{
		"algorithm": "adam",
		"objective": "cross-in-tray",
		"start":     map[string]float64{"x": 0, "y": 0},
		"steps":     5,
	})

	v := waitForStatus(t, r, id, StatusCompleted)
	assert.True(t, v.Diverged)
	assert.Nil(t, v.Position)
	assert.Nil(t, v.Value)
	assert.Nil(t, v.Distance)
	assert.Equal(t, 5, v.Step)
}

func TestObjectives(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr := doJSON(t, r, http.MethodGet, "/api/v1/objectives", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Objectives []ObjectiveView `json:"objectives"`
		Algorithms []string        `json:"algorithms"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	assert.Equal(t, []string{"adam", "rmsprop"}, resp.Algorithms)
	require.Len(t, resp.Objectives, 4)
	names := make([]string, len(resp.Objectives))
	for i, o := range resp.Objectives {
		names[i] = o.Name
		assert.NotEmpty(t, o.Optima)
	}
	assert.Equal(t, []string{"cross-in-tray", "himmelblau", "levi", "rosenbrock"}, names)
}

func TestEviction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Optimization.MaxRuns = 2
	srv, r := testServer(t, cfg)

	var ids []string
	for i := 0; i < 3; i++ {
		id := createRun(t, r, map[string]interface{}{"algorithm": "adam", "objective": "levi", "steps": 0})
		waitForStatus(t, r, id, StatusCompleted)
		ids = append(ids, id)
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/runs/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	getRun(t, r, ids[1])
	getRun(t, r, ids[2])

	srv.mu.RLock()
	assert.Len(t, srv.runs, 2)
	assert.Equal(t, ids[1:], srv.order)
	srv.mu.RUnlock()
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	_, r := testServer(t, testConfig(t), WithMetrics(m))

	id := createRun(t, r, map[string]interface{}{"algorithm": "rmsprop", "objective": "rosenbrock", "steps": 50})
	waitForStatus(t, r, id, StatusCompleted)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsStarted.WithLabelValues("rmsprop", "rosenbrock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues(StatusCompleted)))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.Steps.WithLabelValues("rmsprop")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRuns))
}

func TestClose(t *testing.T) {
	cfg := longRunConfig(t)
	srv := NewServer(cfg, testLogger(t))

	state, err := srv.startRun(StartParams{Algorithm: "rmsprop", Objective: "himmelblau", Steps: intPtr(1 << 30)})
	require.NoError(t, err)

	// Test server close
	err = srv.Close()
	assert.NoError(t, err, "Close should not return an error")

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	assert.Equal(t, StatusCancelled, state.Status)
}

func intPtr(v int) *int { return &v }
