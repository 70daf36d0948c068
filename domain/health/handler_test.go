package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/salon-monitor/domain/scheduler"
	"github.com/emergent-company/salon-monitor/internal/config"
	"github.com/emergent-company/salon-monitor/internal/version"
	"github.com/emergent-company/salon-monitor/pkg/apperror"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/syshealth"
)

type stubChecker struct {
	report perfmon.HealthReport
}

func (s stubChecker) PerformHealthCheck(context.Context) perfmon.HealthReport {
	return s.report
}

type stubProbe struct {
	err error
}

func (s stubProbe) ListCacheNames(context.Context) ([]string, error) {
	return []string{"customers"}, s.err
}

type stubSampler struct {
	sample syshealth.Sample
	ok     bool
}

func (s stubSampler) Latest() (syshealth.Sample, bool) {
	return s.sample, s.ok
}

type stubTasks struct {
	running bool
	info    []scheduler.TaskInfo
}

func (s stubTasks) GetTaskInfo() []scheduler.TaskInfo { return s.info }
func (s stubTasks) IsRunning() bool                   { return s.running }

func newTestServer(h *Handler, m *MetricsHandler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(quietLogger())
	RegisterRoutes(e, h, m)
	return e
}

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func report(status, cacheHealth, memoryHealth perfmon.Status) perfmon.HealthReport {
	return perfmon.HealthReport{
		Status:       status,
		CacheHealth:  cacheHealth,
		MemoryHealth: memoryHealth,
		CacheHitRate: 72.5,
		Memory:       perfmon.MemoryUsage{UsedBytes: 512 << 20, MaxBytes: 1024 << 20},
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		report     perfmon.HealthReport
		wantStatus int
	}{
		{"up", report(perfmon.StatusUp, perfmon.StatusUp, perfmon.StatusUp), http.StatusOK},
		{"warning keeps 200", report(perfmon.StatusWarning, perfmon.StatusUp, perfmon.StatusWarning), http.StatusOK},
		{"down is 503", report(perfmon.StatusDown, perfmon.StatusDown, perfmon.StatusUp), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(stubChecker{report: tt.report}, stubProbe{}, stubSampler{}, &config.Config{})
			e := newTestServer(h, NewMetricsHandler(stubTasks{}))

			for _, path := range []string{"/health", "/api/health"} {
				rec := serve(e, path)
				require.Equal(t, tt.wantStatus, rec.Code, path)

				var body HealthResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.report.Status, body.Status)
				assert.Equal(t, version.Version, body.Version)
				assert.Equal(t, "2026-03-01T12:00:00Z", body.Timestamp)
				assert.NotEmpty(t, body.Uptime)
				assert.Equal(t, tt.report.CacheHealth, body.Checks["cache"].Status)
				assert.Equal(t, tt.report.MemoryHealth, body.Checks["memory"].Status)
				assert.Equal(t, "50.0% of 1024 MB", body.Checks["memory"].Message)
			}
		})
	}
}

func TestHandler_HealthMessages(t *testing.T) {
	r := report(perfmon.StatusDown, perfmon.StatusDown, perfmon.StatusWarning)
	r.Memory = perfmon.MemoryUsage{UsedBytes: 100}
	h := NewHandler(stubChecker{report: r}, stubProbe{}, stubSampler{}, &config.Config{})

	rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/health")

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cache provider unavailable", body.Checks["cache"].Message)
	assert.Equal(t, "memory limit unknown", body.Checks["memory"].Message)
}

func TestHandler_Healthz(t *testing.T) {
	h := NewHandler(stubChecker{}, stubProbe{}, stubSampler{}, &config.Config{})

	rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandler_Ready(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := NewHandler(stubChecker{}, stubProbe{}, stubSampler{}, &config.Config{})
		rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/ready")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	})

	t.Run("cache backend down", func(t *testing.T) {
		h := NewHandler(stubChecker{}, stubProbe{err: errors.New("redis ping: connection refused")}, stubSampler{}, &config.Config{})
		rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_ready")
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestHandler_Debug(t *testing.T) {
	sample := syshealth.Sample{
		UsedBytes:   256 << 20,
		LimitBytes:  1024 << 20,
		LimitSource: syshealth.LimitSourceRuntime,
		Timestamp:   time.Now(),
	}

	t.Run("development", func(t *testing.T) {
		cfg := &config.Config{Environment: "local"}
		h := NewHandler(stubChecker{}, stubProbe{}, stubSampler{sample: sample, ok: true}, cfg)

		rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/debug")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "local", body["environment"])
		require.Contains(t, body, "sampler")

		sampler := body["sampler"].(map[string]any)
		assert.Equal(t, float64(256), sampler["used_mb"])
		assert.Equal(t, "runtime", sampler["limit_source"])
		assert.Equal(t, 25.0, sampler["used_percent"])
	})

	t.Run("no sample yet", func(t *testing.T) {
		h := NewHandler(stubChecker{}, stubProbe{}, stubSampler{}, &config.Config{Environment: "local"})

		rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/debug")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "sampler")
	})

	t.Run("hidden in production", func(t *testing.T) {
		h := NewHandler(stubChecker{}, stubProbe{}, stubSampler{sample: sample, ok: true}, &config.Config{Environment: "production"})

		rec := serve(newTestServer(h, NewMetricsHandler(stubTasks{})), "/debug")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
