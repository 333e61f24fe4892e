package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/speedwagon-io/hostmon/internal/collector"
	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
	"github.com/speedwagon-io/hostmon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticReporter struct {
	report model.Report
}

func (s staticReporter) Report(ctx context.Context) model.Report {
	return s.report
}

type fixedChecker struct {
	name    string
	status  Status
	message string
}

func (c fixedChecker) Name() string { return c.name }

func (c fixedChecker) Check(ctx context.Context) (Status, string) { return c.status, c.message }

func newTestServer(report model.Report) *Server {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hostmon_up 1\n"))
	})
	return NewServer(sl.Discard(), ":0", staticReporter{report: report}, metrics)
}

func TestHandleReport(t *testing.T) {
	srv := newTestServer(model.Report{
		Temperature: model.StringPtr("52.0"),
		HDDs:        []model.DriveState{{Name: "/dev/sdb", Status: model.StringPtr("standby")}},
		Zpool:       &model.PoolStatus{Name: "tank", State: "ONLINE", Drives: []model.DriveElementStatus{}},
		Pings:       []model.PingResult{{Target: "1.1.1.1", Error: "command failed"}},
	})

	for _, path := range []string{"/", "/report"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{
			"temperature": "52.0",
			"hdds": [{"name": "/dev/sdb", "status": "standby"}],
			"zpool": {"name": "tank", "state": "ONLINE", "read": "", "write": "", "checksum": "", "drives": []},
			"pings": [{"target": "1.1.1.1", "error": "command failed"}]
		}`, rec.Body.String())
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	srv := newTestServer(model.Report{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestWriteError(t *testing.T) {
	srv := newTestServer(model.Report{})

	rec := httptest.NewRecorder()
	srv.writeError(rec, errors.New("encode failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "encode failed", resp.Message)
	assert.NotEmpty(t, resp.StackTrace)
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(model.Report{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hostmon_up 1\n", rec.Body.String())
}

func TestProbes(t *testing.T) {
	srv := newTestServer(model.Report{})

	for _, path := range []string{"/ready", "/live"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	cases := []struct {
		name     string
		checkers []HealthChecker
		status   Status
		code     int
	}{
		{"healthy", []HealthChecker{fixedChecker{"a", StatusHealthy, ""}}, StatusHealthy, http.StatusOK},
		{"degraded", []HealthChecker{fixedChecker{"a", StatusHealthy, ""}, fixedChecker{"b", StatusDegraded, "slow"}}, StatusDegraded, http.StatusOK},
		{"unhealthy", []HealthChecker{fixedChecker{"a", StatusUnhealthy, "down"}, fixedChecker{"b", StatusDegraded, ""}}, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(model.Report{})
			for _, c := range tc.checkers {
				srv.AddChecker(c)
			}

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.code, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, resp.Status)
			assert.Len(t, resp.Components, len(tc.checkers))
		})
	}
}

func TestToolsHealthChecker(t *testing.T) {
	c := NewToolsHealthChecker([]string{"sensors", "zpool", "hdparm"})
	c.lookPath = func(name string) (string, error) {
		if name == "sensors" {
			return "/usr/bin/sensors", nil
		}
		return "", errors.New("not found")
	}

	status, msg := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, status)
	assert.Equal(t, "missing: zpool, hdparm", msg)

	c.lookPath = func(name string) (string, error) { return "/bin/" + name, nil }
	status, msg = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, status)
	assert.Empty(t, msg)
}

func TestStoreHealthChecker(t *testing.T) {
	ok := NewStoreHealthChecker(func(ctx context.Context) (int64, error) { return 4, nil })
	status, _ := ok.Check(context.Background())
	assert.Equal(t, StatusHealthy, status)

	broken := NewStoreHealthChecker(func(ctx context.Context) (int64, error) { return 0, errors.New("database is locked") })
	status, msg := broken.Check(context.Background())
	assert.Equal(t, StatusDegraded, status)
	assert.Equal(t, "database is locked", msg)
}

func TestFreshnessHealthChecker(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	statuses := []collector.SourceStatus{
		{Name: "temperature", HasValue: true, UpdatedAt: now.Add(-time.Second)},
		{Name: "hdds", HasValue: false},
		{Name: "zpool", HasValue: true},
		{Name: "pings", HasValue: true, UpdatedAt: now.Add(-10 * time.Minute)},
	}

	c := NewFreshnessHealthChecker(func() []collector.SourceStatus { return statuses }, time.Minute)
	c.now = func() time.Time { return now }

	status, msg := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, status)
	assert.Equal(t, "hdds: no value yet; zpool: serving persisted value; pings: last refresh 10m0s ago", msg)

	c.statusFunc = func() []collector.SourceStatus { return statuses[:1] }
	status, _ = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, status)
}
