package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/speedwagon-io/hostmon/internal/collector"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make([]HealthChecker, len(s.checkers))
	copy(checkers, s.checkers)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		if status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ToolsHealthChecker reports which of the required executables are
// missing from PATH.
type ToolsHealthChecker struct {
	tools    []string
	lookPath func(string) (string, error)
}

func NewToolsHealthChecker(tools []string) *ToolsHealthChecker {
	return &ToolsHealthChecker{tools: tools, lookPath: exec.LookPath}
}

func (c *ToolsHealthChecker) Name() string {
	return "tools"
}

func (c *ToolsHealthChecker) Check(ctx context.Context) (Status, string) {
	var missing []string
	for _, tool := range c.tools {
		if _, err := c.lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return StatusDegraded, "missing: " + strings.Join(missing, ", ")
	}
	return StatusHealthy, ""
}

type StoreHealthChecker struct {
	countFunc func(ctx context.Context) (int64, error)
}

func NewStoreHealthChecker(countFunc func(ctx context.Context) (int64, error)) *StoreHealthChecker {
	return &StoreHealthChecker{countFunc: countFunc}
}

func (c *StoreHealthChecker) Name() string {
	return "store"
}

func (c *StoreHealthChecker) Check(ctx context.Context) (Status, string) {
	if _, err := c.countFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

// FreshnessHealthChecker flags sources that have not refreshed within maxAge.
type FreshnessHealthChecker struct {
	statusFunc func() []collector.SourceStatus
	maxAge     time.Duration
	now        func() time.Time
}

func NewFreshnessHealthChecker(statusFunc func() []collector.SourceStatus, maxAge time.Duration) *FreshnessHealthChecker {
	return &FreshnessHealthChecker{statusFunc: statusFunc, maxAge: maxAge, now: time.Now}
}

func (c *FreshnessHealthChecker) Name() string {
	return "sources"
}

func (c *FreshnessHealthChecker) Check(ctx context.Context) (Status, string) {
	var problems []string
	now := c.now()

	for _, src := range c.statusFunc() {
		switch {
		case !src.HasValue:
			problems = append(problems, src.Name+": no value yet")
		case src.UpdatedAt.IsZero():
			problems = append(problems, src.Name+": serving persisted value")
		case now.Sub(src.UpdatedAt) > c.maxAge:
			problems = append(problems, fmt.Sprintf("%s: last refresh %s ago", src.Name, now.Sub(src.UpdatedAt).Round(time.Second)))
		}
	}

	if len(problems) > 0 {
		return StatusDegraded, strings.Join(problems, "; ")
	}
	return StatusHealthy, ""
}
