package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
	"github.com/speedwagon-io/hostmon/internal/model"
)

const requestIDHeader = "X-Request-Id"

type Reporter interface {
	Report(ctx context.Context) model.Report
}

type Server struct {
	log      *slog.Logger
	address  string
	reporter Reporter
	metrics  http.Handler
	server   *http.Server
	checkers []HealthChecker
	mu       sync.RWMutex
}

// NewServer builds the HTTP server. metrics may be nil to leave /metrics
// unregistered.
func NewServer(log *slog.Logger, address string, reporter Reporter, metrics http.Handler) *Server {
	return &Server{
		log:      log,
		address:  address,
		reporter: reporter,
		metrics:  metrics,
		checkers: make([]HealthChecker, 0),
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleReport)
	r.Get("/report", s.handleReport)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info("starting http server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report := s.reporter.Report(r.Context())

	data, err := report.ToJSON()
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to encode report: %w", err))
		return
	}

	s.log.Debug("report served",
		slog.String("request_id", w.Header().Get(requestIDHeader)),
		slog.Duration("duration", time.Since(start)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error("request failed",
		slog.String("request_id", w.Header().Get(requestIDHeader)),
		sl.Err(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(model.NewErrorResponse(err, debug.Stack()))
}
