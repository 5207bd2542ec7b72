package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/easycheck/internal/override"
	"github.com/hazz-dev/easycheck/internal/state"
)

// Resolver decides the verdict served for a request.
type Resolver interface {
	Resolve(ctx context.Context) override.Verdict
}

// Recorder receives request and verdict metrics.
type Recorder interface {
	Middleware(next http.Handler) http.Handler
	ObserveVerdict(source string, status state.Status)
}

// Server holds the chi router and its dependencies.
type Server struct {
	resolver Resolver
	recorder Recorder
	router   chi.Router
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder enables request metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithClock overrides time.Now, used for the Age header.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new Server and registers all routes.
func New(resolver Resolver, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		resolver: resolver,
		router:   chi.NewRouter(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.recorder != nil {
		r.Use(s.recorder.Middleware)
	}

	r.Get("/", s.handleHealth)
	r.Options("/", s.handleHealth)
	r.Get("/status", s.handleStatus)
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusCode(v override.Verdict) int {
	if v.Available() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func (s *Server) resolve(r *http.Request) override.Verdict {
	v := s.resolver.Resolve(r.Context())
	if s.recorder != nil {
		s.recorder.ObserveVerdict(string(v.Source), v.Status)
	}
	return v
}

// --- Handlers ---

// handleHealth answers load balancers: 200 or 503, an Age header and the
// failing checks as a JSON array.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v := s.resolve(r)

	age := v.Snapshot.Age(s.now())
	w.Header().Set("Age", strconv.FormatInt(int64(age/time.Second), 10))
	w.Header().Set("Cache-Control", "no-store")

	failures := v.Failures
	if failures == nil {
		failures = []state.Failure{}
	}
	writeJSON(w, statusCode(v), failures)
}

type statusResponse struct {
	Status      state.Status    `json:"status"`
	Source      override.Source `json:"source"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	AgeSeconds  int64           `json:"age_seconds"`
	Failures    []state.Failure `json:"failures"`
}

// handleStatus returns the same verdict with its provenance.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.resolve(r)

	failures := v.Failures
	if failures == nil {
		failures = []state.Failure{}
	}
	writeJSON(w, statusCode(v), envelope{Data: statusResponse{
		Status:      v.Status,
		Source:      v.Source,
		EvaluatedAt: v.Snapshot.EvaluatedAt.UTC(),
		AgeSeconds:  int64(v.Snapshot.Age(s.now()) / time.Second),
		Failures:    failures,
	}})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
