// Package api serves a read-only JSON view of the dashboard alongside the
// terminal UI: the ranked aircraft list, preferences, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/metrics"
	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
	"github.com/unklstewy/adsb-terminal/pkg/ranking"
)

// SnapshotSource provides the latest poll state.
type SnapshotSource interface {
	Snapshot() adsb.Snapshot
}

// PreferencesSource provides the current preferences.
type PreferencesSource interface {
	Get() preferences.Preferences
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures a Server.
type Options struct {
	Snapshots   SnapshotSource
	Preferences PreferencesSource
	Metrics     *metrics.Registry
	Logger      *zap.Logger

	// Checks are run by /health, keyed by name
	Checks map[string]HealthCheck
}

// Server is the HTTP status server.
type Server struct {
	router     *chi.Mux
	snapshots  SnapshotSource
	prefs      PreferencesSource
	metrics    *metrics.Registry
	logger     *zap.Logger
	checks     map[string]HealthCheck
	httpServer *http.Server
}

// New creates a Server with its routes registered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	s := &Server{
		router:    chi.NewRouter(),
		snapshots: opts.Snapshots,
		prefs:     opts.Preferences,
		metrics:   reg,
		logger:    logger,
		checks:    opts.Checks,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft", s.handleListAircraft)
		r.Get("/aircraft/{id}", s.handleGetAircraft)
		r.Get("/preferences", s.handleGetPreferences)
	})
}

// requestLogger logs each request through zap and records HTTP metrics.
// middleware.Logger writes to stdout, which the terminal UI owns.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start)

		s.metrics.ObserveHTTP(route, r.Method, strconv.Itoa(status), duration)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", duration),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.logger.Info("Status server stopped")
	return nil
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Feed      FeedStatus        `json:"feed"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// FeedStatus summarises the last poll.
type FeedStatus struct {
	Connected bool       `json:"connected"`
	Aircraft  int        `json:"aircraft"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func (s *Server) feedStatus() FeedStatus {
	if s.snapshots == nil {
		return FeedStatus{}
	}
	snap := s.snapshots.Snapshot()
	fs := FeedStatus{Connected: snap.Connected(), Aircraft: len(snap.Aircraft)}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		fs.UpdatedAt = &t
	}
	if snap.Err != nil {
		fs.Error = snap.Err.Error()
	}
	return fs
}

// handleHealth returns 503 when any dependency check fails. A disconnected
// feed is reported but does not fail the check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Feed:      s.feedStatus(),
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	respondJSON(w, status, resp)
}

// AircraftResponse is the /api/v1/aircraft body.
type AircraftResponse struct {
	Count     int              `json:"count"`
	Sort      string           `json:"sort"`
	Direction string           `json:"direction"`
	Search    string           `json:"search,omitempty"`
	Units     Units            `json:"units"`
	Feed      FeedStatus       `json:"feed"`
	Aircraft  []ranking.Ranked `json:"aircraft"`
}

// Units names the display units for the current preferences. Values in the
// response stay in feed units: feet, knots and miles.
type Units struct {
	Distance string `json:"distance"`
	Speed    string `json:"speed"`
	Altitude string `json:"altitude"`
}

func (s *Server) currentPreferences() preferences.Preferences {
	if s.prefs == nil {
		return preferences.Default()
	}
	return s.prefs.Get()
}

func (s *Server) currentAircraft() []adsb.Aircraft {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Snapshot().Aircraft
}

// parseQuery reads search, sort and dir from the query string.
func parseQuery(r *http.Request) (ranking.Query, error) {
	q := ranking.DefaultQuery()
	values := r.URL.Query()
	q.Search = values.Get("search")

	if v := values.Get("sort"); v != "" {
		field, err := ranking.ParseSortField(v)
		if err != nil {
			return q, err
		}
		q.Field = field
	}
	if v := values.Get("dir"); v != "" {
		dir, err := ranking.ParseSortDirection(v)
		if err != nil {
			return q, err
		}
		q.Direction = dir
	}
	return q, nil
}

func (s *Server) handleListAircraft(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := s.currentPreferences()
	ranked := ranking.RankQuery(s.currentAircraft(), prefs, q)

	respondJSON(w, http.StatusOK, AircraftResponse{
		Count:     len(ranked),
		Sort:      string(q.Field),
		Direction: string(q.Direction),
		Search:    q.Search,
		Units: Units{
			Distance: coordinates.DistanceUnit(prefs.UseMetric),
			Speed:    coordinates.SpeedUnit(prefs.UseMetric),
			Altitude: coordinates.AltitudeUnit(prefs.UseMetric),
		},
		Feed:     s.feedStatus(),
		Aircraft: ranked,
	})
}

// handleGetAircraft looks up one aircraft by ID among those inside the radius.
func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(chi.URLParam(r, "id"))

	ranked := ranking.RankQuery(s.currentAircraft(), s.currentPreferences(), ranking.DefaultQuery())
	for _, ac := range ranked {
		if ac.ID == id {
			respondJSON(w, http.StatusOK, ac)
			return
		}
	}
	respondError(w, http.StatusNotFound, fmt.Sprintf("aircraft %q not in range", id))
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.currentPreferences())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
