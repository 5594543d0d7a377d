// Package httpapi exposes the read-only reporting API consumed by dashboards
// and alerting. It never writes to the stores.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/guard"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/metrics"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/report"
)

// Server serves the reporting endpoints plus /metrics and /health.
type Server struct {
	reporter *report.Reporter
	guard    *guard.Guard
	metrics  *metrics.Collectors
	router   *mux.Router
}

// NewServer builds the router.
func NewServer(reporter *report.Reporter, g *guard.Guard, collectors *metrics.Collectors) *Server {
	s := &Server{
		reporter: reporter,
		guard:    g,
		metrics:  collectors,
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/predictions/{symbol}", s.handlePredictions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/distribution", s.handleDistribution).Methods(http.MethodGet)
	s.router.HandleFunc("/api/accuracy", s.handleAccuracy).Methods(http.MethodGet)
	s.router.HandleFunc("/api/integrity", s.handleIntegrity).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(collectors.Registry, promhttp.HandlerOpts{}))

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("reporting API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	predictions, err := s.reporter.RecentPredictions(r.Context(), symbol, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictions)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, 7*24*time.Hour)
	distribution, err := s.reporter.SignalDistribution(r.Context(), window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distribution)
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, 30*24*time.Hour)
	hitRate, err := s.reporter.HitRate(r.Context(), window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hitRate)
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	rep, err := s.guard.Check(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if !rep.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, rep)
}

func parseWindow(r *http.Request, fallback time.Duration) time.Duration {
	if raw := r.URL.Query().Get("window"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("api request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
