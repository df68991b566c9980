package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/abramin/strata/internal/pipeline"
	"github.com/abramin/strata/internal/result"
)

// Server exposes the latest analysis over HTTP.
type Server struct {
	httpServer *http.Server
	port       int
	logger     *slog.Logger

	mu     sync.RWMutex
	run    *pipeline.Run
	layers []string
}

// Config holds server configuration.
type Config struct {
	Port   int
	Logger *slog.Logger
}

// New creates a new server instance. It answers 503 until the first run is
// published with SetRun.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{port: cfg.Port, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.corsMiddleware(s.handleHealth))
	mux.HandleFunc("GET /api/report", s.corsMiddleware(s.handleReport))
	mux.HandleFunc("GET /api/layers", s.corsMiddleware(s.handleLayers))
	mux.HandleFunc("GET /api/layers/{name}", s.corsMiddleware(s.handleLayer))
	mux.HandleFunc("GET /api/stats", s.corsMiddleware(s.handleStats))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// SetRun publishes run and the layer names it was analysed with.
func (s *Server) SetRun(run *pipeline.Run, layers []string) {
	s.mu.Lock()
	s.run, s.layers = run, layers
	s.mu.Unlock()
}

func (s *Server) current() (*pipeline.Run, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run, s.layers
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server.start", "addr", fmt.Sprintf("http://localhost:%d", s.port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// corsMiddleware adds CORS headers for local development.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.encode.failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// ready returns the current run or answers 503.
func (s *Server) ready(w http.ResponseWriter) (*pipeline.Run, []string, bool) {
	run, layers := s.current()
	if run == nil {
		s.writeError(w, http.StatusServiceUnavailable, "analysis has not completed yet")
		return nil, nil, false
	}
	return run, layers, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	run, _ := s.current()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ready": run != nil})
}

type reportResponse struct {
	Counts   result.Counts `json:"counts"`
	Items    []result.Item `json:"items"`
	Warnings []string      `json:"warnings"`
	Errors   []string      `json:"errors"`
}

// handleReport handles GET /api/report?category=violation&category=uncovered.
// Without a category every classified edge except allowed ones is listed.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	run, _, ok := s.ready(w)
	if !ok {
		return
	}

	categories := []result.Category{result.Violation, result.SkippedViolation, result.Uncovered}
	if requested := r.URL.Query()["category"]; len(requested) > 0 {
		categories = categories[:0]
		for _, c := range requested {
			if !slices.Contains(result.Categories, result.Category(c)) {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", c))
				return
			}
			categories = append(categories, result.Category(c))
		}
	}

	res := run.Result
	items := res.Items(categories...)
	if items == nil {
		items = []result.Item{}
	}
	s.writeJSON(w, http.StatusOK, reportResponse{
		Counts:   res.Counts(),
		Items:    items,
		Warnings: nonNil(res.Warnings()),
		Errors:   nonNil(res.Errors()),
	})
}

type layerSummary struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	run, layers, ok := s.ready(w)
	if !ok {
		return
	}
	out := make([]layerSummary, len(layers))
	for i, name := range layers {
		out[i] = layerSummary{Name: name, Tokens: len(run.Analyser.TokensInLayer(run.Map, name))}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleLayer handles GET /api/layers/{name}
func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	run, layers, ok := s.ready(w)
	if !ok {
		return
	}
	name := r.PathValue("name")
	if !slices.Contains(layers, name) {
		s.writeError(w, http.StatusNotFound, "layer not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"tokens": nonNil(run.Analyser.TokensInLayer(run.Map, name)),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	run, _, ok := s.ready(w)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		pipeline.Stats
		Counts result.Counts `json:"counts"`
	}{run.Stats, run.Result.Counts()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
