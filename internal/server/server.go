// Package server exposes the discovery pipeline over a REST API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/model"
	"github.com/pawprint/leakwatch/internal/notify"
	"github.com/pawprint/leakwatch/internal/scanner"
	"github.com/pawprint/leakwatch/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	runner    *scanner.Runner
	scheduler *notify.Scheduler
	store     store.Store
}

// New creates a Server.
func New(runner *scanner.Runner, scheduler *notify.Scheduler, st store.Store) *Server {
	return &Server{runner: runner, scheduler: scheduler, store: st}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.handleListItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Post("/discovery/run", s.handleRunDiscovery)
		r.Get("/discovery/status", s.handleDiscoveryStatus)
		r.Get("/batches/{actionID}", s.handleGetBatch)
		r.Get("/logs", s.handleListLogs)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ItemFilter{
		SourceType: model.SourceType(q.Get("source_type")),
	}
	if v := q.Get("tier"); v != "" {
		tier, err := strconv.Atoi(v)
		if err != nil || tier < 1 || tier > 3 {
			writeError(w, http.StatusBadRequest, "tier must be 1, 2 or 3")
			return
		}
		filter.Tier = tier
	}
	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "verified must be a boolean")
			return
		}
		filter.Verified = &verified
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, err := s.store.ListItems(r.Context(), filter)
	if err != nil {
		zap.L().Error("list items failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list items failed")
		return
	}
	if items == nil {
		items = []model.ItemRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRunDiscovery(w http.ResponseWriter, r *http.Request) {
	if s.runner.Running() {
		writeError(w, http.StatusConflict, "discovery cycle already running")
		return
	}

	// Detached from the request context: the cycle outlives the response.
	go func() {
		if _, err := s.runner.RunCycle(context.Background()); err != nil {
			zap.L().Error("api-triggered cycle failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleDiscoveryStatus(w http.ResponseWriter, r *http.Request) {
	lastCycleAt, err := s.store.GetSetting(r.Context(), store.SettingLastCycleAt)
	if err != nil {
		zap.L().Warn("read last cycle setting failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"running":       s.runner.Running(),
		"last_cycle_at": lastCycleAt,
		"last_cycle":    s.runner.LastResult(),
		"batch_queue":   s.scheduler.BatchLen(),
		"offline_queue": s.scheduler.OfflineLen(),
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "actionID")

	items, ok := s.scheduler.Resolve(actionID)
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found or superseded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.LogFilter{
		EventType: model.EventType(q.Get("event_type")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	logs, err := s.store.ListLogs(r.Context(), filter)
	if err != nil {
		zap.L().Error("list logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list logs failed")
		return
	}
	if logs == nil {
		logs = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
