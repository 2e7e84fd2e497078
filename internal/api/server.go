package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"notical/internal/feed"
	"notical/internal/pipeline"
)

type Server struct {
	router *chi.Mux
	port   int
	feeds  *feed.Service
	token  string
	logger *slog.Logger
}

func NewServer(port int, feeds *feed.Service, token string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		feeds:  feeds,
		token:  token,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/calendar.ics", s.calendar)
	router.Post("/api/sync", s.sync)
	router.Get("/api/status", s.status)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// calendar serves the ICS document. Calendar clients poll this endpoint,
// so it always carries no-cache directives and never leaks upstream error
// detail.
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doc, err := s.feeds.Feed(r.Context())
	if err != nil {
		s.logger.Error("feed generation failed", "error", err)
		http.Error(w, sanitizeError(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="notical.ics"`)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Body))
}

// sync forces a regeneration regardless of cache freshness.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	doc, err := s.feeds.Refresh(r.Context())
	if err != nil {
		s.logger.Error("manual sync failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   sanitizeError(err),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": fmt.Sprintf("synced %d events at %s", doc.EventCount, doc.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.feeds.Status())
}

// authorized checks the optional feed token against the Authorization
// header or a token query parameter. Comparison is constant-time. An
// empty configured token disables the check.
func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if presented == r.Header.Get("Authorization") {
		presented = ""
	}
	if presented == "" {
		presented = r.URL.Query().Get("token")
	}
	if len(presented) != len(s.token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) == 1
}

// sanitizeError maps a pipeline failure to a caller-safe message. Raw
// upstream detail stays in the logs.
func sanitizeError(err error) string {
	var allInvalid *pipeline.AllRecordsInvalidError
	switch {
	case errors.Is(err, pipeline.ErrUnauthorized):
		return "source rejected credentials"
	case errors.Is(err, pipeline.ErrInvalidSortField):
		return "source rejected sort field"
	case errors.Is(err, pipeline.ErrInvalidFilter):
		return "source rejected date filter"
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return "source database unavailable"
	case errors.As(err, &allInvalid):
		return "no valid events in source database"
	case errors.Is(err, feed.ErrSerializationFailed):
		return "feed serialization failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "sync cancelled"
	default:
		return "internal error"
	}
}
