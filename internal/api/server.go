// Package api provides the HTTP server and handlers.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/library"
	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
	"github.com/mediahub/mediahub/internal/progress"
	"github.com/mediahub/mediahub/internal/room"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Server is the HTTP server.
type Server struct {
	library  *library.Library
	hub      *room.Hub
	auth     *auth.Auth
	progress *progress.Store // nil when no database is configured
}

// NewServer creates a new server.
func NewServer(lib *library.Library, hub *room.Hub, authHandler *auth.Auth, progressStore *progress.Store) *Server {
	return &Server{
		library:  lib,
		hub:      hub,
		auth:     authHandler,
		progress: progressStore,
	}
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Library
	mux.HandleFunc("GET /api/media", s.handleListMedia)
	mux.HandleFunc("GET /api/media/file/{path...}", s.handleMediaDetail)
	mux.HandleFunc("POST /api/media/rescan", s.handleRescan)

	// Streaming
	mux.HandleFunc("GET /api/stream/{path...}", s.handleStream)

	// Watch-together
	mux.Handle("GET /api/watch", room.ServeWS(s.hub))

	// Playback progress
	mux.HandleFunc("GET /api/progress", s.handleListProgress)
	mux.HandleFunc("POST /api/progress/{path...}", s.handleSaveProgress)

	handler := s.auth.OptionalMiddleware(corsMiddleware(mux))
	return metrics.Middleware(logging.Middleware(handler))
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "1.0"})
}

// ─── Library ────────────────────────────────────────────────────────────────

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	entries := s.library.Snapshot().Entries()

	// Attach resume positions for authenticated users.
	claims := auth.GetClaims(r.Context())
	if claims != nil && s.progress != nil {
		recs, err := s.progress.ListForUser(r.Context(), claims.UserID)
		if err != nil {
			logging.Warn("could not load progress", zap.Error(err))
		} else if len(recs) > 0 {
			positions := make(map[string]float64, len(recs))
			for _, rec := range recs {
				positions[rec.MediaPath] = rec.Position
			}
			enriched := make([]library.CatalogEntry, len(entries))
			copy(enriched, entries)
			for i := range enriched {
				if pos, ok := positions[enriched[i].RelativePath]; ok {
					p := pos
					enriched[i].UserProgress = &p
				}
			}
			entries = enriched
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if entries == nil {
		entries = []library.CatalogEntry{}
	}
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleMediaDetail(w http.ResponseWriter, r *http.Request) {
	pathParam := r.PathValue("path")
	if pathParam == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	entry, err := s.library.LookupFile(pathParam)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "media file not found: "+pathParam)
			return
		}
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	claims := auth.GetClaims(r.Context())
	if claims != nil && s.progress != nil {
		rec, err := s.progress.Get(r.Context(), claims.UserID, entry.RelativePath)
		if err == nil {
			p := rec.Position
			entry.UserProgress = &p
		} else if !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("could not load progress", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.auth.Enabled() {
		claims := auth.GetClaims(r.Context())
		if claims == nil || !claims.IsAdmin {
			s.sendError(w, http.StatusForbidden, "admin access required")
			return
		}
	}

	cat, err := s.library.Rescan(r.Context())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "rescan failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "rescan complete",
		"itemCount": cat.Len(),
	})
}

// ─── Progress ───────────────────────────────────────────────────────────────

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if claims == nil {
		s.sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if s.progress == nil {
		s.sendError(w, http.StatusNotImplemented, "progress tracking is not configured")
		return
	}

	recs, err := s.progress.ListForUser(r.Context(), claims.UserID)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []progress.Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if claims == nil {
		s.sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if s.progress == nil {
		s.sendError(w, http.StatusNotImplemented, "progress tracking is not configured")
		return
	}

	pathParam := r.PathValue("path")
	if pathParam == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}
	if _, err := s.library.LookupFile(pathParam); err != nil {
		s.sendError(w, http.StatusNotFound, "media file not found: "+pathParam)
		return
	}

	var req struct {
		Position float64 `json:"position"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.progress.Save(r.Context(), claims.UserID, pathParam, req.Position, req.Duration); err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Length")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}
