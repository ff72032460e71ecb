package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/promptsync/internal/core"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// handleHealth reports liveness and which export paths are running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"active": s.service.Limiter().Status(),
	})
}

// handlePrompts serves GET /api/prompts/{group}?locale=xx-XX with the
// resolved prompt map of one group plus statusCode 200.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	locale := r.URL.Query().Get("locale")

	prompts, found, err := s.prompts.Prompts(r.Context(), group, locale)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "group not found",
			Message: "No prompts are stored for group " + strconv.Quote(group),
			Action:  "Check that the group is Live and the last export succeeded",
			Code:    "LKP001",
		})
		return
	}

	body := make(map[string]any, len(prompts)+1)
	for id, text := range prompts {
		body[id] = text
	}
	body["statusCode"] = http.StatusOK
	writeJSON(w, http.StatusOK, body)
}

// handleTriggerRun runs one export path synchronously and returns its result.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	path, err := core.ParsePath(chi.URLParam(r, "path"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	ctx := WithRunTrigger(r.Context(), r)
	res, err := s.service.Run(ctx, path)
	if err != nil {
		s.respondRunError(w, r, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	history := s.service.History()
	if history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []core.RunResult{}})
		return
	}
	runs, err := history.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.RunResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
