package web

// errors.go maps errors to JSON responses. The technical error is logged with
// the request and run ids; clients get the operator message from
// core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/promptsync/internal/core"
	"github.com/JonMunkholm/promptsync/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"run_id,omitempty"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// respondRunError writes a failed or skipped run. Service.Run already logged
// the failure with its run id.
func (s *Server) respondRunError(w http.ResponseWriter, r *http.Request, res core.RunResult, err error) {
	userMsg := core.MapError(err)
	writeJSON(w, runStatus(err), ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		RunID:   res.RunID,
	})
}

// runStatus picks the HTTP status for a run error.
func runStatus(err error) int {
	var cfgErr *core.ConfigurationError
	switch {
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnknownPath):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
