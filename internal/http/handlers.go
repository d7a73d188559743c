package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready only when the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"database": "ok"}
	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "component", log.ComponentHTTP, "error", err)
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto status codes. Unknown errors are logged
// and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *core.FieldError
	switch {
	case errors.As(err, &fe):
		writeErrorStatus(w, http.StatusBadRequest, fe.Error())
	case errors.Is(err, errBadRequest):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case core.IsValidation(err):
		writeErrorStatus(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, auth.ErrWeakPassword):
		writeErrorStatus(w, http.StatusBadRequest, auth.ErrWeakPassword.Error())
	case errors.Is(err, core.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		writeErrorStatus(w, http.StatusUnauthorized, rootMessage(err))
	case errors.Is(err, core.ErrUsernameTaken):
		writeErrorStatus(w, http.StatusConflict, core.ErrUsernameTaken.Error())
	case errors.Is(err, core.ErrConcurrentUpdate):
		writeErrorStatus(w, http.StatusConflict, core.ErrConcurrentUpdate.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeErrorStatus(w, http.StatusInternalServerError, "internal server error")
	}
}

// rootMessage strips the wrapping context added on the way up so clients
// see the sentinel's text and whatever detail follows it.
func rootMessage(err error) string {
	msg := err.Error()
	for _, target := range []error{
		core.ErrInvalidAmountFormat,
		core.ErrNonPositiveAmount,
		core.ErrNegativeAmount,
		core.ErrExceedsRemaining,
		core.ErrInvalidCategory,
		core.ErrInvalidDate,
		auth.ErrInvalidCredentials,
		auth.ErrInvalidToken,
		auth.ErrMissingToken,
	} {
		if !errors.Is(err, target) {
			continue
		}
		if i := strings.Index(msg, target.Error()); i >= 0 {
			return msg[i:]
		}
		return target.Error()
	}
	return msg
}
