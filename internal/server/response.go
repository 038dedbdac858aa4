package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
)

// Envelope is the JSON shape of every response.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}

// writeJSON writes data in an envelope with status.
func writeJSON(w http.ResponseWriter, status int, data any, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Envelope{Data: data, Success: status < 400}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes message in an envelope with status.
func writeError(w http.ResponseWriter, status int, message string, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Envelope{Error: message}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// StatusFor maps a pipeline or archive error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case shared.IsCredentialError(err):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNoMatches), errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrGenerationFailed), errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err with the status from [StatusFor]. Server-side failures are logged and their details hidden.
func handleError(w http.ResponseWriter, err error, logger *log.Logger) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error", logger)
		return
	}
	writeError(w, status, err.Error(), logger)
}
