// Package httputil writes inbound HTTP responses, including the plain-text
// mapping from domain errors to status codes.
package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
// If encoding fails, it logs the error.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", slog.Any("error", err))
	}
}

// WriteText writes a text/plain response.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("Failed to write text response", slog.Any("error", err))
	}
}

// ErrorResponse maps err to a status and plain-text body. Bad request,
// validation, not found and conflict errors expose their message; anything
// else becomes a 500 with the generic reason phrase.
func ErrorResponse(err error) (int, string) {
	status := dierrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return status, http.StatusText(status)
	}
	return status, err.Error()
}

// WriteError writes err as a text/plain response. Errors that map to 500
// are logged with logger, or the default logger when nil.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := ErrorResponse(err)
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error(err.Error(), "error_type", dierrors.TypeOf(err), "error", err)
	}
	WriteText(w, status, body)
}
