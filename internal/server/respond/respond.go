package respond

// respond.go provides helper functions for sending HTTP responses from the
// gateway handlers and middleware.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
	"github.com/openbotauth/openbotauth-go/internal/logger"
)

// ErrorResponse is the JSON body sent for failed requests. Rejections always
// carry at least the error field.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WithJSON sends a JSON response with the given status code.
func WithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// If encoding fails, log it but don't try to send another response
			// (headers are already written)
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

// WithError maps an error to an HTTP status and sends a JSON error response.
//
// The full error is logged server-side; the client receives the error message
// only.
func WithError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusCodeForError(err)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)

	WithJSON(w, statusCode, ErrorResponse{Error: err.Error()})
}

// statusCodeForError maps botauth error codes to HTTP statuses. Unknown
// errors map to 500.
func statusCodeForError(err error) int {
	var authErr *botauth.AuthError
	if !errors.As(err, &authErr) {
		return http.StatusInternalServerError
	}

	switch authErr.Code() {
	case botauth.ErrCodeMissingHeader,
		botauth.ErrCodeSensitiveHeader,
		botauth.ErrCodeVerifierRejected:
		return http.StatusUnauthorized
	case botauth.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case botauth.ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case botauth.ErrCodeVerifierTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
