package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeIndexNotFound    ErrorCode = "index_not_found"
	CodeJobInFlight      ErrorCode = "job_in_flight"
	CodeNotSupported     ErrorCode = "not_supported"
	CodeProviderError    ErrorCode = "provider_error"
	CodeIndexUnavailable ErrorCode = "index_unavailable"
	CodeNotConfigured    ErrorCode = "not_configured"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(db.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrJobInFlight, http.StatusConflict, CodeJobInFlight),
		sentinelHandler(domain.ErrUnsupported, http.StatusNotImplemented, CodeNotSupported),
		sentinelHandler(domain.ErrIndex, http.StatusServiceUnavailable, CodeIndexUnavailable),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrConfiguration, http.StatusServiceUnavailable, CodeNotConfigured),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		db.ErrIndexNotFound,
		domain.ErrNotFound,
		domain.ErrJobInFlight,
		domain.ErrUnsupported,
		domain.ErrIndex,
		domain.ErrProvider,
		domain.ErrConfiguration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler exposes the full message of request validation errors;
// they only ever describe the caller's own input.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	return true
}
