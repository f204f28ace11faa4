package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"platform-gateway-core/internal/domain"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteDomainError maps a service error onto the HTTP surface. Messages are
// intentionally generic; the wrapped detail stays in the server logs.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing or malformed parameters")
	case errors.Is(err, domain.ErrAuthentication):
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication failed")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrUpstream):
		WriteError(w, http.StatusInternalServerError, "UPSTREAM_ERROR", "provider exchange failed")
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
