package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"openstays_catalog/internal/domain"
)

const (
	codeValidation       = "VALIDATION_ERROR"
	codeNotFound         = "NOT_FOUND"
	codeInvalidAPIKey    = "INVALID_API_KEY"
	codeInvalidToken     = "INVALID_TOKEN"
	codeTokenExpired     = "TOKEN_EXPIRED"
	codeAuthRequired     = "AUTHENTICATION_REQUIRED"
	codeInsufficient     = "INSUFFICIENT_SCOPE"
	codeRateLimited      = "RATE_LIMIT_EXCEEDED"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL_ERROR"
)

type errorBody struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Errors    []domain.FieldError `json:"errors,omitempty"`
	RequestID string              `json:"request_id"`
}

// writeError is the single place domain errors become HTTP responses.
// Anything unrecognised is logged and reported as INTERNAL_ERROR without
// echoing the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeCode(w, r, http.StatusBadRequest, codeValidation, "invalid request parameters", verr.Fields)
	case errors.Is(err, domain.ErrNotFound):
		writeCode(w, r, http.StatusNotFound, codeNotFound, "property not found", nil)
	case errors.Is(err, domain.ErrInvalidAPIKey):
		writeCode(w, r, http.StatusUnauthorized, codeInvalidAPIKey, "invalid api key", nil)
	case errors.Is(err, domain.ErrInvalidToken):
		writeCode(w, r, http.StatusUnauthorized, codeInvalidToken, "invalid access token", nil)
	case errors.Is(err, domain.ErrTokenExpired):
		writeCode(w, r, http.StatusUnauthorized, codeTokenExpired, "access token expired", nil)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request timed out")
		writeCode(w, r, http.StatusInternalServerError, codeInternal, "request timed out", nil)
	default:
		log.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeCode(w, r, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}

func writeCode(w http.ResponseWriter, r *http.Request, status int, code, msg string, fields []domain.FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := errorBody{Code: code, Message: msg, Errors: fields, RequestID: RequestIDFrom(r.Context())}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("write JSON error response failed")
	}
}
