package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// writeServiceError maps service-layer sentinels onto HTTP responses.
// Unrecognised errors become an opaque 500; the detail stays in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *service.ThrottledError
	if errors.As(err, &throttled) {
		retryAfter := max(int(throttled.RetryAfter.Seconds()), 1)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		httpx.WriteError(w, http.StatusTooManyRequests,
			"too_many_attempts", "Too many attempts. Please try again later.")
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden,
			"email_not_verified", "Verify your email address before logging in.")
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict,
			"duplicate_email", "An account with this email already exists.")
	case errors.Is(err, service.ErrDuplicateUsername):
		httpx.WriteError(w, http.StatusConflict,
			"duplicate_username", "This username is taken.")
	case errors.Is(err, service.ErrReused):
		// Replayed refresh token: the whole session chain has been revoked.
		httpx.WriteError(w, http.StatusUnauthorized,
			"session_compromised", "This session has been revoked. Please log in again.")
	case errors.Is(err, service.ErrExpired):
		httpx.WriteError(w, http.StatusUnauthorized,
			"expired_token", "The token has expired. Please log in again.")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_or_expired_token", "The token is invalid or has expired.")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "The requested resource does not exist.")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden,
			"forbidden", "You do not have permission to perform this action.")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Something went wrong.")
	}
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Request body is not valid JSON.")
		return false
	}
	return true
}

// validationError rejects a request that failed input validation.
func validationError(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", desc)
}
