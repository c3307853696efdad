package http

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type VerifyEmailHandler struct {
	Auth *service.AuthService
}

func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		validationError(w, "A verification token is required.")
		return
	}

	if err := h.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ResendVerificationHandler struct {
	Auth *service.AuthService
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

// ServeHTTP always answers 202 on success paths, like the forgot-password
// endpoint, so it cannot be used to probe for registered addresses.
func (h *ResendVerificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		validationError(w, "An email address is required.")
		return
	}

	if err := h.Auth.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type EmailChangeRequestHandler struct {
	Auth *service.AuthService
}

type emailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

func (h *EmailChangeRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required.")
		return
	}

	var req emailChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.NewEmail)); err != nil {
		validationError(w, "A valid email address is required.")
		return
	}

	if err := h.Auth.RequestEmailChange(r.Context(), userID, req.NewEmail); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type EmailChangeConfirmHandler struct {
	Auth *service.AuthService
}

func (h *EmailChangeConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		validationError(w, "A confirmation token is required.")
		return
	}

	if err := h.Auth.ConfirmEmailChange(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
