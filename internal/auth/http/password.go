package http

import (
	"net/http"

	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
)

type PasswordChangeHandler struct {
	Auth *service.AuthService
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *PasswordChangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required.")
		return
	}

	var req passwordChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if desc, ok := validatePassword(req.NewPassword); !ok {
		validationError(w, desc)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PasswordForgotHandler struct {
	Auth *service.AuthService
}

type passwordForgotRequest struct {
	Email string `json:"email"`
}

// ServeHTTP always answers 202: the response must not reveal whether the
// email is registered.
func (h *PasswordForgotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req passwordForgotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		validationError(w, "An email address is required.")
		return
	}

	if err := h.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type PasswordResetHandler struct {
	Auth *service.AuthService
}

type passwordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		validationError(w, "A reset token is required.")
		return
	}
	if desc, ok := validatePassword(req.NewPassword); !ok {
		validationError(w, desc)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
