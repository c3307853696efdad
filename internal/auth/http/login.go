package http

import (
	"net/http"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
)

type LoginHandler struct {
	Auth *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	User *userResponse `json:"user,omitempty"`
	domain.TokenPair
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		validationError(w, "Email and password are required.")
		return
	}

	u, pair, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenPairResponse{
		User: &userResponse{
			ID:          u.ID,
			Email:       u.Email,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role.String(),
			Verified:    u.Verified,
		},
		TokenPair: pair,
	})
}
