package http

import (
	"net/http"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

type MeHandler struct {
	Users *service.UserService
}

type meResponse struct {
	userResponse
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required.")
		return
	}

	u, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load user", "user_id", userID, "err", err)
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		userResponse: userResponse{
			ID:          u.ID,
			Email:       u.Email,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role.String(),
			Verified:    u.Verified,
		},
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	})
}

type SetRoleHandler struct {
	Users *service.UserService
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// ServeHTTP changes a user's role. Reached only through the admin-gated
// middleware chain; takes effect on the target's next token refresh.
func (h *SetRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("id")
	if targetID == "" {
		validationError(w, "A user id is required.")
		return
	}

	var req setRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		validationError(w, "Unknown role.")
		return
	}

	if err := h.Users.SetRole(r.Context(), targetID, role); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
