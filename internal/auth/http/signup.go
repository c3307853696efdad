package http

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/pkg/httpx"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 512
	minUsernameLength = 3
	maxUsernameLength = 32
)

type SignupHandler struct {
	Auth *service.AuthService
}

type signupRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if desc, ok := validateSignup(req); !ok {
		validationError(w, desc)
		return
	}

	u, err := h.Auth.Signup(r.Context(), service.SignupParams{
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role.String(),
		Verified:    u.Verified,
	})
}

func validateSignup(req signupRequest) (string, bool) {
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return "A valid email address is required.", false
	}

	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return "Username must be between 3 and 32 characters.", false
	}
	for _, c := range username {
		if !isUsernameRune(c) {
			return "Username may only contain letters, digits, '.', '_' and '-'.", false
		}
	}

	if desc, ok := validatePassword(req.Password); !ok {
		return desc, false
	}
	return "", true
}

func validatePassword(password string) (string, bool) {
	if n := utf8.RuneCountInString(password); n < minPasswordLength || n > maxPasswordLength {
		return "Password must be between 8 and 512 characters.", false
	}
	return "", true
}

func isUsernameRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-':
		return true
	}
	return false
}
