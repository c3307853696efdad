package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/internal/auth/store/drivers/sqlite"
	"github.com/leafmarks/leafmarks/pkg/cachex"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/jwtx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "leafmarks-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// capturingNotifier records tokens so tests can drive the email flows.
type capturingNotifier struct {
	verifyTokens []string
}

func (n *capturingNotifier) SendEmailVerification(ctx context.Context, email, token string) {
	n.verifyTokens = append(n.verifyTokens, token)
}
func (n *capturingNotifier) SendPasswordReset(ctx context.Context, email, token string)  {}
func (n *capturingNotifier) SendEmailChange(ctx context.Context, newEmail, token string) {}

func newTestServer(t *testing.T) (*httptest.Server, store.Store, *capturingNotifier) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	codec, err := jwtx.NewCodec(priv, "leafmarks-test", time.Minute)
	require.NoError(t, err)

	notifier := &capturingNotifier{}
	users := &service.UserService{
		Store: st,
		Cache: cachex.NewTTL[domain.User](time.Minute),
	}
	auth := &service.AuthService{
		Store: st,
		Tokens: &service.TokenService{
			Store:      st,
			Codec:      codec,
			Users:      users,
			RefreshTTL: time.Hour,
		},
		Users:    users,
		Notifier: notifier,
		Limiter: &service.RateLimiter{
			Store:       st,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		RequireVerifiedEmail: true,
	}

	router := NewRouter(codec, "test", st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router.Auth = auth
	router.Users = users
	router.Authorizer = &service.Authorizer{Users: users}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st, notifier
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func TestAccountLifecycle(t *testing.T) {
	srv, _, notifier := newTestServer(t)

	// Signup.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/signup", "", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "alice@example.com", body["email"])
	require.Equal(t, false, body["verified"])

	// Login is blocked until the email is verified.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "email_not_verified", body["error"])

	// Verify with the delivered token.
	require.Len(t, notifier.verifyTokens, 1)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/verify-email", "", map[string]string{
		"token": notifier.verifyTokens[0],
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Login now succeeds and returns a pair.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := body["access_token"].(string)
	refresh := body["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	// Authenticated profile read.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", body["username"])

	// Refresh rotates the pair.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := body["refresh_token"].(string)
	require.NotEqual(t, refresh, rotated)

	// Replaying the old token reports a compromised session.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "session_compromised", body["error"])

	// Fresh login, then logout.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access = body["access_token"].(string)
	refresh = body["refresh_token"].(string)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/logout", access, map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "session_compromised", body["error"])
}

func TestSignupValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "username": "alice", "password": "longenough"}},
		{"short password", map[string]string{"email": "a@example.com", "username": "alice", "password": "short"}},
		{"short username", map[string]string{"email": "a@example.com", "username": "al", "password": "longenough"}},
		{"bad username chars", map[string]string{"email": "a@example.com", "username": "al ice!", "password": "longenough"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/signup", "", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "invalid_request", body["error"])
		})
	}
}

func TestRoleChangeRequiresAdmin(t *testing.T) {
	srv, st, notifier := newTestServer(t)

	// Two accounts, both verified.
	for _, creds := range []map[string]string{
		{"email": "admin@example.com", "username": "admin", "password": "password1"},
		{"email": "user@example.com", "username": "user1", "password": "password1"},
	} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/signup", "", creds)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	for _, token := range notifier.verifyTokens {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/verify-email", "", map[string]string{"token": token})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	login := func(email string) (string, string) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/login", "", map[string]string{
			"email": email, "password": "password1",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return body["access_token"].(string), body["user"].(map[string]any)["id"].(string)
	}

	adminAccess, adminID := login("admin@example.com")
	userAccess, userID := login("user@example.com")

	// Promote the first account directly; its token predates the change but
	// authorization re-reads the record, so it applies immediately.
	require.NoError(t, st.Users().UpdateRole(t.Context(), adminID, domain.RoleAdmin))

	// Non-admins are rejected.
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/users/"+adminID+"/role", userAccess,
		map[string]string{"role": "moderator"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins can change roles.
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/v1/users/"+userID+"/role", adminAccess,
		map[string]string{"role": "moderator"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	u, err := st.Users().GetUserByID(t.Context(), userID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, u.Role)
}
