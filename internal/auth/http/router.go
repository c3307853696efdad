package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/httpx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store      store.Store
	Auth       *service.AuthService
	Users      *service.UserService
	Authorizer *service.Authorizer
}

func NewRouter(
	verifier httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPassword()
	r.registerEmail()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies the bearer token before the handler runs.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.verifier)
}

func (r *Router) registerAuth() {
	// Unauthenticated credential endpoints carry the strict IP limit: the
	// per-identity attempt window in the service is the second layer.
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(&SignupHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/login",
		httpx.Chain(&LoginHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/refresh",
		httpx.Chain(&RefreshHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(&LogoutHandler{Auth: r.Auth},
			r.authn(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	r.Mux.Handle("POST /v1/password/change",
		httpx.Chain(&PasswordChangeHandler{Auth: r.Auth},
			r.authn(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/password/forgot",
		httpx.Chain(&PasswordForgotHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(&PasswordResetHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerEmail() {
	r.Mux.Handle("POST /v1/verify-email",
		httpx.Chain(&VerifyEmailHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/verify-email/resend",
		httpx.Chain(&ResendVerificationHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/email/change-request",
		httpx.Chain(&EmailChangeRequestHandler{Auth: r.Auth},
			r.authn(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/email/change-confirm",
		httpx.Chain(&EmailChangeConfirmHandler{Auth: r.Auth},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(&MeHandler{Users: r.Users},
			r.authn(),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		),
	)

	// Role changes are admin-only; the authorizer re-reads the user record
	// so a deactivated admin is locked out before the token expires.
	r.Mux.Handle("PUT /v1/users/{id}/role",
		httpx.Chain(&SetRoleHandler{Users: r.Users},
			r.authn(),
			httpx.RequireRole(domain.RoleAdmin.String(), r.authorize),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) authorize(ctx context.Context, userID, requiredRole string) error {
	role, err := domain.ParseRole(requiredRole)
	if err != nil {
		return err
	}
	return r.Authorizer.Authorize(ctx, userID, role)
}
