package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

// SessionCookieName is the cookie that carries the admin session token.
const SessionCookieName = "admin_session"

type contextKeyAuth string

const (
	// AuthAdminKey is the context key for the authenticated admin.
	AuthAdminKey contextKeyAuth = "auth_admin"
)

// Authenticate returns an HTTP middleware that resolves the session cookie
// to an active admin. Requests without a valid session get 401; sessions for
// deactivated accounts get 403. On success the admin is attached to the
// request context.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(SessionCookieName); err == nil {
				token = c.Value
			}

			result, err := authSvc.AuthorizeRequest(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			switch result.Outcome {
			case service.Authenticated:
				ctx := context.WithValue(r.Context(), AuthAdminKey, result.Admin)
				next.ServeHTTP(w, r.WithContext(ctx))
			case service.Forbidden:
				writeAuthError(w, http.StatusForbidden, "Admin account is inactive")
			default:
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
			}
		})
	}
}

// RequireRole returns an HTTP middleware that rejects admins ranked below
// min. It must be used after Authenticate in the middleware chain.
func RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := GetAdmin(r.Context())
			if admin == nil {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !admin.Role.AtLeast(min) {
				writeAuthError(w, http.StatusForbidden, string(min)+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAdmin extracts the authenticated admin from the context.
// Returns nil if the request was not authenticated.
func GetAdmin(ctx context.Context) *model.Admin {
	if a, ok := ctx.Value(AuthAdminKey).(*model.Admin); ok {
		return a
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"` + message + `"}}`))
}
