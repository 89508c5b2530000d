package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"bodylog/internal/auth"
	"bodylog/internal/models"
)

type contextKey string

const userKey contextKey = "user"

const (
	// TokenHeader is checked before the Authorization header and the
	// session cookie, in that order.
	TokenHeader   = "X-Session-Token"
	SessionCookie = "bodylog_session"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// ExtractToken pulls the session token from the custom header, the
// Authorization header, or the session cookie, in that priority order.
func ExtractToken(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}

	return ""
}

// RequireAuth resolves the session token to a user and stores it in the
// request context. Missing, unknown and expired tokens all map to 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authService.Authenticate(r.Context(), ExtractToken(r))
		if err != nil {
			slog.Error("error authenticating request", "error", err)
			internalError(w)
			return
		}
		if user == nil {
			unauthorized(w, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the user when a valid session is presented but lets
// anonymous requests through.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authService.Authenticate(r.Context(), ExtractToken(r))
		if err != nil {
			slog.Error("error authenticating request", "error", err)
			internalError(w)
			return
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		}

		next.ServeHTTP(w, r)
	})
}

// RequireInstructor gates a route to instructors; admins pass as well.
func (m *AuthMiddleware) RequireInstructor(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if err := m.authService.RequireRole(user, models.RoleInstructor); err != nil {
			forbidden(w, "Instructor access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func GetUser(r *http.Request) *models.User {
	if v := r.Context().Value(userKey); v != nil {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
