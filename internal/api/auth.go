package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bodylog/internal/auth"
	"bodylog/internal/constants"
	"bodylog/internal/db"
	"bodylog/internal/models"
)

type AuthHandler struct {
	authService *auth.Service
	users       *db.UserRepository
	development bool
}

func NewAuthHandler(authService *auth.Service, users *db.UserRepository, development bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		development: development,
	}
}

type CheckEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// POST /api/auth/check-email
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.users.FindByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		slog.Error("error checking email", "error", err)
		internalError(w)
		return
	}

	var role *models.Role
	if user != nil {
		role = &user.Role
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exists": user != nil,
		"role":   role,
	})
}

type MagicLinkRequest struct {
	Email string  `json:"email" validate:"required,max=254"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// POST /api/auth/magic-link
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	link, err := h.authService.IssueMagicLink(r.Context(), req.Email, sanitizeTextPtr(req.Name))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			badRequest(w, "Valid email required")
			return
		}
		slog.Error("error issuing magic link", "error", err)
		internalError(w)
		return
	}

	if h.development {
		// Only expose the raw token outside the email in development.
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Magic link generated",
			"devLink":  link.Link,
			"devToken": link.Token,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Check your email for the magic link",
	})
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	session, err := h.authService.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOrExpiredToken):
			writeError(w, http.StatusUnauthorized, constants.ErrCodeInvalidToken, "Invalid or expired token")
		case errors.Is(err, auth.ErrUserNotFound):
			notFound(w, "User not found")
		case errors.Is(err, auth.ErrInvalidInput):
			badRequest(w, "Token required")
		default:
			slog.Error("error verifying magic link", "error", err)
			internalError(w)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      session.User,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": GetUser(r)})
}

type GetRoleRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// POST /api/auth/get-role
func (h *AuthHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	var req GetRoleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.users.FindByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		slog.Error("error looking up role", "error", err)
		internalError(w)
		return
	}

	var role *models.Role
	if user != nil {
		role = &user.Role
	}

	writeJSON(w, http.StatusOK, map[string]any{"role": role})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.RevokeSession(r.Context(), ExtractToken(r)); err != nil {
		slog.Error("error revoking session", "error", err)
		internalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
