package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bodylog/internal/db"
	"bodylog/internal/models"
)

const (
	MagicLinkTTL = 15 * time.Minute
	SessionTTL   = 30 * 24 * time.Hour
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")
	ErrForbidden             = errors.New("forbidden")
)

// EmailSender delivers a magic link. Delivery is best effort: issuance
// succeeds even when sending fails.
type EmailSender interface {
	SendMagicLink(to, link string, ttl time.Duration) error
}

// Service implements the session-authentication contract: one-shot
// short-lived magic-link tokens exchanged for long-lived revocable sessions.
type Service struct {
	users      *db.UserRepository
	authTokens *db.AuthTokenRepository
	sessions   *db.SessionRepository
	email      EmailSender
	baseURL    string
}

func NewService(
	users *db.UserRepository,
	authTokens *db.AuthTokenRepository,
	sessions *db.SessionRepository,
	email EmailSender,
	baseURL string,
) *Service {
	return &Service{
		users:      users,
		authTokens: authTokens,
		sessions:   sessions,
		email:      email,
		baseURL:    baseURL,
	}
}

type MagicLink struct {
	Token     string
	Link      string
	ExpiresAt time.Time
}

// IssueMagicLink creates the user on first contact (role student), persists a
// one-shot token and hands the link to the email sender.
func (s *Service) IssueMagicLink(ctx context.Context, email string, name *string) (*MagicLink, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email required", ErrInvalidInput)
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		if _, err := s.users.Create(ctx, email, name, models.RoleStudent); err != nil {
			// A concurrent request for the same email may have won the
			// insert; the unique email constraint makes that harmless.
			if !errors.Is(err, db.ErrDuplicate) {
				return nil, fmt.Errorf("creating user: %w", err)
			}
		}
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generating magic link token: %w", err)
	}

	expiresAt := time.Now().Add(MagicLinkTTL)
	if _, err := s.authTokens.Create(ctx, email, token, expiresAt); err != nil {
		return nil, fmt.Errorf("storing magic link token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", s.baseURL, token)
	if s.email != nil {
		if err := s.email.SendMagicLink(email, link, MagicLinkTTL); err != nil {
			slog.Error("error sending magic link email", "component", "auth", "error", err)
		}
	}

	return &MagicLink{Token: token, Link: link, ExpiresAt: expiresAt}, nil
}

type VerifiedSession struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// VerifyMagicLink consumes the token and issues a session. Consumption is a
// conditional update in the store, so of two concurrent verifications of the
// same token exactly one succeeds.
func (s *Service) VerifyMagicLink(ctx context.Context, token string) (*VerifiedSession, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token required", ErrInvalidInput)
	}

	authToken, err := s.authTokens.ConsumeIfUnused(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("consuming magic link token: %w", err)
	}

	user, err := s.users.FindByEmail(ctx, authToken.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	sessionToken, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	expiresAt := time.Now().Add(SessionTTL)
	if _, err := s.sessions.Create(ctx, user.ID, sessionToken, expiresAt); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &VerifiedSession{Token: sessionToken, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a session token to its user. Returns (nil, nil) when
// no live session matches; the caller maps that to 401.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := s.sessions.FindUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	return user, nil
}

// RequireRole gates by role membership. Admin satisfies any instructor check.
func (s *Service) RequireRole(user *models.User, roles ...models.Role) error {
	if user == nil {
		return ErrForbidden
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
		if role == models.RoleInstructor && user.Role == models.RoleAdmin {
			return nil
		}
	}
	return ErrForbidden
}

// RevokeSession deletes the session; revoking an unknown token is a no-op.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
