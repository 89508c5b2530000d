package db

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
)

// CleanupService periodically deletes expired auth tokens and sessions.
// Expiry is always enforced at read time, so this only keeps the tables small.
type CleanupService struct {
	authTokens *AuthTokenRepository
	sessions   *SessionRepository
	interval   time.Duration
}

func NewCleanupService(authTokens *AuthTokenRepository, sessions *SessionRepository) *CleanupService {
	return &CleanupService{
		authTokens: authTokens,
		sessions:   sessions,
		interval:   DefaultCleanupInterval,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting token cleanup service", "component", "cleanup", "interval", s.interval)

	s.runCleanup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping token cleanup service", "component", "cleanup")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *CleanupService) runCleanup(ctx context.Context) {
	tokensDeleted, err := s.authTokens.DeleteExpired(ctx)
	if err != nil {
		slog.Error("error deleting expired auth tokens", "component", "cleanup", "error", err)
	} else if tokensDeleted > 0 {
		slog.Info("deleted expired auth tokens", "component", "cleanup", "count", tokensDeleted)
	}

	sessionsDeleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		slog.Error("error deleting expired sessions", "component", "cleanup", "error", err)
	} else if sessionsDeleted > 0 {
		slog.Info("deleted expired sessions", "component", "cleanup", "count", sessionsDeleted)
	}
}
