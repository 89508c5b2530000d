package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bodylog/internal/models"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) (*models.Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, token, expiresAt.UTC(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &models.Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// FindUserByToken resolves a live session token to its user. Expiry is
// checked in the query, not by a background process.
func (r *SessionRepository) FindUserByToken(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	var role string
	var consent int
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.name, u.role, u.consent_tracking, u.created_at, u.updated_at
           FROM users u
           JOIN sessions s ON s.user_id = u.id
          WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC(),
	).Scan(&u.ID, &u.Email, &u.Name, &role, &consent, &u.CreatedAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session user: %w", err)
	}

	u.Role = models.NormalizeRole(role)
	u.ConsentTracking = consent != 0
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

// Delete removes the session with the given token. Deleting an absent
// session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	return result.RowsAffected()
}
