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

type AuthTokenRepository struct {
	db *DB
}

func NewAuthTokenRepository(db *DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

func (r *AuthTokenRepository) Create(ctx context.Context, email, token string, expiresAt time.Time) (*models.AuthToken, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, email, token, expires_at, used, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		id, email, token, expiresAt.UTC(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating auth token: %w", err)
	}

	return &models.AuthToken{
		ID:        id,
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ConsumeIfUnused atomically marks the token as used and returns it, but only
// when it is still unused and unexpired. A concurrent second consume of the
// same token sees zero rows affected and gets ErrNotFound.
func (r *AuthTokenRepository) ConsumeIfUnused(ctx context.Context, token string) (*models.AuthToken, error) {
	var t models.AuthToken

	err := r.db.QueryRowContext(ctx,
		`UPDATE auth_tokens SET used = 1 WHERE token = ? AND used = 0 AND expires_at > ? RETURNING id, email, token, expires_at, created_at`,
		token, time.Now().UTC(),
	).Scan(&t.ID, &t.Email, &t.Token, &t.ExpiresAt, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming auth token: %w", err)
	}

	t.Used = true

	return &t, nil
}

func (r *AuthTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired auth tokens: %w", err)
	}

	return result.RowsAffected()
}
