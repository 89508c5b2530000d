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

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, email string, name *string, role models.Role) (*models.User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, consent_tracking, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		id, email, name, string(role), now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
	}, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `SELECT id, email, name, role, consent_tracking, created_at, updated_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT id, email, name, role, consent_tracking, created_at, updated_at FROM users WHERE email = ?`, email)
}

type UserUpdate struct {
	Name            *string
	ConsentTracking *bool
}

func (r *UserRepository) Update(ctx context.Context, id string, update UserUpdate) error {
	if update.Name == nil && update.ConsentTracking == nil {
		return nil
	}

	query := `UPDATE users SET updated_at = ?`
	args := []any{time.Now().UTC()}

	if update.Name != nil {
		query += `, name = ?`
		args = append(args, *update.Name)
	}
	if update.ConsentTracking != nil {
		query += `, consent_tracking = ?`
		args = append(args, boolToInt(*update.ConsentTracking))
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) SetConsentTracking(ctx context.Context, id string, consent bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET consent_tracking = ?, updated_at = ? WHERE id = ?`,
		boolToInt(consent), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating consent flag: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var role string
	var consent int
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&role,
		&consent,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.Role = models.NormalizeRole(role)
	u.ConsentTracking = consent != 0
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
