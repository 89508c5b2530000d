package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bodylog/internal/models"
)

type ExerciseRepository struct {
	db *DB
}

func NewExerciseRepository(db *DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

func (r *ExerciseRepository) FindCategories(ctx context.Context) ([]*models.ExerciseCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM exercise_categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying exercise categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.ExerciseCategory
	for rows.Next() {
		var c models.ExerciseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scanning exercise category: %w", err)
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

type ExerciseFilter struct {
	// ViewerID widens visibility from public-only to public plus the
	// viewer's own exercises.
	ViewerID   string
	CategoryID string
	Difficulty string
}

func (r *ExerciseRepository) FindAll(ctx context.Context, filter ExerciseFilter) ([]*models.Exercise, error) {
	query := `SELECT e.id, e.title, e.description, e.instructions, e.duration_minutes,
                     e.category_id, c.name, e.target_segments, e.difficulty, e.safety_notes,
                     e.created_by, e.is_public, e.created_at, e.updated_at
                FROM exercises e
                LEFT JOIN exercise_categories c ON e.category_id = c.id
               WHERE (e.is_public = 1`
	var args []any

	if filter.ViewerID != "" {
		query += ` OR e.created_by = ?`
		args = append(args, filter.ViewerID)
	}
	query += `)`

	if filter.CategoryID != "" {
		query += ` AND e.category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if filter.Difficulty != "" {
		query += ` AND e.difficulty = ?`
		args = append(args, filter.Difficulty)
	}

	query += ` ORDER BY e.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var exercises []*models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}

	return exercises, rows.Err()
}

func (r *ExerciseRepository) FindByID(ctx context.Context, id string) (*models.Exercise, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.title, e.description, e.instructions, e.duration_minutes,
                e.category_id, c.name, e.target_segments, e.difficulty, e.safety_notes,
                e.created_by, e.is_public, e.created_at, e.updated_at
           FROM exercises e
           LEFT JOIN exercise_categories c ON e.category_id = c.id
          WHERE e.id = ?`,
		id,
	)

	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}

type NewExercise struct {
	Title           string
	Description     *string
	Instructions    *string
	DurationMinutes *int
	CategoryID      *string
	TargetSegments  []string
	Difficulty      string
	SafetyNotes     *string
	CreatedBy       string
	IsPublic        bool
}

func (r *ExerciseRepository) Create(ctx context.Context, e NewExercise) (*models.Exercise, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	if e.TargetSegments == nil {
		e.TargetSegments = []string{}
	}
	segments, err := json.Marshal(e.TargetSegments)
	if err != nil {
		return nil, fmt.Errorf("encoding target segments: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO exercises (id, title, description, instructions, duration_minutes,
                                category_id, target_segments, difficulty, safety_notes,
                                created_by, is_public, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Title, e.Description, e.Instructions, e.DurationMinutes,
		e.CategoryID, string(segments), e.Difficulty, e.SafetyNotes,
		e.CreatedBy, boolToInt(e.IsPublic), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating exercise: %w", err)
	}

	return r.FindByID(ctx, id)
}

type ExerciseUpdate struct {
	Title           *string
	Description     *string
	Instructions    *string
	DurationMinutes *int
	CategoryID      *string
	TargetSegments  []string
	Difficulty      *string
	SafetyNotes     *string
	IsPublic        *bool
}

func (r *ExerciseRepository) Update(ctx context.Context, id string, update ExerciseUpdate) error {
	query := `UPDATE exercises SET updated_at = ?`
	args := []any{time.Now().UTC()}

	if update.Title != nil {
		query += `, title = ?`
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		query += `, description = ?`
		args = append(args, *update.Description)
	}
	if update.Instructions != nil {
		query += `, instructions = ?`
		args = append(args, *update.Instructions)
	}
	if update.DurationMinutes != nil {
		query += `, duration_minutes = ?`
		args = append(args, *update.DurationMinutes)
	}
	if update.CategoryID != nil {
		query += `, category_id = ?`
		args = append(args, *update.CategoryID)
	}
	if update.TargetSegments != nil {
		segments, err := json.Marshal(update.TargetSegments)
		if err != nil {
			return fmt.Errorf("encoding target segments: %w", err)
		}
		query += `, target_segments = ?`
		args = append(args, string(segments))
	}
	if update.Difficulty != nil {
		query += `, difficulty = ?`
		args = append(args, *update.Difficulty)
	}
	if update.SafetyNotes != nil {
		query += `, safety_notes = ?`
		args = append(args, *update.SafetyNotes)
	}
	if update.IsPublic != nil {
		query += `, is_public = ?`
		args = append(args, boolToInt(*update.IsPublic))
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *ExerciseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	return checkRowsAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*models.Exercise, error) {
	var e models.Exercise
	var segments string
	var isPublic int
	var updatedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Instructions, &e.DurationMinutes,
		&e.CategoryID, &e.CategoryName, &segments, &e.Difficulty, &e.SafetyNotes,
		&e.CreatedBy, &isPublic, &e.CreatedAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scanning exercise: %w", err)
	}

	if err := json.Unmarshal([]byte(segments), &e.TargetSegments); err != nil {
		e.TargetSegments = []string{}
	}
	if e.TargetSegments == nil {
		e.TargetSegments = []string{}
	}
	e.IsPublic = isPublic != 0
	e.UpdatedAt = nullTimeToPtr(updatedAt)

	return &e, nil
}
