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

type ExperienceRepository struct {
	db *DB
}

func NewExperienceRepository(db *DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

type NewExperience struct {
	UserID          string
	ExerciseID      *string
	ExperienceType  string
	SessionID       string
	Notes           *string
	MoodRating      *int
	EnergyRating    *int
	GroundingRating *int
	Sensations      []NewSensation
}

type NewSensation struct {
	SegmentID     string
	SensationType *string
	Intensity     *int
	Notes         *string
}

// Create inserts the experience and its sensations in one transaction.
func (r *ExperienceRepository) Create(ctx context.Context, exp NewExperience) (*models.Experience, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting experience transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO body_experiences (id, user_id, exercise_id, experience_type, session_id,
                                       notes, mood_rating, energy_rating, grounding_rating, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, exp.UserID, exp.ExerciseID, exp.ExperienceType, exp.SessionID,
		exp.Notes, exp.MoodRating, exp.EnergyRating, exp.GroundingRating, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating experience: %w", err)
	}

	for _, s := range exp.Sensations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO segment_sensations (id, experience_id, segment_id, sensation_type, intensity, notes)
             VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), id, s.SegmentID, s.SensationType, s.Intensity, s.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("creating segment sensation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing experience: %w", err)
	}

	return r.FindByID(ctx, id, exp.UserID)
}

func (r *ExperienceRepository) FindByID(ctx context.Context, id, userID string) (*models.Experience, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT be.id, be.user_id, be.exercise_id, e.title, be.experience_type, be.session_id,
                be.notes, be.mood_rating, be.energy_rating, be.grounding_rating, be.created_at
           FROM body_experiences be
           LEFT JOIN exercises e ON be.exercise_id = e.id
          WHERE be.id = ? AND be.user_id = ?`,
		id, userID,
	)

	exp, err := scanExperience(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachSensations(ctx, []*models.Experience{exp}); err != nil {
		return nil, err
	}

	return exp, nil
}

type ExperienceFilter struct {
	UserID    string
	SessionID string
	Limit     int
	Offset    int
}

func (r *ExperienceRepository) FindAll(ctx context.Context, filter ExperienceFilter) ([]*models.Experience, error) {
	query := `SELECT be.id, be.user_id, be.exercise_id, e.title, be.experience_type, be.session_id,
                     be.notes, be.mood_rating, be.energy_rating, be.grounding_rating, be.created_at
                FROM body_experiences be
                LEFT JOIN exercises e ON be.exercise_id = e.id
               WHERE be.user_id = ?`
	args := []any{filter.UserID}

	if filter.SessionID != "" {
		query += ` AND be.session_id = ?`
		args = append(args, filter.SessionID)
	}

	query += ` ORDER BY be.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	return r.queryExperiences(ctx, query, args...)
}

// FindBySession returns the session's experiences oldest first, so a
// before/after pair comes back in order.
func (r *ExperienceRepository) FindBySession(ctx context.Context, sessionID, userID string) ([]*models.Experience, error) {
	return r.queryExperiences(ctx,
		`SELECT be.id, be.user_id, be.exercise_id, e.title, be.experience_type, be.session_id,
                be.notes, be.mood_rating, be.energy_rating, be.grounding_rating, be.created_at
           FROM body_experiences be
           LEFT JOIN exercises e ON be.exercise_id = e.id
          WHERE be.session_id = ? AND be.user_id = ?
          ORDER BY be.created_at ASC`,
		sessionID, userID,
	)
}

func (r *ExperienceRepository) FindRecentForUser(ctx context.Context, userID string, limit int) ([]*models.Experience, error) {
	return r.queryExperiences(ctx,
		`SELECT be.id, be.user_id, be.exercise_id, e.title, be.experience_type, be.session_id,
                be.notes, be.mood_rating, be.energy_rating, be.grounding_rating, be.created_at
           FROM body_experiences be
           LEFT JOIN exercises e ON be.exercise_id = e.id
          WHERE be.user_id = ?
          ORDER BY be.created_at DESC
          LIMIT ?`,
		userID, limit,
	)
}

// Delete removes the experience and its sensations, scoped to the owner.
func (r *ExperienceRepository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM segment_sensations
          WHERE experience_id IN (SELECT id FROM body_experiences WHERE id = ? AND user_id = ?)`,
		id, userID,
	); err != nil {
		return fmt.Errorf("deleting sensations: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM body_experiences WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting experience: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ExperienceRepository) CreateSafetyCheckin(ctx context.Context, userID string, experienceID, notes *string, feelingSafe, needsSupport bool) (*models.SafetyCheckin, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO safety_checkins (id, user_id, experience_id, feeling_safe, needs_support, notes, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, experienceID, boolToInt(feelingSafe), boolToInt(needsSupport), notes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating safety checkin: %w", err)
	}

	return &models.SafetyCheckin{
		ID:           id,
		UserID:       userID,
		ExperienceID: experienceID,
		FeelingSafe:  feelingSafe,
		NeedsSupport: needsSupport,
		Notes:        notes,
		CreatedAt:    now,
	}, nil
}

func (r *ExperienceRepository) queryExperiences(ctx context.Context, query string, args ...any) ([]*models.Experience, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying experiences: %w", err)
	}
	defer rows.Close()

	var experiences []*models.Experience
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		experiences = append(experiences, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachSensations(ctx, experiences); err != nil {
		return nil, err
	}

	return experiences, nil
}

func (r *ExperienceRepository) attachSensations(ctx context.Context, experiences []*models.Experience) error {
	for _, exp := range experiences {
		rows, err := r.db.QueryContext(ctx,
			`SELECT ss.id, ss.experience_id, ss.segment_id, bs.name, bs.color,
                    ss.sensation_type, ss.intensity, ss.notes
               FROM segment_sensations ss
               JOIN body_segments bs ON ss.segment_id = bs.id
              WHERE ss.experience_id = ?`,
			exp.ID,
		)
		if err != nil {
			return fmt.Errorf("querying sensations: %w", err)
		}

		sensations := []*models.Sensation{}
		for rows.Next() {
			var s models.Sensation
			if err := rows.Scan(&s.ID, &s.ExperienceID, &s.SegmentID, &s.SegmentName, &s.SegmentColor,
				&s.SensationType, &s.Intensity, &s.Notes); err != nil {
				rows.Close()
				return fmt.Errorf("scanning sensation: %w", err)
			}
			sensations = append(sensations, &s)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		exp.Sensations = sensations
	}

	return nil
}

func scanExperience(row rowScanner) (*models.Experience, error) {
	var exp models.Experience

	err := row.Scan(
		&exp.ID, &exp.UserID, &exp.ExerciseID, &exp.ExerciseTitle, &exp.ExperienceType,
		&exp.SessionID, &exp.Notes, &exp.MoodRating, &exp.EnergyRating,
		&exp.GroundingRating, &exp.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scanning experience: %w", err)
	}

	exp.Sensations = []*models.Sensation{}

	return &exp, nil
}
