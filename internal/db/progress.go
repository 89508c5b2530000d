package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bodylog/internal/models"
)

type ProgressRepository struct {
	db *DB
}

func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Summary(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	var s models.ProgressSummary

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COUNT(DISTINCT session_id),
                AVG(mood_rating),
                AVG(energy_rating),
                AVG(grounding_rating)
           FROM body_experiences
          WHERE user_id = ?`,
		userID,
	).Scan(&s.TotalExperiences, &s.TotalSessions, &s.AvgMood, &s.AvgEnergy, &s.AvgGrounding)
	if err != nil {
		return nil, fmt.Errorf("querying progress summary: %w", err)
	}

	var last string
	err = r.db.QueryRowContext(ctx,
		`SELECT created_at FROM body_experiences WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying last experience: %w", err)
	}
	if err == nil {
		s.LastExperience = &last
	}

	return &s, nil
}

func (r *ProgressRepository) Trends(ctx context.Context, userID string, days int) ([]*models.TrendPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date(created_at),
                AVG(mood_rating),
                AVG(energy_rating),
                AVG(grounding_rating),
                COUNT(*)
           FROM body_experiences
          WHERE user_id = ?
            AND created_at >= datetime('now', '-' || ? || ' days')
          GROUP BY date(created_at)
          ORDER BY date(created_at) ASC`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trends: %w", err)
	}
	defer rows.Close()

	var trends []*models.TrendPoint
	for rows.Next() {
		var t models.TrendPoint
		if err := rows.Scan(&t.Date, &t.AvgMood, &t.AvgEnergy, &t.AvgGrounding, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning trend point: %w", err)
		}
		trends = append(trends, &t)
	}

	return trends, rows.Err()
}

func (r *ProgressRepository) SegmentStats(ctx context.Context, userID string, days int) ([]*models.SegmentStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bs.id, bs.name, bs.color,
                AVG(ss.intensity),
                COUNT(*),
                GROUP_CONCAT(DISTINCT ss.sensation_type)
           FROM segment_sensations ss
           JOIN body_segments bs ON ss.segment_id = bs.id
           JOIN body_experiences be ON ss.experience_id = be.id
          WHERE be.user_id = ?
            AND be.created_at >= datetime('now', '-' || ? || ' days')
          GROUP BY bs.id
          ORDER BY bs.order_index`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("querying segment stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.SegmentStats
	for rows.Next() {
		var s models.SegmentStats
		var types sql.NullString
		if err := rows.Scan(&s.SegmentID, &s.SegmentName, &s.SegmentColor,
			&s.AvgIntensity, &s.SensationCount, &types); err != nil {
			return nil, fmt.Errorf("scanning segment stats: %w", err)
		}
		s.SensationTypes = types.String
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

// Comparisons builds before/after rating deltas for the most recent sessions
// that recorded at least two experience types.
func (r *ProgressRepository) Comparisons(ctx context.Context, userID string, limit int) ([]*models.SessionComparison, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id
           FROM body_experiences
          WHERE user_id = ?
          GROUP BY session_id
         HAVING COUNT(DISTINCT experience_type) >= 2
          ORDER BY MAX(created_at) DESC
          LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comparison sessions: %w", err)
	}

	var sessionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		sessionIDs = append(sessionIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	comparisons := []*models.SessionComparison{}
	for _, sessionID := range sessionIDs {
		comparison, err := r.compareSession(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if comparison != nil {
			comparisons = append(comparisons, comparison)
		}
	}

	return comparisons, nil
}

func (r *ProgressRepository) compareSession(ctx context.Context, sessionID, userID string) (*models.SessionComparison, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT be.experience_type, be.mood_rating, be.energy_rating, be.grounding_rating,
                be.created_at, e.title
           FROM body_experiences be
           LEFT JOIN exercises e ON be.exercise_id = e.id
          WHERE be.session_id = ? AND be.user_id = ? AND be.experience_type IN ('before', 'after')
          ORDER BY be.created_at ASC`,
		sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session pair: %w", err)
	}
	defer rows.Close()

	type entry struct {
		snapshot models.RatingSnapshot
		date     string
		title    *string
	}
	var before, after *entry

	for rows.Next() {
		var expType, createdAt string
		var e entry
		if err := rows.Scan(&expType, &e.snapshot.Mood, &e.snapshot.Energy, &e.snapshot.Grounding,
			&createdAt, &e.title); err != nil {
			return nil, fmt.Errorf("scanning session pair: %w", err)
		}
		e.date = createdAt

		switch expType {
		case "before":
			if before == nil {
				before = &e
			}
		case "after":
			if after == nil {
				after = &e
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if before == nil || after == nil {
		return nil, nil
	}

	title := before.title
	if title == nil {
		title = after.title
	}

	return &models.SessionComparison{
		SessionID:     sessionID,
		ExerciseTitle: title,
		Before:        before.snapshot,
		After:         after.snapshot,
		Changes: models.RatingSnapshot{
			Mood:      ratingDelta(before.snapshot.Mood, after.snapshot.Mood),
			Energy:    ratingDelta(before.snapshot.Energy, after.snapshot.Energy),
			Grounding: ratingDelta(before.snapshot.Grounding, after.snapshot.Grounding),
		},
		Date: after.date,
	}, nil
}

func (r *ProgressRepository) ExerciseUsage(ctx context.Context, userID string) ([]*models.ExerciseUsage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.title, e.category_id,
                COUNT(be.id),
                AVG(CASE WHEN be.experience_type = 'after' THEN be.mood_rating END),
                MAX(be.created_at)
           FROM exercises e
           JOIN body_experiences be ON e.id = be.exercise_id AND be.user_id = ?
          GROUP BY e.id
          ORDER BY COUNT(be.id) DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying exercise usage: %w", err)
	}
	defer rows.Close()

	var usage []*models.ExerciseUsage
	for rows.Next() {
		var u models.ExerciseUsage
		var lastUsed sql.NullString
		if err := rows.Scan(&u.ID, &u.Title, &u.CategoryID, &u.TimesUsed, &u.AvgMoodAfter, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning exercise usage: %w", err)
		}
		if lastUsed.Valid {
			u.LastUsed = &lastUsed.String
		}
		usage = append(usage, &u)
	}

	return usage, rows.Err()
}

func ratingDelta(before, after *int) *int {
	b, a := 0, 0
	if before != nil {
		b = *before
	}
	if after != nil {
		a = *after
	}
	d := a - b
	return &d
}
