package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bodylog/internal/models"
)

type SegmentRepository struct {
	db *DB
}

func NewSegmentRepository(db *DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

func (r *SegmentRepository) FindAll(ctx context.Context) ([]*models.BodySegment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, color, order_index FROM body_segments ORDER BY order_index`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying body segments: %w", err)
	}
	defer rows.Close()

	var segments []*models.BodySegment
	for rows.Next() {
		var s models.BodySegment
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Color, &s.OrderIndex); err != nil {
			return nil, fmt.Errorf("scanning body segment: %w", err)
		}
		segments = append(segments, &s)
	}

	return segments, rows.Err()
}

func (r *SegmentRepository) FindByID(ctx context.Context, id string) (*models.BodySegment, error) {
	var s models.BodySegment

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, color, order_index FROM body_segments WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.Color, &s.OrderIndex)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying body segment: %w", err)
	}

	return &s, nil
}
