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

type RelationshipRepository struct {
	db *DB
}

func NewRelationshipRepository(db *DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

func (r *RelationshipRepository) Add(ctx context.Context, instructorID, studentID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO instructor_students (id, instructor_id, student_id, consent_given, created_at) VALUES (?, ?, ?, 0, ?)`,
		uuid.NewString(), instructorID, studentID, time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating instructor-student relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) ListStudents(ctx context.Context, instructorID string) ([]*models.StudentLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.consent_tracking, isr.consent_given, isr.consent_date, u.created_at
           FROM users u
           JOIN instructor_students isr ON isr.student_id = u.id
          WHERE isr.instructor_id = ?
          ORDER BY u.name, u.email`,
		instructorID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying students: %w", err)
	}
	defer rows.Close()

	var students []*models.StudentLink
	for rows.Next() {
		var s models.StudentLink
		var tracking, given int
		var consentDate sql.NullTime

		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &tracking, &given, &consentDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning student: %w", err)
		}

		s.ConsentTracking = tracking != 0
		s.ConsentGiven = given != 0
		s.ConsentDate = nullTimeToPtr(consentDate)
		students = append(students, &s)
	}

	return students, rows.Err()
}

func (r *RelationshipRepository) ListInstructors(ctx context.Context, studentID string) ([]*models.InstructorLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, isr.consent_given, isr.consent_date
           FROM users u
           JOIN instructor_students isr ON isr.instructor_id = u.id
          WHERE isr.student_id = ?`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying instructors: %w", err)
	}
	defer rows.Close()

	var instructors []*models.InstructorLink
	for rows.Next() {
		var i models.InstructorLink
		var given int
		var consentDate sql.NullTime

		if err := rows.Scan(&i.ID, &i.Email, &i.Name, &given, &consentDate); err != nil {
			return nil, fmt.Errorf("scanning instructor: %w", err)
		}

		i.ConsentGiven = given != 0
		i.ConsentDate = nullTimeToPtr(consentDate)
		instructors = append(instructors, &i)
	}

	return instructors, rows.Err()
}

func (r *RelationshipRepository) SetConsent(ctx context.Context, instructorID, studentID string, consent bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE instructor_students SET consent_given = ?, consent_date = ? WHERE instructor_id = ? AND student_id = ?`,
		boolToInt(consent), time.Now().UTC(), instructorID, studentID,
	)
	if err != nil {
		return fmt.Errorf("updating consent: %w", err)
	}
	return checkRowsAffected(result)
}

// HasConsent reports whether the student granted the instructor access to
// their aggregated data.
func (r *RelationshipRepository) HasConsent(ctx context.Context, instructorID, studentID string) (bool, error) {
	var given int
	err := r.db.QueryRowContext(ctx,
		`SELECT consent_given FROM instructor_students WHERE instructor_id = ? AND student_id = ?`,
		instructorID, studentID,
	).Scan(&given)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying consent: %w", err)
	}

	return given != 0, nil
}
