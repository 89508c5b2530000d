package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bodylog/internal/auth"
	"bodylog/internal/db"
	"bodylog/internal/models"
)

type UserHandler struct {
	users         *db.UserRepository
	relationships *db.RelationshipRepository
	experiences   *db.ExperienceRepository
	progress      *db.ProgressRepository
}

func NewUserHandler(
	users *db.UserRepository,
	relationships *db.RelationshipRepository,
	experiences *db.ExperienceRepository,
	progress *db.ProgressRepository,
) *UserHandler {
	return &UserHandler{
		users:         users,
		relationships: relationships,
		experiences:   experiences,
		progress:      progress,
	}
}

type UpdateMeRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,max=100"`
	ConsentTracking *bool   `json:"consentTracking,omitempty"`
}

// PUT /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Name == nil && req.ConsentTracking == nil {
		badRequest(w, "No updates provided")
		return
	}

	userID := GetUser(r).ID
	err := h.users.Update(r.Context(), userID, db.UserUpdate{
		Name:            sanitizeTextPtr(req.Name),
		ConsentTracking: req.ConsentTracking,
	})
	if err != nil {
		slog.Error("error updating profile", "error", err)
		internalError(w)
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("error reloading user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// GET /api/users/students (instructors only)
func (h *UserHandler) GetStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.relationships.ListStudents(r.Context(), GetUser(r).ID)
	if err != nil {
		slog.Error("error listing students", "error", err)
		internalError(w)
		return
	}
	if students == nil {
		students = []*models.StudentLink{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

type AddStudentRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// POST /api/users/students (instructors only)
// Invites a student by email; an unknown email creates a student account so
// the relationship exists when they first sign in.
func (h *UserHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var req AddStudentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := auth.NormalizeEmail(req.Email)
	student, err := h.users.FindByEmail(r.Context(), email)
	if errors.Is(err, db.ErrNotFound) {
		student, err = h.users.Create(r.Context(), email, nil, models.RoleStudent)
		if errors.Is(err, db.ErrDuplicate) {
			// Lost a race with the student's own first sign-in.
			student, err = h.users.FindByEmail(r.Context(), email)
		}
	}
	if err != nil {
		slog.Error("error resolving student", "error", err)
		internalError(w)
		return
	}

	if err := h.relationships.Add(r.Context(), GetUser(r).ID, student.ID); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			conflict(w, "Student already added")
			return
		}
		slog.Error("error adding student", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

type ConsentRequest struct {
	InstructorID string `json:"instructorId" validate:"required"`
	Consent      bool   `json:"consent"`
}

// POST /api/users/consent
// The student grants or revokes a specific instructor's access; the user's
// general tracking flag follows the decision.
func (h *UserHandler) SetConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user := GetUser(r)
	if err := h.relationships.SetConsent(r.Context(), req.InstructorID, user.ID, req.Consent); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Instructor relationship not found")
			return
		}
		slog.Error("error updating consent", "error", err)
		internalError(w)
		return
	}

	if err := h.users.SetConsentTracking(r.Context(), user.ID, req.Consent); err != nil {
		slog.Error("error updating consent flag", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /api/users/my-instructors
func (h *UserHandler) GetMyInstructors(w http.ResponseWriter, r *http.Request) {
	instructors, err := h.relationships.ListInstructors(r.Context(), GetUser(r).ID)
	if err != nil {
		slog.Error("error listing instructors", "error", err)
		internalError(w)
		return
	}
	if instructors == nil {
		instructors = []*models.InstructorLink{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"instructors": instructors})
}

const studentProgressLimit = 100

// GET /api/users/students/{id}/progress (instructors only)
// Requires the student's explicit consent for this instructor.
func (h *UserHandler) GetStudentProgress(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	hasConsent, err := h.relationships.HasConsent(r.Context(), GetUser(r).ID, studentID)
	if err != nil {
		slog.Error("error checking consent", "error", err)
		internalError(w)
		return
	}
	if !hasConsent {
		forbidden(w, "Access denied or consent not given")
		return
	}

	experiences, err := h.experiences.FindRecentForUser(r.Context(), studentID, studentProgressLimit)
	if err != nil {
		slog.Error("error loading student experiences", "error", err)
		internalError(w)
		return
	}

	stats, err := h.progress.Summary(r.Context(), studentID)
	if err != nil {
		slog.Error("error loading student stats", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"experiences": experiences,
		"stats":       stats,
	})
}
