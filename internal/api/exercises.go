package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bodylog/internal/db"
	"bodylog/internal/models"
)

type ExerciseHandler struct {
	exercises *db.ExerciseRepository
}

func NewExerciseHandler(exercises *db.ExerciseRepository) *ExerciseHandler {
	return &ExerciseHandler{exercises: exercises}
}

// GET /api/exercises/categories
func (h *ExerciseHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.exercises.FindCategories(r.Context())
	if err != nil {
		slog.Error("error listing exercise categories", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// GET /api/exercises
// Anonymous callers see public exercises; authenticated callers also see
// their own.
func (h *ExerciseHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	filter := db.ExerciseFilter{
		CategoryID: r.URL.Query().Get("category"),
		Difficulty: r.URL.Query().Get("difficulty"),
	}
	if user := GetUser(r); user != nil {
		filter.ViewerID = user.ID
	}

	exercises, err := h.exercises.FindAll(r.Context(), filter)
	if err != nil {
		slog.Error("error listing exercises", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exercises": exercises})
}

// GET /api/exercises/{id}
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	exercise, err := h.exercises.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Exercise not found")
			return
		}
		slog.Error("error loading exercise", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exercise": exercise})
}

type CreateExerciseRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     *string  `json:"description,omitempty"`
	Instructions    *string  `json:"instructions,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty" validate:"omitempty,gte=1,lte=480"`
	CategoryID      *string  `json:"categoryId,omitempty"`
	TargetSegments  []string `json:"targetSegments,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	SafetyNotes     *string  `json:"safetyNotes,omitempty"`
	IsPublic        bool     `json:"isPublic,omitempty"`
}

// POST /api/exercises (instructors only)
func (h *ExerciseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExerciseRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.Difficulty == "" {
		req.Difficulty = "beginner"
	}

	exercise, err := h.exercises.Create(r.Context(), db.NewExercise{
		Title:           sanitizeText(req.Title),
		Description:     sanitizeTextPtr(req.Description),
		Instructions:    sanitizeTextPtr(req.Instructions),
		DurationMinutes: req.DurationMinutes,
		CategoryID:      req.CategoryID,
		TargetSegments:  req.TargetSegments,
		Difficulty:      req.Difficulty,
		SafetyNotes:     sanitizeTextPtr(req.SafetyNotes),
		CreatedBy:       GetUser(r).ID,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		slog.Error("error creating exercise", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"exercise": exercise})
}

type UpdateExerciseRequest struct {
	Title           *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	Description     *string  `json:"description,omitempty"`
	Instructions    *string  `json:"instructions,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty" validate:"omitempty,gte=1,lte=480"`
	CategoryID      *string  `json:"categoryId,omitempty"`
	TargetSegments  []string `json:"targetSegments,omitempty"`
	Difficulty      *string  `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	SafetyNotes     *string  `json:"safetyNotes,omitempty"`
	IsPublic        *bool    `json:"isPublic,omitempty"`
}

func (r *UpdateExerciseRequest) isEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Instructions == nil &&
		r.DurationMinutes == nil && r.CategoryID == nil && r.TargetSegments == nil &&
		r.Difficulty == nil && r.SafetyNotes == nil && r.IsPublic == nil
}

// PUT /api/exercises/{id} (owner or admin)
func (h *ExerciseHandler) Update(w http.ResponseWriter, r *http.Request) {
	exercise, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req UpdateExerciseRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.isEmpty() {
		badRequest(w, "No updates provided")
		return
	}

	err := h.exercises.Update(r.Context(), exercise.ID, db.ExerciseUpdate{
		Title:           sanitizeTextPtr(req.Title),
		Description:     sanitizeTextPtr(req.Description),
		Instructions:    sanitizeTextPtr(req.Instructions),
		DurationMinutes: req.DurationMinutes,
		CategoryID:      req.CategoryID,
		TargetSegments:  req.TargetSegments,
		Difficulty:      req.Difficulty,
		SafetyNotes:     sanitizeTextPtr(req.SafetyNotes),
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		slog.Error("error updating exercise", "error", err)
		internalError(w)
		return
	}

	updated, err := h.exercises.FindByID(r.Context(), exercise.ID)
	if err != nil {
		slog.Error("error reloading exercise", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exercise": updated})
}

// DELETE /api/exercises/{id} (owner or admin)
func (h *ExerciseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	exercise, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.exercises.Delete(r.Context(), exercise.ID); err != nil {
		slog.Error("error deleting exercise", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *ExerciseHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Exercise, bool) {
	exercise, err := h.exercises.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Exercise not found")
			return nil, false
		}
		slog.Error("error loading exercise", "error", err)
		internalError(w)
		return nil, false
	}

	user := GetUser(r)
	if exercise.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		forbidden(w, "Not authorized to modify this exercise")
		return nil, false
	}

	return exercise, true
}
