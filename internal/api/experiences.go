package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bodylog/internal/db"
)

const (
	defaultExperienceLimit = 50
	maxExperienceLimit     = 200
)

type ExperienceHandler struct {
	experiences *db.ExperienceRepository
}

func NewExperienceHandler(experiences *db.ExperienceRepository) *ExperienceHandler {
	return &ExperienceHandler{experiences: experiences}
}

// GET /api/experiences
func (h *ExperienceHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	filter := db.ExperienceFilter{
		UserID:    GetUser(r).ID,
		SessionID: r.URL.Query().Get("session_id"),
		Limit:     queryInt(r, "limit", defaultExperienceLimit),
		Offset:    queryInt(r, "offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > maxExperienceLimit {
		filter.Limit = defaultExperienceLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	experiences, err := h.experiences.FindAll(r.Context(), filter)
	if err != nil {
		slog.Error("error listing experiences", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"experiences": experiences})
}

type SensationInput struct {
	SegmentID     string  `json:"segmentId" validate:"required"`
	SensationType *string `json:"sensationType,omitempty" validate:"omitempty,max=50"`
	Intensity     *int    `json:"intensity,omitempty" validate:"omitempty,gte=1,lte=10"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type CreateExperienceRequest struct {
	ExerciseID      *string          `json:"exerciseId,omitempty"`
	ExperienceType  string           `json:"experienceType,omitempty" validate:"omitempty,oneof=general before after"`
	SessionID       *string          `json:"sessionId,omitempty"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=4000"`
	MoodRating      *int             `json:"moodRating,omitempty" validate:"omitempty,gte=1,lte=10"`
	EnergyRating    *int             `json:"energyRating,omitempty" validate:"omitempty,gte=1,lte=10"`
	GroundingRating *int             `json:"groundingRating,omitempty" validate:"omitempty,gte=1,lte=10"`
	Sensations      []SensationInput `json:"sensations,omitempty" validate:"dive"`
}

// POST /api/experiences
// A missing sessionId starts a new session; before/after logs of one
// exercise share the generated id.
func (h *ExperienceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExperienceRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.ExperienceType == "" {
		req.ExperienceType = "general"
	}

	sessionID := uuid.NewString()
	if req.SessionID != nil && *req.SessionID != "" {
		sessionID = *req.SessionID
	}

	newExp := db.NewExperience{
		UserID:          GetUser(r).ID,
		ExerciseID:      req.ExerciseID,
		ExperienceType:  req.ExperienceType,
		SessionID:       sessionID,
		Notes:           sanitizeTextPtr(req.Notes),
		MoodRating:      req.MoodRating,
		EnergyRating:    req.EnergyRating,
		GroundingRating: req.GroundingRating,
	}
	for _, s := range req.Sensations {
		newExp.Sensations = append(newExp.Sensations, db.NewSensation{
			SegmentID:     s.SegmentID,
			SensationType: s.SensationType,
			Intensity:     s.Intensity,
			Notes:         sanitizeTextPtr(s.Notes),
		})
	}

	experience, err := h.experiences.Create(r.Context(), newExp)
	if err != nil {
		slog.Error("error creating experience", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"experience": experience,
		"sessionId":  sessionID,
	})
}

// GET /api/experiences/{id}
func (h *ExperienceHandler) Get(w http.ResponseWriter, r *http.Request) {
	experience, err := h.experiences.FindByID(r.Context(), chi.URLParam(r, "id"), GetUser(r).ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Experience not found")
			return
		}
		slog.Error("error loading experience", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"experience": experience})
}

// GET /api/experiences/session/{sessionID}
func (h *ExperienceHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	experiences, err := h.experiences.FindBySession(r.Context(), sessionID, GetUser(r).ID)
	if err != nil {
		slog.Error("error loading session experiences", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"experiences": experiences,
		"sessionId":   sessionID,
	})
}

// DELETE /api/experiences/{id}
func (h *ExperienceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.experiences.Delete(r.Context(), chi.URLParam(r, "id"), GetUser(r).ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Experience not found")
			return
		}
		slog.Error("error deleting experience", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type SafetyCheckinRequest struct {
	ExperienceID *string `json:"experienceId,omitempty"`
	FeelingSafe  bool    `json:"feelingSafe"`
	NeedsSupport bool    `json:"needsSupport"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

// POST /api/experiences/safety-checkin
func (h *ExperienceHandler) SafetyCheckin(w http.ResponseWriter, r *http.Request) {
	var req SafetyCheckinRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	checkin, err := h.experiences.CreateSafetyCheckin(
		r.Context(), GetUser(r).ID, req.ExperienceID, sanitizeTextPtr(req.Notes),
		req.FeelingSafe, req.NeedsSupport,
	)
	if err != nil {
		slog.Error("error creating safety checkin", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": checkin.ID})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
