package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bodylog/internal/db"
)

type SegmentHandler struct {
	segments *db.SegmentRepository
}

func NewSegmentHandler(segments *db.SegmentRepository) *SegmentHandler {
	return &SegmentHandler{segments: segments}
}

// GET /api/segments
func (h *SegmentHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	segments, err := h.segments.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing body segments", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"segments": segments})
}

// GET /api/segments/{id}
func (h *SegmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	segment, err := h.segments.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Segment not found")
			return
		}
		slog.Error("error loading body segment", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"segment": segment})
}
