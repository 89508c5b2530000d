package api

import (
	"log/slog"
	"net/http"

	"bodylog/internal/db"
	"bodylog/internal/models"
)

type ProgressHandler struct {
	progress *db.ProgressRepository
}

func NewProgressHandler(progress *db.ProgressRepository) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// GET /api/progress
func (h *ProgressHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.progress.Summary(r.Context(), GetUser(r).ID)
	if err != nil {
		slog.Error("error loading progress summary", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GET /api/progress/trends?days=30
func (h *ProgressHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.progress.Trends(r.Context(), GetUser(r).ID, daysParam(r))
	if err != nil {
		slog.Error("error loading trends", "error", err)
		internalError(w)
		return
	}
	if trends == nil {
		trends = []*models.TrendPoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}

// GET /api/progress/segments?days=30
func (h *ProgressHandler) GetSegmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.progress.SegmentStats(r.Context(), GetUser(r).ID, daysParam(r))
	if err != nil {
		slog.Error("error loading segment stats", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"segments": stats})
}

// GET /api/progress/comparisons?limit=10
func (h *ProgressHandler) GetComparisons(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	comparisons, err := h.progress.Comparisons(r.Context(), GetUser(r).ID, limit)
	if err != nil {
		slog.Error("error loading comparisons", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comparisons": comparisons})
}

// GET /api/progress/exercises
func (h *ProgressHandler) GetExerciseUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.progress.ExerciseUsage(r.Context(), GetUser(r).ID)
	if err != nil {
		slog.Error("error loading exercise usage", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exercises": usage})
}

func daysParam(r *http.Request) int {
	days := queryInt(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	return days
}
