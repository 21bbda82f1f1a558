package handlers

import (
	"math"
	"net/http"
	"time"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
)

// DashboardHandler handles dashboard API requests
type DashboardHandler struct {
	store repository.Store
	now   func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(store repository.Store) *DashboardHandler {
	return &DashboardHandler{store: store, now: time.Now}
}

// DashboardStats feeds the stat cards of the monitor page
type DashboardStats struct {
	ActiveJobs    int     `json:"activeJobs"`
	QueuedJobs    int     `json:"queuedJobs"`
	CompletedJobs int     `json:"completedJobs"`
	FailedJobs    int     `json:"failedJobs"`
	ModelsCount   int     `json:"modelsCount"`
	TrainingHours float64 `json:"trainingHours"`
}

// GetStats handles GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		respondError(w, r, "User", err)
		return
	}

	jobs, err := h.store.ListJobs(r.Context(), userID)
	if err != nil {
		respondError(w, r, "User", err)
		return
	}

	var stats DashboardStats
	var trained time.Duration
	now := h.now()
	for _, job := range jobs {
		switch job.Status {
		case models.JobStatusRunning:
			stats.ActiveJobs++
		case models.JobStatusQueued:
			stats.QueuedJobs++
		case models.JobStatusCompleted:
			stats.CompletedJobs++
		case models.JobStatusFailed:
			stats.FailedJobs++
		}

		if job.StartedAt == nil {
			continue
		}
		end := now
		if job.CompletedAt != nil {
			end = *job.CompletedAt
		}
		if end.After(*job.StartedAt) {
			trained += end.Sub(*job.StartedAt)
		}
	}
	stats.TrainingHours = math.Round(trained.Hours()*10) / 10

	stats.ModelsCount, err = h.store.CountModels(r.Context(), userID)
	if err != nil {
		respondError(w, r, "User", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
