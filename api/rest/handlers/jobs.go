package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
	"robot-training-hub/storage"

	log "github.com/sirupsen/logrus"
)

// maxEpochs bounds the epoch budget of a single job
const maxEpochs = 100000

// Runner drives simulated training runs
type Runner interface {
	Start(job *models.TrainingJob) bool
	Stop(jobID int64) bool
	Running(jobID int64) bool
}

// JobHandler handles training-job HTTP requests
type JobHandler struct {
	store   repository.Store
	runner  Runner
	pub     Publisher
	uploads *Uploads
}

// NewJobHandler creates a new job handler
func NewJobHandler(store repository.Store, runner Runner, pub Publisher, uploads *Uploads) *JobHandler {
	return &JobHandler{
		store:   store,
		runner:  runner,
		pub:     pub,
		uploads: uploads,
	}
}

// SubmitJob handles POST /api/training-jobs
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.parseForm(w, r); err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	defer cleanupForm(r)

	job, err := h.jobFromForm(r)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	modelFile, err := h.uploads.save(r, "modelFile", storage.KindModel, true)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	rewardFile, err := h.uploads.save(r, "rewardFile", storage.KindReward, true)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	job.ModelFile = &modelFile.Ref
	job.RewardFile = &rewardFile.Ref

	if err := h.store.CreateJob(r.Context(), job); err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	h.appendLog(r.Context(), job.ID, models.LogLevelInfo, "Training job queued: "+job.Name)

	h.runner.Start(job)

	log.WithFields(log.Fields{
		"job_id":       job.ID,
		"user_id":      job.UserID,
		"total_epochs": job.TotalEpochs,
	}).Info("training job submitted")

	respondJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) jobFromForm(r *http.Request) (*models.TrainingJob, error) {
	form := r.MultipartForm.Value
	get := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	job := &models.TrainingJob{Name: get("name")}
	if job.Name == "" {
		return nil, invalid("name is required")
	}

	userID, err := parseRequiredInt("userId", get("userId"))
	if err != nil {
		return nil, err
	}
	if err := requireUser(r, h.store, userID); err != nil {
		return nil, err
	}
	job.UserID = userID

	modelID, err := parseOptionalInt("modelId", get("modelId"))
	if err != nil {
		return nil, err
	}
	if modelID != nil {
		if err := requireModel(r, h.store, *modelID); err != nil {
			return nil, err
		}
		job.ModelID = modelID
	}

	total, err := parseRequiredInt("totalEpochs", get("totalEpochs"))
	if err != nil {
		return nil, err
	}
	if total < 1 || total > maxEpochs {
		return nil, invalid("totalEpochs must be between 1 and %d", maxEpochs)
	}
	job.TotalEpochs = int(total)

	if raw := get("rewardConfig"); raw != "" {
		var rc models.RewardConfig
		if err := json.Unmarshal([]byte(raw), &rc); err != nil {
			return nil, invalid("rewardConfig must be a JSON object")
		}
		if err := rc.Validate(); err != nil {
			return nil, invalid("rewardConfig: %v", err)
		}
		job.RewardConfig = &rc
	}
	return job, nil
}

// GetJob handles GET /api/training-jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/training-jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	jobs, err := h.store.ListJobs(r.Context(), userID)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	respondJSON(w, http.StatusOK, jobs)
}

// UpdateJob handles PATCH /api/training-jobs/{id}
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	var patch models.JobPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	// the runner owns status and epoch while it is live, so take them back first
	restart := false
	if (patch.Status != nil || patch.CurrentEpoch != nil) && h.runner.Stop(id) {
		restart = true
		if job, err = h.store.GetJob(r.Context(), id); err != nil {
			respondError(w, r, "Training job", err)
			return
		}
	}

	if err := normalizeJobPatch(job, &patch); err != nil {
		if restart {
			h.runner.Start(job)
		}
		respondError(w, r, "Training job", err)
		return
	}

	updated, err := h.store.UpdateJob(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	if patch.Status != nil && *patch.Status != job.Status {
		level := models.LogLevelInfo
		if *patch.Status == models.JobStatusFailed {
			level = models.LogLevelWarn
		}
		h.appendLog(r.Context(), id, level, "Status changed to "+string(*patch.Status))
	}
	// no-op for terminal jobs and jobs whose runner is still live
	h.runner.Start(updated)

	h.pub.Publish(models.NewTrainingUpdateEvent(updated))
	respondJSON(w, http.StatusOK, updated)
}

// normalizeJobPatch validates patch against the current job and fills in the derived fields
func normalizeJobPatch(job *models.TrainingJob, patch *models.JobPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("name cannot be empty")
	}
	if patch.RewardConfig != nil {
		if err := patch.RewardConfig.Validate(); err != nil {
			return invalid("rewardConfig: %v", err)
		}
	}

	status := job.Status
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return invalid("Unknown status %q", *patch.Status)
		}
		if !job.Status.CanTransitionTo(*patch.Status) {
			return invalid("Cannot change status from %s to %s", job.Status, *patch.Status)
		}
		status = *patch.Status
	}

	epoch := job.CurrentEpoch
	if patch.CurrentEpoch != nil {
		if job.Status.Terminal() && *patch.CurrentEpoch != job.CurrentEpoch {
			return invalid("Cannot change the epoch of a %s job", job.Status)
		}
		if *patch.CurrentEpoch < 0 || *patch.CurrentEpoch > job.TotalEpochs {
			return invalid("currentEpoch must be between 0 and %d", job.TotalEpochs)
		}
		epoch = *patch.CurrentEpoch
	}
	if status == models.JobStatusCompleted {
		epoch = job.TotalEpochs
	}

	progress := models.ProgressFor(epoch, job.TotalEpochs)
	if patch.Progress != nil && *patch.Progress != progress {
		return invalid("progress must equal %d for epoch %d of %d", progress, epoch, job.TotalEpochs)
	}
	if epoch != job.CurrentEpoch {
		patch.CurrentEpoch = &epoch
	}
	if progress != job.Progress || patch.Progress != nil {
		patch.Progress = &progress
	}

	if status != job.Status {
		now := time.Now().UTC()
		if status == models.JobStatusRunning && job.StartedAt == nil && patch.StartedAt == nil {
			patch.StartedAt = &now
		}
		if status.Terminal() && patch.CompletedAt == nil {
			patch.CompletedAt = &now
		}
	}
	return nil
}

// StopJob handles POST /api/training-jobs/{id}/stop
func (h *JobHandler) StopJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	if _, err := h.store.GetJob(r.Context(), id); err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	h.runner.Stop(id)

	// re-read: the runner may have finished the job while stopping
	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	if job.Status.Terminal() {
		respondJSON(w, http.StatusOK, job)
		return
	}

	failed := models.JobStatusFailed
	now := time.Now().UTC()
	job, err = h.store.UpdateJob(r.Context(), id, models.JobPatch{Status: &failed, CompletedAt: &now})
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	h.appendLog(r.Context(), id, models.LogLevelWarn, "Training stopped by user")

	log.WithField("job_id", id).Info("training job stopped")
	h.pub.Publish(models.NewTrainingUpdateEvent(job))
	respondJSON(w, http.StatusOK, job)
}

// GetJobMetrics handles GET /api/training-metrics/{jobId}
func (h *JobHandler) GetJobMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobId")
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	if _, err := h.store.GetJob(r.Context(), id); err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	samples, err := h.store.ListMetrics(r.Context(), id)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	respondJSON(w, http.StatusOK, samples)
}

// GetJobLogs handles GET /api/training-logs/{jobId}
func (h *JobHandler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobId")
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	if _, err := h.store.GetJob(r.Context(), id); err != nil {
		respondError(w, r, "Training job", err)
		return
	}

	entries, err := h.store.ListLogs(r.Context(), id)
	if err != nil {
		respondError(w, r, "Training job", err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// appendLog records a lifecycle line and pushes it to listeners; failures are only logged
func (h *JobHandler) appendLog(ctx context.Context, jobID int64, level models.LogLevel, message string) {
	entry := &models.LogEntry{JobID: jobID, Level: level, Message: message}
	if err := h.store.AppendLog(ctx, entry); err != nil {
		log.WithError(err).WithField("job_id", jobID).Warn("failed to append training log")
		return
	}
	h.pub.Publish(models.NewTrainingLogEvent(*entry))
}
