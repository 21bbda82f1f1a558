package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"

	log "github.com/sirupsen/logrus"
)

func (m *Manager) run(ctx context.Context, r *runner) {
	defer m.wg.Done()
	defer close(r.done)
	defer m.remove(r)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithField("job_id", r.jobID).Debug("training run cancelled")
			return
		case <-ticker.C:
			if m.tick(ctx, r) {
				return
			}
		}
	}
}

// tick advances the job by one epoch and reports whether the run is over
func (m *Manager) tick(ctx context.Context, r *runner) bool {
	logger := log.WithField("job_id", r.jobID)

	job, err := m.store.GetJob(ctx, r.jobID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		logger.Warn("training job disappeared, stopping run")
		return true
	case err != nil:
		if ctx.Err() != nil {
			return true
		}
		m.fail(ctx, r, fmt.Errorf("load job: %w", err))
		return true
	case job.Status.Terminal():
		return true
	}

	epoch := r.epoch + 1
	if epoch > job.TotalEpochs {
		// resumed with the budget already spent
		m.complete(ctx, r, job.TotalEpochs)
		return true
	}

	metrics := m.metrics(epoch)
	sample := &models.MetricSample{
		JobID:    r.jobID,
		Epoch:    epoch,
		Loss:     metrics.Loss,
		Reward:   metrics.Reward,
		Accuracy: metrics.Accuracy,
	}
	if err := m.store.AppendMetric(ctx, sample); err != nil {
		return m.abort(ctx, r, fmt.Errorf("append metric for epoch %d: %w", epoch, err))
	}

	progress := models.ProgressFor(epoch, job.TotalEpochs)
	running := models.JobStatusRunning
	patch := models.JobPatch{
		Status:       &running,
		CurrentEpoch: &epoch,
		Progress:     &progress,
	}
	if job.StartedAt == nil {
		now := time.Now().UTC()
		patch.StartedAt = &now
	}
	if _, err := m.store.UpdateJob(ctx, r.jobID, patch); err != nil {
		return m.abort(ctx, r, fmt.Errorf("update job at epoch %d: %w", epoch, err))
	}
	r.epoch = epoch

	entry := &models.LogEntry{
		JobID:   r.jobID,
		Level:   models.LogLevelInfo,
		Message: fmt.Sprintf("Epoch %d/%d - Reward: %.1f, Loss: %.4f", epoch, job.TotalEpochs, metrics.Reward, metrics.Loss),
	}
	if err := m.store.AppendLog(ctx, entry); err != nil {
		return m.abort(ctx, r, fmt.Errorf("append log for epoch %d: %w", epoch, err))
	}

	m.observer.ObserveEpoch(metrics)
	m.publish(models.NewTrainingProgressEvent(r.jobID, epoch, progress, metrics))
	m.publish(models.NewTrainingLogEvent(*entry))

	if epoch == job.TotalEpochs {
		m.complete(ctx, r, epoch)
		return true
	}
	return false
}

func (m *Manager) complete(ctx context.Context, r *runner, total int) {
	logger := log.WithField("job_id", r.jobID)

	completed := models.JobStatusCompleted
	progress := 100
	now := time.Now().UTC()
	_, err := m.store.UpdateJob(ctx, r.jobID, models.JobPatch{
		Status:       &completed,
		CurrentEpoch: &total,
		Progress:     &progress,
		CompletedAt:  &now,
	})
	if err != nil {
		m.abort(ctx, r, fmt.Errorf("complete job: %w", err))
		return
	}

	entry := &models.LogEntry{
		JobID:   r.jobID,
		Level:   models.LogLevelInfo,
		Message: fmt.Sprintf("Training completed after %d epochs", total),
	}
	if err := m.store.AppendLog(ctx, entry); err != nil {
		logger.WithError(err).Warn("failed to append completion log")
	} else {
		m.publish(models.NewTrainingLogEvent(*entry))
	}

	m.observer.ObserveFinished(models.JobStatusCompleted)
	m.publish(models.NewTrainingCompleteEvent(r.jobID))
	logger.Info("training run completed")
}

// abort runs the failure path unless the run was cancelled, and always ends the run
func (m *Manager) abort(ctx context.Context, r *runner, cause error) bool {
	if ctx.Err() == nil {
		m.fail(ctx, r, cause)
	}
	return true
}

func (m *Manager) fail(ctx context.Context, r *runner, cause error) {
	logger := log.WithFields(log.Fields{"job_id": r.jobID, "epoch": r.epoch})
	logger.WithError(cause).Error("training tick failed")

	failed := models.JobStatusFailed
	now := time.Now().UTC()
	job, err := m.store.UpdateJob(ctx, r.jobID, models.JobPatch{Status: &failed, CompletedAt: &now})
	if err != nil {
		logger.WithError(err).Error("failed to mark job as failed")
		return
	}
	m.observer.ObserveFinished(models.JobStatusFailed)

	entry := &models.LogEntry{
		JobID:   r.jobID,
		Level:   models.LogLevelError,
		Message: fmt.Sprintf("Training failed: %v", cause),
	}
	if err := m.store.AppendLog(ctx, entry); err != nil {
		logger.WithError(err).Warn("failed to append failure log")
	} else {
		m.publish(models.NewTrainingLogEvent(*entry))
	}

	m.publish(models.NewTrainingUpdateEvent(job))
}
