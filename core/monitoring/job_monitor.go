package monitoring

import (
	"context"
	"time"

	"robot-training-hub/core/models"

	log "github.com/sirupsen/logrus"
)

// JobLister is the part of the job store the monitor reads
type JobLister interface {
	ListJobs(ctx context.Context, userID *int64) ([]*models.TrainingJob, error)
}

// Runners is the part of the simulator the monitor drives
type Runners interface {
	Running(jobID int64) bool
	Start(job *models.TrainingJob) bool
}

// JobMonitor periodically refreshes job gauges and resumes orphaned training runs
type JobMonitor struct {
	jobs     JobLister
	runners  Runners
	metrics  *Metrics
	interval time.Duration
}

// NewJobMonitor creates a new job monitor. metrics may be nil.
func NewJobMonitor(jobs JobLister, runners Runners, metrics *Metrics, interval time.Duration) *JobMonitor {
	return &JobMonitor{
		jobs:     jobs,
		runners:  runners,
		metrics:  metrics,
		interval: interval,
	}
}

// Start runs a check immediately and then every interval until ctx is done
func (jm *JobMonitor) Start(ctx context.Context) {
	jm.Check(ctx)

	ticker := time.NewTicker(jm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jm.Check(ctx)
		}
	}
}

// Check performs one monitoring pass and returns the number of resumed runs
func (jm *JobMonitor) Check(ctx context.Context) int {
	jobs, err := jm.jobs.ListJobs(ctx, nil)
	if err != nil {
		log.WithError(err).Error("failed to fetch jobs for monitoring")
		return 0
	}

	counts := make(map[models.JobStatus]int, 4)
	resumed := 0
	for _, job := range jobs {
		counts[job.Status]++
		if jm.resumeIfOrphaned(job) {
			resumed++
		}
	}

	if jm.metrics != nil {
		jm.metrics.SetJobCounts(counts)
	}
	return resumed
}

// resumeIfOrphaned restarts a queued or running job that has no live runner,
// which happens after a restart against a persistent store
func (jm *JobMonitor) resumeIfOrphaned(job *models.TrainingJob) bool {
	if job.Status.Terminal() || jm.runners.Running(job.ID) {
		return false
	}
	if !jm.runners.Start(job) {
		return false
	}
	log.WithFields(log.Fields{
		"job_id":        job.ID,
		"status":        job.Status,
		"current_epoch": job.CurrentEpoch,
	}).Warn("resumed orphaned training job")
	return true
}
