package models

import (
	"fmt"
	"math"
	"time"
)

// TrainingJob represents a simulated robot-training job
type TrainingJob struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"userId"`
	ModelID      *int64        `json:"modelId"`
	Name         string        `json:"name"`
	Status       JobStatus     `json:"status"`
	Progress     int           `json:"progress"` // 0-100, derived from CurrentEpoch
	CurrentEpoch int           `json:"currentEpoch"`
	TotalEpochs  int           `json:"totalEpochs"`
	RewardConfig *RewardConfig `json:"rewardConfig"`
	ModelFile    *string       `json:"modelFile"`  // artifact path of the uploaded policy
	RewardFile   *string       `json:"rewardFile"` // artifact path of the uploaded reward function
	CreatedAt    time.Time     `json:"createdAt"`
	StartedAt    *time.Time    `json:"startedAt"`
	CompletedAt  *time.Time    `json:"completedAt"`
}

// RewardConfig holds the reward weights chosen on the model configuration page
type RewardConfig struct {
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
	Energy   float64 `json:"energy"`
}

// Validate checks every weight is within [0, 1]
func (rc RewardConfig) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"position", rc.Position},
		{"velocity", rc.Velocity},
		{"energy", rc.Energy},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || w.value < 0 || w.value > 1 {
			return fmt.Errorf("%s weight must be between 0 and 1", w.name)
		}
	}
	return nil
}

// JobStatus represents the lifecycle status of a job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Valid reports whether s is a known status
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a sticky end state
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
// Re-asserting the current non-terminal status is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case JobStatusQueued:
		return next == JobStatusQueued || next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusRunning || next.Terminal()
	}
	return false
}

// ProgressFor returns round(100 * epoch / total), clamped to [0, 100]
func ProgressFor(epoch, total int) int {
	if total <= 0 || epoch <= 0 {
		return 0
	}
	if epoch >= total {
		return 100
	}
	return int(math.Round(100 * float64(epoch) / float64(total)))
}

// JobPatch carries the fields of a partial job update; nil fields are left untouched
type JobPatch struct {
	Name         *string       `json:"name,omitempty"`
	Status       *JobStatus    `json:"status,omitempty"`
	Progress     *int          `json:"progress,omitempty"`
	CurrentEpoch *int          `json:"currentEpoch,omitempty"`
	RewardConfig *RewardConfig `json:"rewardConfig,omitempty"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

// Apply merges the patch into job
func (p JobPatch) Apply(job *TrainingJob) {
	if p.Name != nil {
		job.Name = *p.Name
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Progress != nil {
		job.Progress = *p.Progress
	}
	if p.CurrentEpoch != nil {
		job.CurrentEpoch = *p.CurrentEpoch
	}
	if p.RewardConfig != nil {
		rc := *p.RewardConfig
		job.RewardConfig = &rc
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		job.StartedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		job.CompletedAt = &t
	}
}
