package models

import "time"

// EventType identifies a real-time event pushed to dashboard clients
type EventType string

const (
	EventTrainingProgress EventType = "training_progress"
	EventTrainingLog      EventType = "training_log"
	EventTrainingComplete EventType = "training_complete"
	EventTrainingUpdate   EventType = "training_update"
)

// Event is anything the broadcaster can push to listeners
type Event interface {
	EventType() EventType
	// EventJobID returns the job the event concerns, used for per-job subscriptions
	EventJobID() int64
}

// EpochMetrics are the values reported for one epoch
type EpochMetrics struct {
	Loss     float64 `json:"loss"`
	Reward   float64 `json:"reward"`
	Accuracy float64 `json:"accuracy"`
}

// TrainingProgressEvent is emitted once per simulated epoch
type TrainingProgressEvent struct {
	Type     EventType    `json:"type"`
	JobID    int64        `json:"jobId"`
	Epoch    int          `json:"epoch"`
	Progress int          `json:"progress"`
	Metrics  EpochMetrics `json:"metrics"`
}

// NewTrainingProgressEvent builds a training_progress event
func NewTrainingProgressEvent(jobID int64, epoch, progress int, m EpochMetrics) *TrainingProgressEvent {
	return &TrainingProgressEvent{Type: EventTrainingProgress, JobID: jobID, Epoch: epoch, Progress: progress, Metrics: m}
}

func (e *TrainingProgressEvent) EventType() EventType { return e.Type }
func (e *TrainingProgressEvent) EventJobID() int64    { return e.JobID }

// TrainingLogEvent carries one formatted training log line
type TrainingLogEvent struct {
	Type      EventType `json:"type"`
	JobID     int64     `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// NewTrainingLogEvent builds a training_log event from a stored entry
func NewTrainingLogEvent(entry LogEntry) *TrainingLogEvent {
	return &TrainingLogEvent{
		Type:      EventTrainingLog,
		JobID:     entry.JobID,
		Timestamp: entry.Timestamp,
		Level:     entry.Level,
		Message:   entry.Message,
	}
}

func (e *TrainingLogEvent) EventType() EventType { return e.Type }
func (e *TrainingLogEvent) EventJobID() int64    { return e.JobID }

// TrainingCompleteEvent is emitted exactly once when a job finishes its epoch budget
type TrainingCompleteEvent struct {
	Type  EventType `json:"type"`
	JobID int64     `json:"jobId"`
}

// NewTrainingCompleteEvent builds a training_complete event
func NewTrainingCompleteEvent(jobID int64) *TrainingCompleteEvent {
	return &TrainingCompleteEvent{Type: EventTrainingComplete, JobID: jobID}
}

func (e *TrainingCompleteEvent) EventType() EventType { return e.Type }
func (e *TrainingCompleteEvent) EventJobID() int64    { return e.JobID }

// TrainingUpdateEvent carries a full job snapshot after an out-of-band change
type TrainingUpdateEvent struct {
	Type EventType    `json:"type"`
	Job  *TrainingJob `json:"job"`
}

// NewTrainingUpdateEvent builds a training_update event
func NewTrainingUpdateEvent(job *TrainingJob) *TrainingUpdateEvent {
	return &TrainingUpdateEvent{Type: EventTrainingUpdate, Job: job}
}

func (e *TrainingUpdateEvent) EventType() EventType { return e.Type }

func (e *TrainingUpdateEvent) EventJobID() int64 {
	if e.Job == nil {
		return 0
	}
	return e.Job.ID
}
