package models

import "time"

// MetricSample is one epoch's recorded training metrics
type MetricSample struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"jobId"`
	Epoch     int       `json:"epoch"`
	Loss      float64   `json:"loss"`
	Reward    float64   `json:"reward"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// LogLevel is the severity of a training log line
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is a human-readable line in a job's training log
type LogEntry struct {
	ID        int64     `json:"-"`
	JobID     int64     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}
