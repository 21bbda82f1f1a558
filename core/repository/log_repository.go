package repository

import (
	"context"

	"robot-training-hub/core/models"
)

// AppendLog stores a training log line
func (s *PostgresStore) AppendLog(ctx context.Context, entry *models.LogEntry) error {
	if entry.Timestamp.IsZero() {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO training_logs (job_id, level, message)
			VALUES ($1, $2, $3)
			RETURNING id, at
		`, entry.JobID, entry.Level, entry.Message).Scan(&entry.ID, &entry.Timestamp)
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO training_logs (job_id, at, level, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, entry.JobID, entry.Timestamp, entry.Level, entry.Message).Scan(&entry.ID)
}

// ListLogs returns a job's log lines in the order they were written
func (s *PostgresStore) ListLogs(ctx context.Context, jobID int64) ([]*models.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, at, level, message
		FROM training_logs
		WHERE job_id = $1
		ORDER BY id
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Timestamp, &e.Level, &e.Message); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
