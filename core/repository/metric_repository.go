package repository

import (
	"context"

	"robot-training-hub/core/models"
)

// AppendMetric stores one epoch sample
func (s *PostgresStore) AppendMetric(ctx context.Context, sample *models.MetricSample) error {
	query := `
		INSERT INTO training_metrics (job_id, epoch, loss, reward, accuracy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, timestamp
	`
	return s.db.QueryRowContext(ctx, query,
		sample.JobID, sample.Epoch, sample.Loss, sample.Reward, sample.Accuracy,
	).Scan(&sample.ID, &sample.Timestamp)
}

// ListMetrics returns a job's samples ordered by epoch
func (s *PostgresStore) ListMetrics(ctx context.Context, jobID int64) ([]*models.MetricSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, epoch, loss, reward, accuracy, timestamp
		FROM training_metrics
		WHERE job_id = $1
		ORDER BY epoch, id
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []*models.MetricSample{}
	for rows.Next() {
		var m models.MetricSample
		if err := rows.Scan(&m.ID, &m.JobID, &m.Epoch, &m.Loss, &m.Reward, &m.Accuracy, &m.Timestamp); err != nil {
			return nil, err
		}
		samples = append(samples, &m)
	}
	return samples, rows.Err()
}
