package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"robot-training-hub/core/models"
)

const jobColumns = `id, user_id, model_id, name, status, progress, current_epoch, total_epochs,
	reward_config, model_file, reward_file, created_at, started_at, completed_at`

func scanJob(row rowScanner) (*models.TrainingJob, error) {
	var job models.TrainingJob
	var rewardConfig []byte

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ModelID,
		&job.Name,
		&job.Status,
		&job.Progress,
		&job.CurrentEpoch,
		&job.TotalEpochs,
		&rewardConfig,
		&job.ModelFile,
		&job.RewardFile,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rewardConfig) > 0 {
		var rc models.RewardConfig
		if err := json.Unmarshal(rewardConfig, &rc); err != nil {
			return nil, fmt.Errorf("decode reward_config of job %d: %w", job.ID, err)
		}
		job.RewardConfig = &rc
	}
	return &job, nil
}

func encodeRewardConfig(rc *models.RewardConfig) (interface{}, error) {
	if rc == nil {
		return nil, nil
	}
	b, err := json.Marshal(rc)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// CreateJob inserts a queued job and fills in its id and creation time
func (s *PostgresStore) CreateJob(ctx context.Context, job *models.TrainingJob) error {
	rewardConfig, err := encodeRewardConfig(job.RewardConfig)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO training_jobs (
			user_id, model_id, name, status, progress, current_epoch, total_epochs,
			reward_config, model_file, reward_file
		) VALUES ($1, $2, $3, $4, 0, 0, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	job.Status = models.JobStatusQueued
	job.Progress = 0
	job.CurrentEpoch = 0
	job.StartedAt = nil
	job.CompletedAt = nil

	return s.db.QueryRowContext(ctx, query,
		job.UserID,
		job.ModelID,
		job.Name,
		job.Status,
		job.TotalEpochs,
		rewardConfig,
		job.ModelFile,
		job.RewardFile,
	).Scan(&job.ID, &job.CreatedAt)
}

// GetJob retrieves a job by ID
func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.TrainingJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM training_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return job, nil
}

// ListJobs lists jobs, optionally restricted to one owner
func (s *PostgresStore) ListJobs(ctx context.Context, userID *int64) ([]*models.TrainingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM training_jobs`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*models.TrainingJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJob merges the non-nil patch fields into the stored job
func (s *PostgresStore) UpdateJob(ctx context.Context, id int64, patch models.JobPatch) (*models.TrainingJob, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Progress != nil {
		add("progress", *patch.Progress)
	}
	if patch.CurrentEpoch != nil {
		add("current_epoch", *patch.CurrentEpoch)
	}
	if patch.RewardConfig != nil {
		rc, err := encodeRewardConfig(patch.RewardConfig)
		if err != nil {
			return nil, err
		}
		add("reward_config", rc)
	}
	if patch.StartedAt != nil {
		add("started_at", *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}

	if len(sets) == 0 {
		return s.GetJob(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE training_jobs SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return job, nil
}
