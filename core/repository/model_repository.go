package repository

import (
	"context"
	"fmt"
	"strings"

	"robot-training-hub/core/models"
)

const modelColumns = `id, user_id, name, description, model_type, accuracy, training_time, size,
	file_path, is_public, downloads, likes, created_at`

func scanModel(row rowScanner) (*models.Model, error) {
	var m models.Model
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Description,
		&m.ModelType,
		&m.Accuracy,
		&m.TrainingTime,
		&m.Size,
		&m.FilePath,
		&m.IsPublic,
		&m.Downloads,
		&m.Likes,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModels returns public models and, when userID is set, the user's own models
func (s *PostgresStore) ListModels(ctx context.Context, userID *int64) ([]*models.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE is_public`
	args := []interface{}{}
	if userID != nil {
		query += ` OR user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CountModels counts the models visible to userID
func (s *PostgresStore) CountModels(ctx context.Context, userID *int64) (int, error) {
	query := `SELECT COUNT(*) FROM models WHERE is_public`
	args := []interface{}{}
	if userID != nil {
		query += ` OR user_id = $1`
		args = append(args, *userID)
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// GetModel retrieves a model by ID
func (s *PostgresStore) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	m, err := scanModel(s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "model", id)
	}
	return m, nil
}

// CreateModel inserts a model with zeroed counters
func (s *PostgresStore) CreateModel(ctx context.Context, model *models.Model) error {
	model.Downloads = 0
	model.Likes = 0
	return s.db.QueryRowContext(ctx, `
		INSERT INTO models (user_id, name, description, model_type, accuracy, training_time, size, file_path, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		model.UserID,
		model.Name,
		model.Description,
		model.ModelType,
		model.Accuracy,
		model.TrainingTime,
		model.Size,
		model.FilePath,
		model.IsPublic,
	).Scan(&model.ID, &model.CreatedAt)
}

// UpdateModel merges the patch; counter fields may only grow
func (s *PostgresStore) UpdateModel(ctx context.Context, id int64, patch models.ModelPatch) (*models.Model, error) {
	var sets []string
	var conds []string
	var args []interface{}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Name != nil {
		sets = append(sets, "name = "+arg(*patch.Name))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+arg(*patch.Description))
	}
	if patch.ModelType != nil {
		sets = append(sets, "model_type = "+arg(*patch.ModelType))
	}
	if patch.Accuracy != nil {
		sets = append(sets, "accuracy = "+arg(*patch.Accuracy))
	}
	if patch.TrainingTime != nil {
		sets = append(sets, "training_time = "+arg(*patch.TrainingTime))
	}
	if patch.IsPublic != nil {
		sets = append(sets, "is_public = "+arg(*patch.IsPublic))
	}
	if patch.Downloads != nil {
		p := arg(*patch.Downloads)
		sets = append(sets, "downloads = "+p)
		conds = append(conds, "downloads <= "+p)
	}
	if patch.Likes != nil {
		p := arg(*patch.Likes)
		sets = append(sets, "likes = "+p)
		conds = append(conds, "likes <= "+p)
	}

	if len(sets) == 0 {
		return s.GetModel(ctx, id)
	}

	where := "id = " + arg(id)
	for _, c := range conds {
		where += " AND " + c
	}
	query := fmt.Sprintf(`UPDATE models SET %s WHERE %s RETURNING %s`, strings.Join(sets, ", "), where, modelColumns)

	m, err := scanModel(s.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return m, nil
	}
	err = notFound(err, "model", id)
	if len(conds) > 0 && isNotFound(err) {
		// distinguish a missing row from a rejected counter decrease
		if _, getErr := s.GetModel(ctx, id); getErr == nil {
			return nil, fmt.Errorf("model %d: %w", id, ErrCounterDecrease)
		}
	}
	return nil, err
}

// DeleteModel removes a model
func (s *PostgresStore) DeleteModel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementModelCounter atomically bumps downloads or likes
func (s *PostgresStore) IncrementModelCounter(ctx context.Context, id int64, counter models.Counter) (*models.Model, error) {
	column, err := counterColumn(counter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`UPDATE models SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[2]s`, column, modelColumns)
	m, err := scanModel(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "model", id)
	}
	return m, nil
}

func counterColumn(counter models.Counter) (string, error) {
	switch counter {
	case models.CounterDownloads:
		return "downloads", nil
	case models.CounterLikes:
		return "likes", nil
	}
	return "", fmt.Errorf("unknown counter %q", counter)
}
