package repository

import (
	"context"
	"fmt"
	"strings"

	"robot-training-hub/core/models"
)

const sessionColumns = `id, user_id, model_id, robot_type, status, duration, created_at`

func scanSession(row rowScanner) (*models.ValidationSession, error) {
	var vs models.ValidationSession
	if err := row.Scan(&vs.ID, &vs.UserID, &vs.ModelID, &vs.RobotType, &vs.Status, &vs.Duration, &vs.CreatedAt); err != nil {
		return nil, err
	}
	return &vs, nil
}

// ListSessions lists validation sessions, optionally for one user
func (s *PostgresStore) ListSessions(ctx context.Context, userID *int64) ([]*models.ValidationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM validation_sessions`
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

	sessions := []*models.ValidationSession{}
	for rows.Next() {
		vs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, vs)
	}
	return sessions, rows.Err()
}

// CreateSession inserts a session with zero duration
func (s *PostgresStore) CreateSession(ctx context.Context, session *models.ValidationSession) error {
	session.Duration = 0
	return s.db.QueryRowContext(ctx, `
		INSERT INTO validation_sessions (user_id, model_id, robot_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, session.UserID, session.ModelID, session.RobotType, session.Status).Scan(&session.ID, &session.CreatedAt)
}

// UpdateSession merges the patch into a session
func (s *PostgresStore) UpdateSession(ctx context.Context, id int64, patch models.SessionPatch) (*models.ValidationSession, error) {
	var sets []string
	var args []interface{}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.Duration != nil {
		args = append(args, *patch.Duration)
		sets = append(sets, fmt.Sprintf("duration = $%d", len(args)))
	}

	args = append(args, id)
	var query string
	if len(sets) == 0 {
		query = `SELECT ` + sessionColumns + ` FROM validation_sessions WHERE id = $1`
	} else {
		query = fmt.Sprintf(`UPDATE validation_sessions SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(sets, ", "), len(args), sessionColumns)
	}

	vs, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "validation session", id)
	}
	return vs, nil
}
