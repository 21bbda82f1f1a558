package repository

import (
	"context"
	"database/sql"
	"fmt"

	"robot-training-hub/core/models"
)

const userColumns = `id, username, email, full_name, affiliation, avatar, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Affiliation, &u.Avatar, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by unique username
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, err
}

// CreateUser inserts a user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, full_name, affiliation, avatar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, user.Username, user.Email, user.FullName, user.Affiliation, user.Avatar).Scan(&user.ID, &user.CreatedAt)
}
