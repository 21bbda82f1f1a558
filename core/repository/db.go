package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"robot-training-hub/core/repository/migrations"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	*sql.DB
}

// NewDB opens and verifies a PostgreSQL connection
func NewDB(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

// Migrate applies every embedded migration that has not run yet
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		var applied bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, file).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}
		if err := db.applyMigration(ctx, file); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		log.WithField("migration", file).Info("applied migration")
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, file string) error {
	body, err := migrations.Files.ReadFile(file)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(string(body), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, NOW())`, file); err != nil {
		return err
	}
	return tx.Commit()
}

// PostgresStore implements Store on top of PostgreSQL
type PostgresStore struct {
	db *DB
}

// NewPostgresStore migrates the schema, seeds defaults and returns the store
func NewPostgresStore(ctx context.Context, db *DB) (*PostgresStore, error) {
	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.seed(ctx); err != nil {
		return nil, fmt.Errorf("seed database: %w", err)
	}
	return s, nil
}

// Close implements Store
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) seed(ctx context.Context) error {
	for _, u := range seedUsers() {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, username, email, full_name, affiliation, avatar)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Username, u.Email, u.FullName, u.Affiliation, u.Avatar)
		if err != nil {
			return err
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`); err != nil {
		return err
	}

	for _, m := range seedMarketplace() {
		if err := s.insertMarketplaceModel(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func notFound(err error, what string, id int64) error {
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}
