package repository

import (
	"context"
	"fmt"

	"robot-training-hub/core/models"

	"github.com/lib/pq"
)

const marketplaceColumns = `id, name, description, thumbnail_url, category, tags, rating, downloads,
	price, likes, license, author_id, author_name, author_avatar, author_affiliation`

func scanMarketplaceModel(row rowScanner) (*models.MarketplaceModel, error) {
	var m models.MarketplaceModel
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.ThumbnailURL,
		&m.Category,
		pq.Array(&m.Tags),
		&m.Rating,
		&m.Downloads,
		&m.Price,
		&m.Likes,
		&m.License,
		&m.Author.ID,
		&m.Author.Name,
		&m.Author.Avatar,
		&m.Author.Affiliation,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) insertMarketplaceModel(ctx context.Context, m models.MarketplaceModel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketplace_models (`+marketplaceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`,
		m.ID,
		m.Name,
		m.Description,
		m.ThumbnailURL,
		m.Category,
		pq.Array(m.Tags),
		m.Rating,
		m.Downloads,
		m.Price,
		m.Likes,
		m.License,
		m.Author.ID,
		m.Author.Name,
		m.Author.Avatar,
		m.Author.Affiliation,
	)
	return err
}

// ListMarketplaceModels returns the catalog ordered by id
func (s *PostgresStore) ListMarketplaceModels(ctx context.Context) ([]*models.MarketplaceModel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+marketplaceColumns+` FROM marketplace_models ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.MarketplaceModel{}
	for rows.Next() {
		m, err := scanMarketplaceModel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMarketplaceModel retrieves a catalog entry
func (s *PostgresStore) GetMarketplaceModel(ctx context.Context, id int64) (*models.MarketplaceModel, error) {
	m, err := scanMarketplaceModel(s.db.QueryRowContext(ctx,
		`SELECT `+marketplaceColumns+` FROM marketplace_models WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "marketplace model", id)
	}
	return m, nil
}

// IncrementMarketplaceCounter atomically bumps downloads or likes of a catalog entry
func (s *PostgresStore) IncrementMarketplaceCounter(ctx context.Context, id int64, counter models.Counter) (*models.MarketplaceModel, error) {
	column, err := counterColumn(counter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`UPDATE marketplace_models SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[2]s`,
		column, marketplaceColumns)
	m, err := scanMarketplaceModel(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "marketplace model", id)
	}
	return m, nil
}
