package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// ErrReferencedByBooks blocks deletes of catalog rows books still point at.
var ErrReferencedByBooks = errors.New("referenced by books")

// PublisherRepository handles the publishers table.
type PublisherRepository struct {
	db *sqlx.DB
}

// NewPublisherRepository constructs a PublisherRepository.
func NewPublisherRepository(db *sqlx.DB) *PublisherRepository {
	return &PublisherRepository{db: db}
}

// List returns all publishers ordered by name.
func (r *PublisherRepository) List(ctx context.Context) ([]models.Publisher, error) {
	var publishers []models.Publisher
	const query = `SELECT publisher_id, publisher_name FROM publishers ORDER BY publisher_name`
	if err := r.db.SelectContext(ctx, &publishers, query); err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	return publishers, nil
}

// GetByID fetches one publisher.
func (r *PublisherRepository) GetByID(ctx context.Context, id int64) (*models.Publisher, error) {
	var publisher models.Publisher
	const query = `SELECT publisher_id, publisher_name FROM publishers WHERE publisher_id = $1`
	if err := r.db.GetContext(ctx, &publisher, query, id); err != nil {
		return nil, err
	}
	return &publisher, nil
}

// Create inserts a publisher.
func (r *PublisherRepository) Create(ctx context.Context, publisher *models.Publisher) error {
	const query = `INSERT INTO publishers (publisher_name) VALUES ($1) RETURNING publisher_id`
	if err := r.db.QueryRowContext(ctx, query, publisher.PublisherName).Scan(&publisher.PublisherID); err != nil {
		return fmt.Errorf("insert publisher: %w", err)
	}
	return nil
}

// Update renames a publisher.
func (r *PublisherRepository) Update(ctx context.Context, publisher *models.Publisher) error {
	const query = `UPDATE publishers SET publisher_name = $2 WHERE publisher_id = $1`
	res, err := r.db.ExecContext(ctx, query, publisher.PublisherID, publisher.PublisherName)
	if err != nil {
		return fmt.Errorf("update publisher: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a publisher unless books still reference it.
func (r *PublisherRepository) Delete(ctx context.Context, id int64) error {
	var referenced int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE publisher_id = $1 LIMIT 1`, id).Scan(&referenced)
	if err == nil {
		return ErrReferencedByBooks
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check publisher references: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM publishers WHERE publisher_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete publisher: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
