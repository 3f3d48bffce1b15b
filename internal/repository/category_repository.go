package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// CategoryRepository handles the categories table.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	const query = `SELECT cate_id, cate_name FROM categories ORDER BY cate_name`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetByID fetches one category.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	const query = `SELECT cate_id, cate_name FROM categories WHERE cate_id = $1`
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	const query = `INSERT INTO categories (cate_name) VALUES ($1) RETURNING cate_id`
	if err := r.db.QueryRowContext(ctx, query, category.CateName).Scan(&category.CateID); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// Update renames a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	const query = `UPDATE categories SET cate_name = $2 WHERE cate_id = $1`
	res, err := r.db.ExecContext(ctx, query, category.CateID, category.CateName)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a category and its book links.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE cate_id = $1`, id); err != nil {
		return fmt.Errorf("unlink category: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE cate_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category tx: %w", err)
	}
	return nil
}
