package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// AuthorRepository handles the authors table.
type AuthorRepository struct {
	db *sqlx.DB
}

// NewAuthorRepository constructs an AuthorRepository.
func NewAuthorRepository(db *sqlx.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

// List returns all authors ordered by name.
func (r *AuthorRepository) List(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	const query = `SELECT author_id, author_name FROM authors ORDER BY author_name`
	if err := r.db.SelectContext(ctx, &authors, query); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// GetByID fetches one author.
func (r *AuthorRepository) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	var author models.Author
	const query = `SELECT author_id, author_name FROM authors WHERE author_id = $1`
	if err := r.db.GetContext(ctx, &author, query, id); err != nil {
		return nil, err
	}
	return &author, nil
}

// Create inserts an author.
func (r *AuthorRepository) Create(ctx context.Context, author *models.Author) error {
	const query = `INSERT INTO authors (author_name) VALUES ($1) RETURNING author_id`
	if err := r.db.QueryRowContext(ctx, query, author.AuthorName).Scan(&author.AuthorID); err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	return nil
}

// Update renames an author.
func (r *AuthorRepository) Update(ctx context.Context, author *models.Author) error {
	const query = `UPDATE authors SET author_name = $2 WHERE author_id = $1`
	res, err := r.db.ExecContext(ctx, query, author.AuthorID, author.AuthorName)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an author and its book links.
func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete author tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE author_id = $1`, id); err != nil {
		return fmt.Errorf("unlink author: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM authors WHERE author_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete author tx: %w", err)
	}
	return nil
}
