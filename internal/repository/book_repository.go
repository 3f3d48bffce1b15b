package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// BookRepository handles catalog persistence for books and their
// author/category links.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// List returns books matching the filter, with publisher names resolved and
// the total count for pagination.
func (r *BookRepository) List(ctx context.Context, filter models.BookFilter) ([]models.BookDetail, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 4)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("b.title ILIKE $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM book_categories bc WHERE bc.book_id = b.book_id AND bc.cate_id = $%d)", len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = b.book_id AND ba.author_id = $%d)", len(args)))
	}
	if filter.Available != nil {
		if *filter.Available {
			conditions = append(conditions, "b.quantity > 0")
		} else {
			conditions = append(conditions, "b.quantity = 0")
		}
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM books b WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	orderBy := "b.title ASC"
	switch filter.SortBy {
	case "year_published":
		orderBy = "b.year_published"
	case "created_at":
		orderBy = "b.created_at"
	case "title":
		orderBy = "b.title"
	}
	if filter.SortBy != "" && strings.EqualFold(filter.SortOrder, "desc") {
		orderBy += " DESC"
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT b.book_id, b.title, b.publisher_id, b.year_published, b.quantity, b.status,
        b.image_path, b.description, b.location, b.download_link, b.created_at, b.updated_at,
        p.publisher_name AS publisher_name
        FROM books b
        LEFT JOIN publishers p ON p.publisher_id = b.publisher_id
        WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`, where, orderBy, len(args)-1, len(args))

	var books []models.BookDetail
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return books, total, nil
}

// GetByID fetches one book with its publisher, categories and authors.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.BookDetail, error) {
	const query = `SELECT b.book_id, b.title, b.publisher_id, b.year_published, b.quantity, b.status,
        b.image_path, b.description, b.location, b.download_link, b.created_at, b.updated_at,
        p.publisher_name AS publisher_name
        FROM books b
        LEFT JOIN publishers p ON p.publisher_id = b.publisher_id
        WHERE b.book_id = $1`

	var book models.BookDetail
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		return nil, err
	}

	const categoryQuery = `SELECT c.cate_name FROM categories c
        JOIN book_categories bc ON bc.cate_id = c.cate_id
        WHERE bc.book_id = $1 ORDER BY c.cate_name`
	if err := r.db.SelectContext(ctx, &book.Categories, categoryQuery, id); err != nil {
		return nil, fmt.Errorf("load book categories: %w", err)
	}

	const authorQuery = `SELECT a.author_name FROM authors a
        JOIN book_authors ba ON ba.author_id = a.author_id
        WHERE ba.book_id = $1 ORDER BY a.author_name`
	if err := r.db.SelectContext(ctx, &book.Authors, authorQuery, id); err != nil {
		return nil, fmt.Errorf("load book authors: %w", err)
	}
	return &book, nil
}

// Create inserts a book and its author/category links in one transaction.
func (r *BookRepository) Create(ctx context.Context, book *models.Book, categoryIDs, authorIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create book tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	const query = `INSERT INTO books (title, publisher_id, year_published, quantity, status, image_path, description, location, download_link, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING book_id`
	if err := tx.QueryRowContext(ctx, query,
		book.Title, book.PublisherID, book.YearPublished, book.Quantity, book.Status,
		book.ImagePath, book.Description, book.Location, book.DownloadLink,
		book.CreatedAt, book.UpdatedAt).Scan(&book.BookID); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	if err := replaceBookLinks(ctx, tx, book.BookID, categoryIDs, authorIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create book tx: %w", err)
	}
	return nil
}

// Update rewrites a book and replaces its author/category links.
func (r *BookRepository) Update(ctx context.Context, book *models.Book, categoryIDs, authorIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update book tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE books SET title = $2, publisher_id = $3, year_published = $4, quantity = $5, status = $6,
        image_path = $7, description = $8, location = $9, download_link = $10, updated_at = $11
        WHERE book_id = $1`
	res, err := tx.ExecContext(ctx, query,
		book.BookID, book.Title, book.PublisherID, book.YearPublished, book.Quantity, book.Status,
		book.ImagePath, book.Description, book.Location, book.DownloadLink, book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = $1`, book.BookID); err != nil {
		return fmt.Errorf("clear book categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE book_id = $1`, book.BookID); err != nil {
		return fmt.Errorf("clear book authors: %w", err)
	}
	if err := replaceBookLinks(ctx, tx, book.BookID, categoryIDs, authorIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update book tx: %w", err)
	}
	return nil
}

// Delete removes a book unless the borrow ledger references it.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete book tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var referenced int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM borrows WHERE book_id = $1 LIMIT 1`, id).Scan(&referenced)
	if err == nil {
		return ErrReferencedByBorrows
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check book references: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = $1`, id); err != nil {
		return fmt.Errorf("delete book categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE book_id = $1`, id); err != nil {
		return fmt.Errorf("delete book authors: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete book tx: %w", err)
	}
	return nil
}

// SetImagePath stores the cover path after an upload.
func (r *BookRepository) SetImagePath(ctx context.Context, id int64, path string) error {
	const query = `UPDATE books SET image_path = $2, updated_at = $3 WHERE book_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set book image: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func replaceBookLinks(ctx context.Context, tx *sqlx.Tx, bookID int64, categoryIDs, authorIDs []int64) error {
	for _, cateID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_categories (book_id, cate_id) VALUES ($1, $2)`, bookID, cateID); err != nil {
			return fmt.Errorf("link book category: %w", err)
		}
	}
	for _, authorID := range authorIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`, bookID, authorID); err != nil {
			return fmt.Errorf("link book author: %w", err)
		}
	}
	return nil
}
