package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// LibrarianRepository handles the librarians table.
type LibrarianRepository struct {
	db *sqlx.DB
}

// NewLibrarianRepository constructs a LibrarianRepository.
func NewLibrarianRepository(db *sqlx.DB) *LibrarianRepository {
	return &LibrarianRepository{db: db}
}

// List returns all librarians ordered by name.
func (r *LibrarianRepository) List(ctx context.Context) ([]models.Librarian, error) {
	var librarians []models.Librarian
	const query = `SELECT libra_id, username, password_hash, fullname, email, phone, hire_date, status, created_at, updated_at
        FROM librarians ORDER BY fullname ASC`
	if err := r.db.SelectContext(ctx, &librarians, query); err != nil {
		return nil, fmt.Errorf("list librarians: %w", err)
	}
	return librarians, nil
}

// GetByID fetches one librarian.
func (r *LibrarianRepository) GetByID(ctx context.Context, id int64) (*models.Librarian, error) {
	var librarian models.Librarian
	const query = `SELECT libra_id, username, password_hash, fullname, email, phone, hire_date, status, created_at, updated_at
        FROM librarians WHERE libra_id = $1`
	if err := r.db.GetContext(ctx, &librarian, query, id); err != nil {
		return nil, err
	}
	return &librarian, nil
}

// GetByUsername fetches one librarian by login name.
func (r *LibrarianRepository) GetByUsername(ctx context.Context, username string) (*models.Librarian, error) {
	var librarian models.Librarian
	const query = `SELECT libra_id, username, password_hash, fullname, email, phone, hire_date, status, created_at, updated_at
        FROM librarians WHERE username = $1`
	if err := r.db.GetContext(ctx, &librarian, query, username); err != nil {
		return nil, err
	}
	return &librarian, nil
}

// Create inserts a librarian.
func (r *LibrarianRepository) Create(ctx context.Context, librarian *models.Librarian) error {
	now := time.Now().UTC()
	librarian.CreatedAt = now
	librarian.UpdatedAt = now
	const query = `INSERT INTO librarians (username, password_hash, fullname, email, phone, hire_date, status, created_at, updated_at)
        VALUES (:username, :password_hash, :fullname, :email, :phone, :hire_date, :status, :created_at, :updated_at)
        RETURNING libra_id`
	rows, err := r.db.NamedQueryContext(ctx, query, librarian)
	if err != nil {
		return fmt.Errorf("insert librarian: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&librarian.LibraID); err != nil {
			return fmt.Errorf("insert librarian: %w", err)
		}
	}
	return nil
}

// Update rewrites a librarian's profile fields.
func (r *LibrarianRepository) Update(ctx context.Context, librarian *models.Librarian) error {
	librarian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE librarians SET fullname = $2, email = $3, phone = $4, hire_date = $5, status = $6, updated_at = $7
        WHERE libra_id = $1`
	res, err := r.db.ExecContext(ctx, query,
		librarian.LibraID, librarian.Fullname, librarian.Email, librarian.Phone,
		librarian.HireDate, librarian.Status, librarian.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update librarian: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *LibrarianRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE librarians SET password_hash = $2, updated_at = $3 WHERE libra_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update librarian password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a librarian. Ledger rows keep their libra_id reference, so
// removal is blocked while any exist.
func (r *LibrarianRepository) Delete(ctx context.Context, id int64) error {
	var referenced int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM borrows WHERE libra_id = $1 LIMIT 1`, id).Scan(&referenced)
	if err == nil {
		return ErrReferencedByBorrows
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check librarian references: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM librarians WHERE libra_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete librarian: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
