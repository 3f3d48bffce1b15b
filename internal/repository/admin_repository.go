package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ndthanh/qltv-api/internal/models"
)

// AdminRepository handles the admins table.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetByID fetches one admin.
func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	var admin models.Admin
	const query = `SELECT admin_id, username, password_hash, fullname, email, status, created_at, updated_at
        FROM admins WHERE admin_id = $1`
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetByUsername fetches one admin by login name.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	const query = `SELECT admin_id, username, password_hash, fullname, email, status, created_at, updated_at
        FROM admins WHERE username = $1`
	if err := r.db.GetContext(ctx, &admin, query, username); err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdatePassword stores a new password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE admins SET password_hash = $2, updated_at = $3 WHERE admin_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
