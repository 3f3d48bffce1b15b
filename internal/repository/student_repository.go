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

// StudentRepository handles the students table.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 3)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(fullname ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT student_id, username, password_hash, fullname, email, phone, status, created_at, updated_at
        FROM students WHERE %s ORDER BY fullname ASC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return students, total, nil
}

// GetByID fetches one student.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	const query = `SELECT student_id, username, password_hash, fullname, email, phone, status, created_at, updated_at
        FROM students WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// GetByUsername fetches one student by login name.
func (r *StudentRepository) GetByUsername(ctx context.Context, username string) (*models.Student, error) {
	var student models.Student
	const query = `SELECT student_id, username, password_hash, fullname, email, phone, status, created_at, updated_at
        FROM students WHERE username = $1`
	if err := r.db.GetContext(ctx, &student, query, username); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByUsername reports whether the login name is taken.
func (r *StudentRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM students WHERE username = $1 LIMIT 1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student username: %w", err)
	}
	return true, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (username, password_hash, fullname, email, phone, status, created_at, updated_at)
        VALUES (:username, :password_hash, :fullname, :email, :phone, :status, :created_at, :updated_at)
        RETURNING student_id`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&student.StudentID); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
	}
	return nil
}

// Update rewrites a student's profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET fullname = $2, email = $3, phone = $4, status = $5, updated_at = $6
        WHERE student_id = $1`
	res, err := r.db.ExecContext(ctx, query,
		student.StudentID, student.Fullname, student.Email, student.Phone, student.Status, student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE students SET password_hash = $2, updated_at = $3 WHERE student_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student unless the borrow ledger references them.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	var referenced int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM borrows WHERE student_id = $1 LIMIT 1`, id).Scan(&referenced)
	if err == nil {
		return ErrReferencedByBorrows
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check student references: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
