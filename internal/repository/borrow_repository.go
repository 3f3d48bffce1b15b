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

// Sentinel errors surfaced by conditional ledger updates. Services translate
// them into the HTTP-aware taxonomy.
var (
	// ErrNoAvailableCopies means the conditional quantity decrement matched
	// no row: the book ran out of copies.
	ErrNoAvailableCopies = errors.New("no available copies")
	// ErrInvalidTransition means the borrow row is not in the state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("invalid borrow state transition")
	// ErrReferencedByBorrows blocks deletes of rows the ledger references.
	ErrReferencedByBorrows = errors.New("referenced by borrow history")
)

const borrowDetailSelect = `SELECT b.borrow_id, b.student_id, b.book_id, b.libra_id, b.borrow_date, b.due_date,
       b.return_date, b.fine_amount, b.book_status, b.status, b.created_at, b.updated_at,
       bk.title AS book_title, s.fullname AS student_name, s.email AS student_email, l.fullname AS librarian_name
       FROM borrows b
       JOIN books bk ON bk.book_id = b.book_id
       JOIN students s ON s.student_id = b.student_id
       LEFT JOIN librarians l ON l.libra_id = b.libra_id`

// BorrowRepository owns the borrow ledger. Every transition that touches
// book quantity runs its paired writes inside one transaction.
type BorrowRepository struct {
	db *sqlx.DB
}

// NewBorrowRepository constructs a BorrowRepository.
func NewBorrowRepository(db *sqlx.DB) *BorrowRepository {
	return &BorrowRepository{db: db}
}

// GetByID fetches a single ledger row with book/student/librarian context.
func (r *BorrowRepository) GetByID(ctx context.Context, id int64) (*models.BorrowDetail, error) {
	query := borrowDetailSelect + " WHERE b.borrow_id = $1"
	var detail models.BorrowDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// HasActiveLoan reports whether the student currently holds the book.
func (r *BorrowRepository) HasActiveLoan(ctx context.Context, studentID, bookID int64) (bool, error) {
	const query = `SELECT 1 FROM borrows
        WHERE student_id = $1 AND book_id = $2 AND return_date IS NULL AND status = true
        AND book_status IN ($3, $4) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, studentID, bookID,
		models.BorrowStatusPending, models.BorrowStatusBorrowed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active loan: %w", err)
	}
	return true, nil
}

// CreateActive inserts a Borrowed row and decrements the book quantity in one
// transaction. The decrement is conditional on quantity > 0 so two racing
// borrows cannot push inventory negative.
func (r *BorrowRepository) CreateActive(ctx context.Context, borrow *models.Borrow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin borrow tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := decrementQuantity(ctx, tx, borrow.BookID); err != nil {
		return err
	}
	if err := insertBorrow(ctx, tx, borrow); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit borrow tx: %w", err)
	}
	return nil
}

// CreatePending inserts a Pending request. No inventory is reserved until a
// librarian approves it.
func (r *BorrowRepository) CreatePending(ctx context.Context, borrow *models.Borrow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin borrow tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertBorrow(ctx, tx, borrow); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit borrow tx: %w", err)
	}
	return nil
}

// Approve moves a Pending row to Borrowed, assigns the librarian and
// decrements the book quantity. Availability is re-checked here: copies may
// have run out while the request sat in the queue.
func (r *BorrowRepository) Approve(ctx context.Context, id, libraID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	bookID, status, err := lockBorrow(ctx, tx, id)
	if err != nil {
		return err
	}
	if status != models.BorrowStatusPending {
		return ErrInvalidTransition
	}

	if err := decrementQuantity(ctx, tx, bookID); err != nil {
		return err
	}

	const update = `UPDATE borrows SET book_status = $2, libra_id = $3, updated_at = $4 WHERE borrow_id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.BorrowStatusBorrowed, libraID, time.Now().UTC()); err != nil {
		return fmt.Errorf("approve borrow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// Reject moves a Pending row to Rejected and deactivates it. Inventory is
// untouched because nothing was reserved.
func (r *BorrowRepository) Reject(ctx context.Context, id, libraID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, status, err := lockBorrow(ctx, tx, id)
	if err != nil {
		return err
	}
	if status != models.BorrowStatusPending {
		return ErrInvalidTransition
	}

	const update = `UPDATE borrows SET book_status = $2, status = false, libra_id = $3, updated_at = $4 WHERE borrow_id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.BorrowStatusRejected, libraID, time.Now().UTC()); err != nil {
		return fmt.Errorf("reject borrow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reject tx: %w", err)
	}
	return nil
}

// Return completes a Borrowed loan: stamps the return date, fine and
// librarian, and restores one copy to the book. A second call finds the row
// out of the Borrowed state and fails with ErrInvalidTransition, so the
// quantity can never be incremented twice for one loan.
func (r *BorrowRepository) Return(ctx context.Context, id int64, fineAmount int64, libraID int64, returnDate time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	bookID, status, err := lockBorrow(ctx, tx, id)
	if err != nil {
		return err
	}
	if status != models.BorrowStatusBorrowed {
		return ErrInvalidTransition
	}

	const update = `UPDATE borrows SET book_status = $2, return_date = $3, fine_amount = $4, libra_id = $5, updated_at = $6
        WHERE borrow_id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.BorrowStatusReturned, returnDate, fineAmount, libraID, time.Now().UTC()); err != nil {
		return fmt.Errorf("return borrow: %w", err)
	}

	const restock = `UPDATE books SET quantity = quantity + 1, updated_at = $2 WHERE book_id = $1`
	if _, err := tx.ExecContext(ctx, restock, bookID, time.Now().UTC()); err != nil {
		return fmt.Errorf("restock book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit return tx: %w", err)
	}
	return nil
}

// List returns active ledger rows, newest borrow first. The email filter is a
// case-sensitive substring match against the student's email.
func (r *BorrowRepository) List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error) {
	conditions := []string{"b.status = true"}
	args := make([]interface{}, 0, 2)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("b.book_status = $%d", len(args)))
	}
	if filter.Email != "" {
		// position() keeps % and _ in the filter literal.
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("position($%d in s.email) > 0", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY b.borrow_date DESC, b.borrow_id DESC",
		borrowDetailSelect, strings.Join(conditions, " AND "))

	var borrows []models.BorrowDetail
	if err := r.db.SelectContext(ctx, &borrows, query, args...); err != nil {
		return nil, fmt.Errorf("list borrows: %w", err)
	}
	return borrows, nil
}

// ListByStudent returns a student's loans. With activeOnly, only outstanding
// rows (return_date IS NULL) are returned.
func (r *BorrowRepository) ListByStudent(ctx context.Context, studentID int64, activeOnly bool) ([]models.BorrowDetail, error) {
	query := borrowDetailSelect + " WHERE b.student_id = $1 AND b.status = true"
	if activeOnly {
		query += " AND b.return_date IS NULL"
	}
	query += " ORDER BY b.borrow_date DESC, b.borrow_id DESC"

	var borrows []models.BorrowDetail
	if err := r.db.SelectContext(ctx, &borrows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student borrows: %w", err)
	}
	return borrows, nil
}

// CountByStatus counts active rows in the given lifecycle state.
func (r *BorrowRepository) CountByStatus(ctx context.Context, status models.BorrowStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM borrows WHERE book_status = $1 AND status = true`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count borrows by status: %w", err)
	}
	return count, nil
}

// CountOverdue counts active Borrowed rows past their due date.
func (r *BorrowRepository) CountOverdue(ctx context.Context, today time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM borrows
        WHERE book_status = $1 AND due_date < $2 AND status = true`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.BorrowStatusBorrowed, today); err != nil {
		return 0, fmt.Errorf("count overdue borrows: %w", err)
	}
	return count, nil
}

// SumUnpaidFines totals fines over active rows.
func (r *BorrowRepository) SumUnpaidFines(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(SUM(fine_amount), 0) FROM borrows WHERE status = true AND fine_amount > 0`
	var total int64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum unpaid fines: %w", err)
	}
	return total, nil
}

// ListPending returns the oldest waiting requests, capped at limit.
func (r *BorrowRepository) ListPending(ctx context.Context, limit int) ([]models.BorrowDetail, error) {
	query := borrowDetailSelect + ` WHERE b.book_status = $1 AND b.status = true
        ORDER BY b.borrow_date ASC, b.borrow_id ASC LIMIT $2`
	var borrows []models.BorrowDetail
	if err := r.db.SelectContext(ctx, &borrows, query, models.BorrowStatusPending, limit); err != nil {
		return nil, fmt.Errorf("list pending borrows: %w", err)
	}
	return borrows, nil
}

// ListDueSoon returns loans due within the window (exclusive of today),
// soonest first, capped at limit.
func (r *BorrowRepository) ListDueSoon(ctx context.Context, today time.Time, window time.Duration, limit int) ([]models.BorrowDetail, error) {
	query := borrowDetailSelect + ` WHERE b.book_status = $1 AND b.status = true
        AND b.due_date > $2 AND b.due_date <= $3
        ORDER BY b.due_date ASC, b.borrow_id ASC LIMIT $4`
	var borrows []models.BorrowDetail
	if err := r.db.SelectContext(ctx, &borrows, query, models.BorrowStatusBorrowed, today, today.Add(window), limit); err != nil {
		return nil, fmt.Errorf("list due-soon borrows: %w", err)
	}
	return borrows, nil
}

// ListOverdue returns loans past due, most overdue first, capped at limit.
func (r *BorrowRepository) ListOverdue(ctx context.Context, today time.Time, limit int) ([]models.BorrowDetail, error) {
	query := borrowDetailSelect + ` WHERE b.book_status = $1 AND b.status = true AND b.due_date < $2
        ORDER BY b.due_date ASC, b.borrow_id ASC LIMIT $3`
	var borrows []models.BorrowDetail
	if err := r.db.SelectContext(ctx, &borrows, query, models.BorrowStatusBorrowed, today, limit); err != nil {
		return nil, fmt.Errorf("list overdue borrows: %w", err)
	}
	return borrows, nil
}

// Delete removes a ledger row (administrative raw CRUD, not a lifecycle step).
func (r *BorrowRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM borrows WHERE borrow_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete borrow: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertBorrow(ctx context.Context, tx *sqlx.Tx, borrow *models.Borrow) error {
	now := time.Now().UTC()
	if borrow.CreatedAt.IsZero() {
		borrow.CreatedAt = now
	}
	borrow.UpdatedAt = now
	const query = `INSERT INTO borrows (student_id, book_id, libra_id, borrow_date, due_date, return_date, fine_amount, book_status, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING borrow_id`
	if err := tx.QueryRowContext(ctx, query,
		borrow.StudentID, borrow.BookID, borrow.LibraID, borrow.BorrowDate, borrow.DueDate,
		borrow.ReturnDate, borrow.FineAmount, borrow.BookStatus, borrow.Status,
		borrow.CreatedAt, borrow.UpdatedAt).Scan(&borrow.BorrowID); err != nil {
		return fmt.Errorf("insert borrow: %w", err)
	}
	return nil
}

func decrementQuantity(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	const query = `UPDATE books SET quantity = quantity - 1, updated_at = $2 WHERE book_id = $1 AND quantity > 0`
	res, err := tx.ExecContext(ctx, query, bookID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement quantity: %w", err)
	}
	if affected == 0 {
		return ErrNoAvailableCopies
	}
	return nil
}

func lockBorrow(ctx context.Context, tx *sqlx.Tx, id int64) (int64, models.BorrowStatus, error) {
	const query = `SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE`
	var (
		bookID int64
		status models.BorrowStatus
	)
	if err := tx.QueryRowContext(ctx, query, id).Scan(&bookID, &status); err != nil {
		return 0, "", err
	}
	return bookID, status, nil
}
