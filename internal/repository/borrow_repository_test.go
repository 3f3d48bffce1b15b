package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ndthanh/qltv-api/internal/models"
)

func newBorrowRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func borrowDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"borrow_id", "student_id", "book_id", "libra_id", "borrow_date", "due_date",
		"return_date", "fine_amount", "book_status", "status", "created_at", "updated_at",
		"book_title", "student_name", "student_email", "librarian_name",
	})
}

func TestBorrowRepositoryCreateActiveDecrementsQuantity(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET quantity = quantity - 1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO borrows")).
		WillReturnRows(sqlmock.NewRows([]string{"borrow_id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	borrow := &models.Borrow{
		StudentID:  3,
		BookID:     7,
		BorrowDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		BookStatus: models.BorrowStatusBorrowed,
		Status:     true,
	}
	require.NoError(t, repo.CreateActive(context.Background(), borrow))
	require.Equal(t, int64(42), borrow.BorrowID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryCreateActiveOutOfStock(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET quantity = quantity - 1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateActive(context.Background(), &models.Borrow{StudentID: 3, BookID: 7})
	require.ErrorIs(t, err, ErrNoAvailableCopies)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "book_status"}).AddRow(int64(7), "Pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET quantity = quantity - 1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE borrows SET book_status = $2, libra_id = $3")).
		WithArgs(int64(42), string(models.BorrowStatusBorrowed), int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Approve(context.Background(), 42, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryApproveNotPending(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "book_status"}).AddRow(int64(7), "Borrowed"))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), 42, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryApproveOutOfStock(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "book_status"}).AddRow(int64(7), "Pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET quantity = quantity - 1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), 42, 5)
	require.ErrorIs(t, err, ErrNoAvailableCopies)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryReturnRestocks(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)
	returnDate := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "book_status"}).AddRow(int64(7), "Borrowed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE borrows SET book_status = $2, return_date = $3, fine_amount = $4")).
		WithArgs(int64(42), string(models.BorrowStatusReturned), returnDate, int64(25000), int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET quantity = quantity + 1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Return(context.Background(), 42, 25000, 5, returnDate))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryReturnTwiceRejected(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT book_id, book_status FROM borrows WHERE borrow_id = $1 FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "book_status"}).AddRow(int64(7), "Returned"))
	mock.ExpectRollback()

	err := repo.Return(context.Background(), 42, 0, 5, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryHasActiveLoan(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM borrows")).
		WithArgs(int64(3), int64(7), string(models.BorrowStatusPending), string(models.BorrowStatusBorrowed)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	active, err := repo.HasActiveLoan(context.Background(), 3, 7)
	require.NoError(t, err)
	require.True(t, active)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM borrows")).
		WithArgs(int64(3), int64(8), string(models.BorrowStatusPending), string(models.BorrowStatusBorrowed)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	active, err = repo.HasActiveLoan(context.Background(), 3, 8)
	require.NoError(t, err)
	require.False(t, active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)
	rows := borrowDetailRows().AddRow(
		int64(42), int64(3), int64(7), nil,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		nil, int64(0), "Pending", true, time.Now(), time.Now(),
		"Dune", "Tran Van A", "a@student.edu.vn", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM borrows b")).
		WithArgs(string(models.BorrowStatusPending), "student.edu").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.BorrowFilter{
		Status: models.BorrowStatusPending,
		Email:  "student.edu",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(42), list[0].BorrowID)
	require.Equal(t, "Dune", list[0].BookTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryListEmailFilterIsLiteral(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("position($1 in s.email) > 0")).
		WithArgs("100%").
		WillReturnRows(borrowDetailRows())

	list, err := repo.List(context.Background(), models.BorrowFilter{Email: "100%"})
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryDashboardAggregates(t *testing.T) {
	db, mock, cleanup := newBorrowRepoMock(t)
	defer cleanup()

	repo := NewBorrowRepository(db)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM borrows WHERE book_status = $1")).
		WithArgs(string(models.BorrowStatusPending)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	count, err := repo.CountByStatus(context.Background(), models.BorrowStatusPending)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	mock.ExpectQuery(regexp.QuoteMeta("due_date < $2")).
		WithArgs(string(models.BorrowStatusBorrowed), today).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	overdue, err := repo.CountOverdue(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, 2, overdue)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(fine_amount), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(35000)))
	total, err := repo.SumUnpaidFines(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(35000), total)
	require.NoError(t, mock.ExpectationsWereMet())
}
