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

func newLibrarianRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func librarianRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"libra_id", "username", "password_hash", "fullname", "email", "phone", "hire_date", "status", "created_at", "updated_at",
	})
}

func TestLibrarianRepositoryGetByIDScansPhone(t *testing.T) {
	db, mock, cleanup := newLibrarianRepoMock(t)
	defer cleanup()

	repo := NewLibrarianRepository(db)
	hired := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := librarianRows().AddRow(int64(7), "tv002", "$2a$10$hash", "Le Thi B", "b@qltv.vn", "0900000002", hired, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM librarians WHERE libra_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	librarian, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), librarian.LibraID)
	require.Equal(t, "0900000002", librarian.Phone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLibrarianRepositoryCreateBindsPhone(t *testing.T) {
	db, mock, cleanup := newLibrarianRepoMock(t)
	defer cleanup()

	repo := NewLibrarianRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO librarians")).
		WithArgs("tv002", "$2a$10$hash", "Le Thi B", "b@qltv.vn", "0900000002", nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"libra_id"}).AddRow(int64(7)))

	librarian := &models.Librarian{
		Username:     "tv002",
		PasswordHash: "$2a$10$hash",
		Fullname:     "Le Thi B",
		Email:        "b@qltv.vn",
		Phone:        "0900000002",
		Status:       true,
	}
	err := repo.Create(context.Background(), librarian)
	require.NoError(t, err)
	require.Equal(t, int64(7), librarian.LibraID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLibrarianRepositoryUpdateWritesPhone(t *testing.T) {
	db, mock, cleanup := newLibrarianRepoMock(t)
	defer cleanup()

	repo := NewLibrarianRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE librarians SET fullname = $2, email = $3, phone = $4")).
		WithArgs(int64(7), "Le Thi B", "b@qltv.vn", "0911111111", nil, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	librarian := &models.Librarian{
		LibraID:  7,
		Fullname: "Le Thi B",
		Email:    "b@qltv.vn",
		Phone:    "0911111111",
		Status:   true,
	}
	err := repo.Update(context.Background(), librarian)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLibrarianRepositoryDeleteBlockedByLedger(t *testing.T) {
	db, mock, cleanup := newLibrarianRepoMock(t)
	defer cleanup()

	repo := NewLibrarianRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM borrows WHERE libra_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := repo.Delete(context.Background(), 7)
	require.ErrorIs(t, err, ErrReferencedByBorrows)
	require.NoError(t, mock.ExpectationsWereMet())
}
