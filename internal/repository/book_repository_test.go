package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ndthanh/qltv-api/internal/models"
)

func newBookRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()

	repo := NewBookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM books b")).
		WithArgs("%dune%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{
		"book_id", "title", "publisher_id", "year_published", "quantity", "status",
		"image_path", "description", "location", "download_link", "created_at", "updated_at", "publisher_name",
	}).AddRow(int64(7), "Dune", int64(2), 1965, 3, true, "", "", "A-12", "", time.Now(), time.Now(), "Chilton Books")
	mock.ExpectQuery(regexp.QuoteMeta("FROM books b")).
		WithArgs("%dune%", 20, 0).
		WillReturnRows(rows)

	books, total, err := repo.List(context.Background(), models.BookFilter{Search: "dune", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, books, 1)
	require.Equal(t, "Dune", books[0].Title)
	require.NotNil(t, books[0].PublisherName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryGetByIDLoadsLinks(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()

	repo := NewBookRepository(db)

	rows := sqlmock.NewRows([]string{
		"book_id", "title", "publisher_id", "year_published", "quantity", "status",
		"image_path", "description", "location", "download_link", "created_at", "updated_at", "publisher_name",
	}).AddRow(int64(7), "Dune", int64(2), 1965, 3, true, "", "", "A-12", "", time.Now(), time.Now(), "Chilton Books")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.book_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories c")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"cate_name"}).AddRow("Science Fiction"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM authors a")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"author_name"}).AddRow("Frank Herbert"))

	book, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"Science Fiction"}, book.Categories)
	require.Equal(t, []string{"Frank Herbert"}, book.Authors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()

	repo := NewBookRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.book_id = $1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBookRepositoryDeleteBlockedByLedger(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()

	repo := NewBookRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM borrows WHERE book_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 7)
	require.ErrorIs(t, err, ErrReferencedByBorrows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryDeleteRemovesLinks(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()

	repo := NewBookRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM borrows WHERE book_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM book_categories")).
		WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM book_authors")).
		WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books")).
		WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
