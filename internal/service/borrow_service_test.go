package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type borrowStoreMock struct {
	detail          *models.BorrowDetail
	active          bool
	createActiveErr error
	approveErr      error
	rejectErr       error
	returnErr       error

	createdActive  *models.Borrow
	createdPending *models.Borrow
	returnedFine   int64
	returnedDate   time.Time
	returnedLibra  int64
}

func (m *borrowStoreMock) GetByID(ctx context.Context, id int64) (*models.BorrowDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *borrowStoreMock) HasActiveLoan(ctx context.Context, studentID, bookID int64) (bool, error) {
	return m.active, nil
}

func (m *borrowStoreMock) CreateActive(ctx context.Context, borrow *models.Borrow) error {
	if m.createActiveErr != nil {
		return m.createActiveErr
	}
	borrow.BorrowID = 42
	m.createdActive = borrow
	return nil
}

func (m *borrowStoreMock) CreatePending(ctx context.Context, borrow *models.Borrow) error {
	borrow.BorrowID = 43
	m.createdPending = borrow
	return nil
}

func (m *borrowStoreMock) Approve(ctx context.Context, id, libraID int64) error { return m.approveErr }
func (m *borrowStoreMock) Reject(ctx context.Context, id, libraID int64) error  { return m.rejectErr }

func (m *borrowStoreMock) Return(ctx context.Context, id int64, fineAmount int64, libraID int64, returnDate time.Time) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.returnedFine = fineAmount
	m.returnedLibra = libraID
	m.returnedDate = returnDate
	return nil
}

func (m *borrowStoreMock) List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error) {
	if m.detail == nil {
		return nil, nil
	}
	return []models.BorrowDetail{*m.detail}, nil
}

func (m *borrowStoreMock) ListByStudent(ctx context.Context, studentID int64, activeOnly bool) ([]models.BorrowDetail, error) {
	if m.detail == nil {
		return nil, nil
	}
	return []models.BorrowDetail{*m.detail}, nil
}

type bookReaderMock struct {
	book *models.BookDetail
}

func (m *bookReaderMock) GetByID(ctx context.Context, id int64) (*models.BookDetail, error) {
	if m.book == nil {
		return nil, sql.ErrNoRows
	}
	return m.book, nil
}

type studentReaderMock struct {
	student *models.Student
}

func (m *studentReaderMock) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type cacheInvalidatorMock struct {
	patterns []string
}

func (m *cacheInvalidatorMock) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func studentPrincipal() models.PrincipalInfo {
	return models.PrincipalInfo{IdentityID: 3, Username: "sv001", Fullname: "Tran Van A", Role: models.RoleStudent}
}

func newBorrowServiceForTest(borrows *borrowStoreMock, books *bookReaderMock, students *studentReaderMock, cache *cacheInvalidatorMock) *BorrowService {
	svc := NewBorrowService(borrows, books, students, cache, nil, zap.NewNop(), BorrowConfig{
		LoanPeriodDays: 14,
		FineRatePerDay: 5000,
	})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func activeDetail() *models.BorrowDetail {
	return &models.BorrowDetail{
		Borrow: models.Borrow{
			BorrowID:   42,
			StudentID:  3,
			BookID:     7,
			BorrowDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			DueDate:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			BookStatus: models.BorrowStatusBorrowed,
			Status:     true,
		},
		BookTitle:    "Dune",
		StudentName:  "Tran Van A",
		StudentEmail: "a@student.edu.vn",
	}
}

func TestBorrowServiceCreateSelfService(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail()}
	books := &bookReaderMock{book: &models.BookDetail{Book: models.Book{BookID: 7, Title: "Dune", Quantity: 3}}}
	students := &studentReaderMock{student: &models.Student{StudentID: 3, Status: true}}
	cache := &cacheInvalidatorMock{}
	svc := newBorrowServiceForTest(borrows, books, students, cache)

	detail, err := svc.Create(context.Background(), studentPrincipal(), dto.CreateBorrowRequest{BookID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(42), detail.BorrowID)

	require.NotNil(t, borrows.createdActive)
	require.Equal(t, models.BorrowStatusBorrowed, borrows.createdActive.BookStatus)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), borrows.createdActive.BorrowDate)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), borrows.createdActive.DueDate)
	require.Contains(t, cache.patterns, "dashboard:*")
}

func TestBorrowServiceCreateRequestStaysPending(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail()}
	books := &bookReaderMock{book: &models.BookDetail{Book: models.Book{BookID: 7, Quantity: 0}}}
	students := &studentReaderMock{student: &models.Student{StudentID: 3, Status: true}}
	svc := newBorrowServiceForTest(borrows, books, students, &cacheInvalidatorMock{})

	_, err := svc.Create(context.Background(), studentPrincipal(), dto.CreateBorrowRequest{BookID: 7, Mode: "request"})
	require.NoError(t, err)
	require.Nil(t, borrows.createdActive)
	require.NotNil(t, borrows.createdPending)
	require.Equal(t, models.BorrowStatusPending, borrows.createdPending.BookStatus)
}

func TestBorrowServiceCreateDuplicateLoan(t *testing.T) {
	borrows := &borrowStoreMock{active: true}
	books := &bookReaderMock{book: &models.BookDetail{Book: models.Book{BookID: 7}}}
	students := &studentReaderMock{student: &models.Student{StudentID: 3, Status: true}}
	svc := newBorrowServiceForTest(borrows, books, students, &cacheInvalidatorMock{})

	_, err := svc.Create(context.Background(), studentPrincipal(), dto.CreateBorrowRequest{BookID: 7})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrDuplicateLoan.Code, appErr.Code)
}

func TestBorrowServiceCreateOutOfStock(t *testing.T) {
	borrows := &borrowStoreMock{createActiveErr: repository.ErrNoAvailableCopies}
	books := &bookReaderMock{book: &models.BookDetail{Book: models.Book{BookID: 7}}}
	students := &studentReaderMock{student: &models.Student{StudentID: 3, Status: true}}
	svc := newBorrowServiceForTest(borrows, books, students, &cacheInvalidatorMock{})

	_, err := svc.Create(context.Background(), studentPrincipal(), dto.CreateBorrowRequest{BookID: 7})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrOutOfStock.Code, appErr.Code)
}

func TestBorrowServiceCreateRejectsNonStudents(t *testing.T) {
	svc := newBorrowServiceForTest(&borrowStoreMock{}, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	principal := models.PrincipalInfo{IdentityID: 5, Role: models.RoleLibrarian}
	_, err := svc.Create(context.Background(), principal, dto.CreateBorrowRequest{BookID: 7})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBorrowServiceCreateInactiveStudent(t *testing.T) {
	borrows := &borrowStoreMock{}
	books := &bookReaderMock{book: &models.BookDetail{Book: models.Book{BookID: 7}}}
	students := &studentReaderMock{student: &models.Student{StudentID: 3, Status: false}}
	svc := newBorrowServiceForTest(borrows, books, students, &cacheInvalidatorMock{})

	_, err := svc.Create(context.Background(), studentPrincipal(), dto.CreateBorrowRequest{BookID: 7})
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestBorrowServiceReviewMapsTransitionConflicts(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail(), approveErr: repository.ErrInvalidTransition}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	_, err := svc.Review(context.Background(), 42, dto.ReviewBorrowRequest{Action: "approve"}, 5)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	borrows.approveErr = repository.ErrNoAvailableCopies
	_, err = svc.Review(context.Background(), 42, dto.ReviewBorrowRequest{Action: "approve"}, 5)
	appErr = appErrors.FromError(err)
	require.Equal(t, appErrors.ErrOutOfStock.Code, appErr.Code)
}

func TestBorrowServiceReviewReject(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail()}
	cache := &cacheInvalidatorMock{}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, cache)

	detail, err := svc.Review(context.Background(), 42, dto.ReviewBorrowRequest{Action: "reject"}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(42), detail.BorrowID)
	require.Contains(t, cache.patterns, "dashboard:*")
}

func TestBorrowServiceReturnComputesLateFine(t *testing.T) {
	detail := activeDetail()
	detail.DueDate = time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	borrows := &borrowStoreMock{detail: detail}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	// Seven full days late at 5000 per day.
	_, err := svc.Return(context.Background(), 42, dto.ReturnBorrowRequest{}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(35000), borrows.returnedFine)
	require.Equal(t, int64(5), borrows.returnedLibra)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), borrows.returnedDate)
}

func TestBorrowServiceReturnOnTimeHasNoFine(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail()}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	_, err := svc.Return(context.Background(), 42, dto.ReturnBorrowRequest{}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(0), borrows.returnedFine)
}

func TestBorrowServiceReturnFineOverride(t *testing.T) {
	detail := activeDetail()
	detail.DueDate = time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	borrows := &borrowStoreMock{detail: detail}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	override := int64(10000)
	_, err := svc.Return(context.Background(), 42, dto.ReturnBorrowRequest{FineOverride: &override}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(10000), borrows.returnedFine)
}

func TestBorrowServiceReturnTwiceConflicts(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail(), returnErr: repository.ErrInvalidTransition}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	_, err := svc.Return(context.Background(), 42, dto.ReturnBorrowRequest{}, 5)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestBorrowServiceGetGuardsOwnership(t *testing.T) {
	borrows := &borrowStoreMock{detail: activeDetail()}
	svc := newBorrowServiceForTest(borrows, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	_, err := svc.Get(context.Background(), 42, studentPrincipal())
	require.NoError(t, err)

	other := models.PrincipalInfo{IdentityID: 99, Role: models.RoleStudent}
	_, err = svc.Get(context.Background(), 42, other)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBorrowServiceComputeFineIgnoresTimeOfDay(t *testing.T) {
	svc := newBorrowServiceForTest(&borrowStoreMock{}, &bookReaderMock{}, &studentReaderMock{}, &cacheInvalidatorMock{})

	due := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	ret := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	require.Equal(t, int64(5000), svc.ComputeFine(due, ret))
	require.Equal(t, int64(0), svc.ComputeFine(due, due))
}
