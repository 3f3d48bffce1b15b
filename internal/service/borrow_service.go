package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

const dashboardCachePattern = "dashboard:*"

type borrowStore interface {
	GetByID(ctx context.Context, id int64) (*models.BorrowDetail, error)
	HasActiveLoan(ctx context.Context, studentID, bookID int64) (bool, error)
	CreateActive(ctx context.Context, borrow *models.Borrow) error
	CreatePending(ctx context.Context, borrow *models.Borrow) error
	Approve(ctx context.Context, id, libraID int64) error
	Reject(ctx context.Context, id, libraID int64) error
	Return(ctx context.Context, id int64, fineAmount int64, libraID int64, returnDate time.Time) error
	List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error)
	ListByStudent(ctx context.Context, studentID int64, activeOnly bool) ([]models.BorrowDetail, error)
}

type borrowBookReader interface {
	GetByID(ctx context.Context, id int64) (*models.BookDetail, error)
}

type borrowStudentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// BorrowConfig holds the loan policy knobs.
type BorrowConfig struct {
	LoanPeriodDays int
	FineRatePerDay int64
}

// BorrowService drives the borrow ledger lifecycle:
// Pending -> Borrowed -> Returned, with Rejected as the dead end for denied
// requests. Inventory moves only on Borrowed and Returned.
type BorrowService struct {
	borrows   borrowStore
	books     borrowBookReader
	students  borrowStudentReader
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    BorrowConfig
	now       func() time.Time
}

// NewBorrowService constructs a BorrowService.
func NewBorrowService(borrows borrowStore, books borrowBookReader, students borrowStudentReader, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, config BorrowConfig) *BorrowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BorrowService{
		borrows:   borrows,
		books:     books,
		students:  students,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a ledger record for the authenticated student. Guards run in a
// fixed order so the caller always sees the same failure for the same state:
// student identity, book existence, duplicate active loan, then availability.
func (s *BorrowService) Create(ctx context.Context, principal models.PrincipalInfo, req dto.CreateBorrowRequest) (*models.BorrowDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid borrow payload")
	}
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can borrow books")
	}

	student, err := s.students.GetByID(ctx, principal.IdentityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if !student.Status {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}

	book, err := s.books.GetByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch book")
	}

	active, err := s.borrows.HasActiveLoan(ctx, student.StudentID, book.BookID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active loans")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrDuplicateLoan, "you already hold this book")
	}

	mode := models.BorrowMode(req.Mode)
	if mode == "" {
		mode = models.BorrowModeSelfService
	}

	today := truncateToDay(s.now())
	borrow := &models.Borrow{
		StudentID:  student.StudentID,
		BookID:     book.BookID,
		BorrowDate: today,
		DueDate:    today.AddDate(0, 0, s.config.LoanPeriodDays),
		Status:     true,
	}

	switch mode {
	case models.BorrowModeSelfService:
		borrow.BookStatus = models.BorrowStatusBorrowed
		if err := s.borrows.CreateActive(ctx, borrow); err != nil {
			if errors.Is(err, repository.ErrNoAvailableCopies) {
				return nil, appErrors.Clone(appErrors.ErrOutOfStock, "no copies available")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create borrow")
		}
	case models.BorrowModeRequest:
		borrow.BookStatus = models.BorrowStatusPending
		if err := s.borrows.CreatePending(ctx, borrow); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create borrow request")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown borrow mode")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("borrow created",
		zap.Int64("borrow_id", borrow.BorrowID),
		zap.Int64("student_id", student.StudentID),
		zap.Int64("book_id", book.BookID),
		zap.String("book_status", string(borrow.BookStatus)))

	return s.detail(ctx, borrow.BorrowID)
}

// Review applies a librarian decision to a pending request.
func (s *BorrowService) Review(ctx context.Context, borrowID int64, req dto.ReviewBorrowRequest, librarianID int64) (*models.BorrowDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	var err error
	switch req.Action {
	case "approve":
		err = s.borrows.Approve(ctx, borrowID, librarianID)
	case "reject":
		err = s.borrows.Reject(ctx, borrowID, librarianID)
	}
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow record not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.Clone(appErrors.ErrConflict, "borrow record is not pending")
		case errors.Is(err, repository.ErrNoAvailableCopies):
			return nil, appErrors.Clone(appErrors.ErrOutOfStock, "no copies available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review borrow")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("borrow reviewed",
		zap.Int64("borrow_id", borrowID),
		zap.String("action", req.Action),
		zap.Int64("librarian_id", librarianID))

	return s.detail(ctx, borrowID)
}

// Return completes a loan, stamping the return date, the acting librarian and
// the late fine. The fine is FineRatePerDay per full day past due, zero when
// returned on time, unless an explicit override is given.
func (s *BorrowService) Return(ctx context.Context, borrowID int64, req dto.ReturnBorrowRequest, librarianID int64) (*models.BorrowDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid return payload")
	}

	current, err := s.borrows.GetByID(ctx, borrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch borrow")
	}

	returnDate := truncateToDay(s.now())
	fine := s.ComputeFine(current.DueDate, returnDate)
	if req.FineOverride != nil {
		fine = *req.FineOverride
	}

	if err := s.borrows.Return(ctx, borrowID, fine, librarianID, returnDate); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow record not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.Clone(appErrors.ErrConflict, "borrow record is not an open loan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return borrow")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("borrow returned",
		zap.Int64("borrow_id", borrowID),
		zap.Int64("fine_amount", fine),
		zap.Int64("librarian_id", librarianID))

	return s.detail(ctx, borrowID)
}

// List returns the active ledger for staff, newest first.
func (s *BorrowService) List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown borrow status")
	}
	borrows, err := s.borrows.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list borrows")
	}
	return borrows, nil
}

// MyBorrows returns the authenticated student's loans.
func (s *BorrowService) MyBorrows(ctx context.Context, principal models.PrincipalInfo, activeOnly bool) ([]models.BorrowDetail, error) {
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have a personal borrow list")
	}
	borrows, err := s.borrows.ListByStudent(ctx, principal.IdentityID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list borrows")
	}
	return borrows, nil
}

// Get returns one ledger record. Students can only see their own.
func (s *BorrowService) Get(ctx context.Context, borrowID int64, principal models.PrincipalInfo) (*models.BorrowDetail, error) {
	detail, err := s.detail(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if principal.Role == models.RoleStudent && detail.StudentID != principal.IdentityID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your borrow record")
	}
	return detail, nil
}

// ComputeFine charges the per-day rate for each full day past due.
func (s *BorrowService) ComputeFine(dueDate, returnDate time.Time) int64 {
	daysLate := int64(truncateToDay(returnDate).Sub(truncateToDay(dueDate)) / (24 * time.Hour))
	if daysLate <= 0 {
		return 0
	}
	return daysLate * s.config.FineRatePerDay
}

func (s *BorrowService) detail(ctx context.Context, id int64) (*models.BorrowDetail, error) {
	detail, err := s.borrows.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch borrow")
	}
	return detail, nil
}

func (s *BorrowService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
