package dto

import "github.com/ndthanh/qltv-api/internal/models"

// LibrarianDashboardResponse aggregates the librarian landing-page numbers
// and the three capped work lists.
type LibrarianDashboardResponse struct {
	PendingApprovalsCount int   `json:"pending_approvals_count"`
	CurrentBorrowsCount   int   `json:"current_borrows_count"`
	OverdueBooksCount     int   `json:"overdue_books_count"`
	TotalUnpaidFines      int64 `json:"total_unpaid_fines"`

	PendingBorrows []models.BorrowDetail `json:"pending_borrows"`
	DueSoonBorrows []models.BorrowDetail `json:"due_soon_borrows"`
	OverdueBorrows []models.BorrowDetail `json:"overdue_borrows"`
}
