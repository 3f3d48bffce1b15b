package models

import "time"

// BorrowStatus enumerates the borrow lifecycle states.
type BorrowStatus string

const (
	BorrowStatusPending  BorrowStatus = "Pending"
	BorrowStatusBorrowed BorrowStatus = "Borrowed"
	BorrowStatusReturned BorrowStatus = "Returned"
	BorrowStatusRejected BorrowStatus = "Rejected"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s BorrowStatus) Valid() bool {
	switch s {
	case BorrowStatusPending, BorrowStatusBorrowed, BorrowStatusReturned, BorrowStatusRejected:
		return true
	}
	return false
}

// BorrowMode selects the entry point semantics for a new borrow.
type BorrowMode string

const (
	// BorrowModeSelfService lends immediately, decrementing inventory.
	BorrowModeSelfService BorrowMode = "self_service"
	// BorrowModeRequest queues the borrow for librarian approval.
	BorrowModeRequest BorrowMode = "request"
)

// Borrow is one row of the borrow ledger. Active means ReturnDate is nil and
// Status is true; every decremented book copy maps to exactly one such row.
type Borrow struct {
	BorrowID   int64        `db:"borrow_id" json:"borrow_id"`
	StudentID  int64        `db:"student_id" json:"student_id"`
	BookID     int64        `db:"book_id" json:"book_id"`
	LibraID    *int64       `db:"libra_id" json:"libra_id,omitempty"`
	BorrowDate time.Time    `db:"borrow_date" json:"borrow_date"`
	DueDate    time.Time    `db:"due_date" json:"due_date"`
	ReturnDate *time.Time   `db:"return_date" json:"return_date,omitempty"`
	FineAmount int64        `db:"fine_amount" json:"fine_amount"`
	BookStatus BorrowStatus `db:"book_status" json:"book_status"`
	Status     bool         `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// BorrowDetail joins the book title and the people involved.
type BorrowDetail struct {
	Borrow
	BookTitle     string  `db:"book_title" json:"book_title"`
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentEmail  string  `db:"student_email" json:"student_email"`
	LibrarianName *string `db:"librarian_name" json:"librarian_name,omitempty"`
}

// BorrowFilter captures the management-list filters.
type BorrowFilter struct {
	Status BorrowStatus
	// Email filters by case-sensitive substring of the student's email.
	Email string
}
