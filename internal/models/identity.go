package models

import "time"

// Student may browse, self-borrow and request borrows.
type Student struct {
	StudentID    int64     `db:"student_id" json:"student_id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Fullname     string    `db:"fullname" json:"fullname"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Status       bool      `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures search criteria for listing students.
type StudentFilter struct {
	Search    string
	Status    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Librarian reviews borrow requests and processes returns.
type Librarian struct {
	LibraID      int64      `db:"libra_id" json:"libra_id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Fullname     string     `db:"fullname" json:"fullname"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	HireDate     *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	Status       bool       `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Admin administers the whole system.
type Admin struct {
	AdminID      int64     `db:"admin_id" json:"admin_id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Fullname     string    `db:"fullname" json:"fullname"`
	Email        string    `db:"email" json:"email"`
	Status       bool      `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
