package dto

import "time"

// CreateStudentRequest provisions a student account from the admin side.
type CreateStudentRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	Fullname string `json:"fullname" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// UpdateStudentRequest rewrites a student's profile fields.
type UpdateStudentRequest struct {
	Fullname string `json:"fullname" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Status   bool   `json:"status"`
}

// CreateLibrarianRequest provisions a librarian account.
type CreateLibrarianRequest struct {
	Username string     `json:"username" validate:"required,min=3,max=50"`
	Password string     `json:"password" validate:"required,min=8"`
	Fullname string     `json:"fullname" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email"`
	Phone    string     `json:"phone" validate:"omitempty,max=20"`
	HireDate *time.Time `json:"hire_date"`
}

// UpdateLibrarianRequest rewrites a librarian's profile fields.
type UpdateLibrarianRequest struct {
	Fullname string     `json:"fullname" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email"`
	Phone    string     `json:"phone" validate:"omitempty,max=20"`
	HireDate *time.Time `json:"hire_date"`
	Status   bool       `json:"status"`
}
