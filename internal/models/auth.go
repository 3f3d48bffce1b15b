package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleLibrarian Role = "Librarian"
	RoleStudent   Role = "Student"
)

// LoginRequest holds credentials for authenticating a principal.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and principal info.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	IssuedAt    time.Time     `json:"issued_at"`
	Principal   PrincipalInfo `json:"principal"`
}

// RegisterRequest creates a new student account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Fullname string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

// ChangePasswordRequest payload for updating a password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// PrincipalInfo describes the authenticated principal in responses.
type PrincipalInfo struct {
	IdentityID int64  `json:"identity_id"`
	Username   string `json:"username"`
	Fullname   string `json:"fullname"`
	Role       Role   `json:"role"`
}

// JWTClaims is the JWT payload for access tokens. IdentityID is the numeric
// id in the role's own table (admins, librarians or students).
type JWTClaims struct {
	IdentityID int64  `json:"identity_id"`
	Role       Role   `json:"role"`
	Username   string `json:"username"`
	Fullname   string `json:"fullname"`
	jwt.RegisteredClaims
}
