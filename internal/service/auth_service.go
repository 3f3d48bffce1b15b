package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type authStudentRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Student, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type authLibrarianRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Librarian, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type authAdminRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService authenticates against the three identity tables. When the same
// username exists in more than one table, the admin row wins, then the
// librarian, then the student.
type AuthService struct {
	admins     authAdminRepository
	librarians authLibrarianRepository
	students   authStudentRepository
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(admins authAdminRepository, librarians authLibrarianRepository, students authStudentRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		admins:     admins,
		librarians: librarians,
		students:   students,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// Login checks the credential against all three identity tables and issues a
// token for the highest-priority match.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	principal, hash, active, err := s.lookupPrincipal(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	token, issuedAt, err := s.generateToken(principal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("login",
		zap.String("role", string(principal.Role)),
		zap.Int64("identity_id", principal.IdentityID))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Principal:   *principal,
	}, nil
}

// Register creates a student account. Only the student identity can
// self-register; staff accounts are provisioned by an admin.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	taken, err := s.students.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		Username:     req.Username,
		PasswordHash: string(hash),
		Fullname:     req.Fullname,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// ChangePassword verifies the old password for the authenticated principal
// and stores a new hash in the matching identity table.
func (s *AuthService) ChangePassword(ctx context.Context, principal models.PrincipalInfo, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	var (
		currentHash string
		update      func(context.Context, int64, string) error
	)
	switch principal.Role {
	case models.RoleAdmin:
		admin, err := s.admins.GetByUsername(ctx, principal.Username)
		if err != nil {
			return mapIdentityErr(err)
		}
		currentHash = admin.PasswordHash
		update = s.admins.UpdatePassword
	case models.RoleLibrarian:
		librarian, err := s.librarians.GetByUsername(ctx, principal.Username)
		if err != nil {
			return mapIdentityErr(err)
		}
		currentHash = librarian.PasswordHash
		update = s.librarians.UpdatePassword
	case models.RoleStudent:
		student, err := s.students.GetByUsername(ctx, principal.Username)
		if err != nil {
			return mapIdentityErr(err)
		}
		currentHash = student.PasswordHash
		update = s.students.UpdatePassword
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := update(ctx, principal.IdentityID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

func (s *AuthService) lookupPrincipal(ctx context.Context, username string) (*models.PrincipalInfo, string, bool, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return &models.PrincipalInfo{
			IdentityID: admin.AdminID,
			Username:   admin.Username,
			Fullname:   admin.Fullname,
			Role:       models.RoleAdmin,
		}, admin.PasswordHash, admin.Status, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch admin")
	}

	librarian, err := s.librarians.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return &models.PrincipalInfo{
			IdentityID: librarian.LibraID,
			Username:   librarian.Username,
			Fullname:   librarian.Fullname,
			Role:       models.RoleLibrarian,
		}, librarian.PasswordHash, librarian.Status, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch librarian")
	}

	student, err := s.students.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return &models.PrincipalInfo{
			IdentityID: student.StudentID,
			Username:   student.Username,
			Fullname:   student.Fullname,
			Role:       models.RoleStudent,
		}, student.PasswordHash, student.Status, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	return nil, "", false, nil
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// generateToken signs an HS256 token and reports its issue time.
func (s *AuthService) generateToken(principal *models.PrincipalInfo) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.config.TokenExpiry)
	claims := models.JWTClaims{
		IdentityID: principal.IdentityID,
		Role:       principal.Role,
		Username:   principal.Username,
		Fullname:   principal.Fullname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, now, nil
}

func mapIdentityErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "account not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
}
