package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with the account's profile.
type Claims struct {
	jwt.RegisteredClaims
	UserID     uuid.UUID  `json:"user_id"`
	RollNumber string     `json:"roll_number"`
	Name       string     `json:"name"`
	Role       model.Role `json:"role"`
	Department string     `json:"department"`
	Section    string     `json:"section,omitempty"`
	Batch      string     `json:"batch,omitempty"`
}

// Caller is the identity a service call runs as.
type Caller struct {
	ID         uuid.UUID
	Role       model.Role
	Department string
	Batch      string
}

// Caller extracts the identity carried by the token.
func (c *Claims) Caller() Caller {
	return Caller{ID: c.UserID, Role: c.Role, Department: c.Department, Batch: c.Batch}
}

// AuthService handles registration, login, password hashing and JWTs.
type AuthService struct {
	cfg      *config.Config
	accounts AccountStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, accounts AccountStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		log:      log.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Register creates an account from a self-registration request. Only admins
// start approved; everyone else waits for an administrator.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Account, error) {
	role := req.Role
	if role == "" {
		role = model.RoleStudent
	}
	if role == model.RoleAdmin && !s.cfg.AllowAdminRegistration {
		return nil, ErrAdminRegistrationDisabled
	}

	section, batch := strings.TrimSpace(req.Section), strings.TrimSpace(req.Batch)
	if role == model.RoleStudent {
		if batch == "" {
			return nil, newValidationError("batch", "batch is required for students")
		}
	} else {
		section, batch = "", ""
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		RollNumber:   strings.TrimSpace(req.RollNumber),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
		Section:      section,
		Batch:        batch,
		IsApproved:   role == model.RoleAdmin,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRollNumberTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("role", string(account.Role)).
		Bool("approved", account.IsApproved).
		Msg("Account registered")

	return account, nil
}

// Login verifies credentials and issues a token. The password is checked before
// approval so pending status is never revealed to someone without the password.
func (s *AuthService) Login(ctx context.Context, rollNumber, password string) (*model.LoginResponse, error) {
	account, err := s.accounts.GetByRollNumber(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := s.CheckPassword(account.PasswordHash, password); err != nil {
		return nil, err
	}

	if !account.IsApproved {
		return nil, ErrPendingApproval
	}

	token, err := s.GenerateToken(account)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{Token: token, Account: account}, nil
}

// GenerateToken creates a signed JWT embedding the account's profile.
func (s *AuthService) GenerateToken(a *model.Account) (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:     a.ID,
		RollNumber: a.RollNumber,
		Name:       a.Name,
		Role:       a.Role,
		Department: a.Department,
		Section:    a.Section,
		Batch:      a.Batch,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// EnsureDefaultAdmin creates the bootstrap administrator when a password is configured
// and no account holds the configured roll number yet.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) error {
	if s.cfg.DefaultAdminPassword == "" {
		return nil
	}

	_, err := s.accounts.GetByRollNumber(ctx, s.cfg.DefaultAdminRollNumber)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup default admin: %w", err)
	}

	hash, err := s.HashPassword(s.cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Account{
		RollNumber:   s.cfg.DefaultAdminRollNumber,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Department:   "Administration",
		IsApproved:   true,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create default admin: %w", err)
	}

	s.log.Info().Str("roll_number", admin.RollNumber).Msg("Default admin created")
	return nil
}
