package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// AuthService issues access tokens for technicians and administrators.
type AuthService struct {
	technicians repository.TechnicianRepository
	tokens      *auth.TokenManager
	bcryptCost  int
	bootstrap   bootstrapAdmin
}

type bootstrapAdmin struct {
	name     string
	email    string
	password string
}

const minPasswordLength = 8

// LoginResult carries a signed token and its expiry.
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	Technician *domain.Technician
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, technicians repository.TechnicianRepository) *AuthService {
	return &AuthService{
		technicians: technicians,
		tokens:      auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost:  cfg.BcryptCost,
		bootstrap: bootstrapAdmin{
			name:     cfg.BootstrapAdminName,
			email:    cfg.BootstrapAdminEmail,
			password: cfg.BootstrapAdminPassword,
		},
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	technician, err := s.technicians.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !technician.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(technician.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(technician.ID, technician.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Technician: technician}, nil
}

// Register creates a technician account with a hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.TechnicianRole) (*domain.Technician, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}
	if role != domain.RoleTechnician && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("invalid role", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	technician := &domain.Technician{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return technician, nil
}

// EnsureBootstrapAdmin creates the configured admin account when no account
// with that email exists yet. Without it a fresh database has nobody who can
// log in, which makes every authenticated route unreachable.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context) error {
	if s.bootstrap.email == "" || s.bootstrap.password == "" {
		return nil
	}
	if _, err := s.technicians.GetByEmail(ctx, s.bootstrap.email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}

	_, err := s.Register(ctx, s.bootstrap.name, s.bootstrap.email, s.bootstrap.password, domain.RoleAdmin)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" {
			// Another replica won the race; the account exists.
			return nil
		}
		return err
	}
	return nil
}
