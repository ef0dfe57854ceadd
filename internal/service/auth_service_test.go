package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
)

func newAuthFixture(t *testing.T, cfg config.AuthConfig) (*AuthService, *fakeTechnicianRepo) {
	t.Helper()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "test-secret"
	}
	if cfg.AccessTokenTTLMinutes == 0 {
		cfg.AccessTokenTTLMinutes = 60
	}
	cfg.BcryptCost = bcrypt.MinCost
	repo := &fakeTechnicianRepo{}
	return NewAuthService(cfg, repo), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture(t, config.AuthConfig{})

	technician, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter2hunter2", domain.RoleTechnician)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if technician.ID == "" || !technician.Active {
		t.Fatalf("technician = %+v, want persisted active account", technician)
	}
	if err := auth.ComparePassword(technician.PasswordHash, "hunter2hunter2"); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	result, err := svc.Login(context.Background(), "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected signed token")
	}

	_, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	assertValidationMessage(t, err, "invalid credentials")
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture(t, config.AuthConfig{})

	cases := []struct {
		name     string
		techName string
		email    string
		password string
		role     domain.TechnicianRole
		wantMsg  string
	}{
		{"missing email", "Alice", "  ", "hunter2hunter2", domain.RoleTechnician, "name and email required"},
		{"short password", "Alice", "alice@example.com", "short", domain.RoleTechnician, "password must be at least 8 characters"},
		{"unknown role", "Alice", "alice@example.com", "hunter2hunter2", "superuser", "invalid role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.techName, tc.email, tc.password, tc.role)
			assertValidationMessage(t, err, tc.wantMsg)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, config.AuthConfig{})

	if _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter2hunter2", domain.RoleTechnician); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(context.Background(), "Alice Again", "alice@example.com", "hunter2hunter2", domain.RoleTechnician)
	assertValidationMessage(t, err, "email already registered")
}

func TestEnsureBootstrapAdminCreatesOnce(t *testing.T) {
	svc, repo := newAuthFixture(t, config.AuthConfig{
		BootstrapAdminName:     "Administrator",
		BootstrapAdminEmail:    "admin@example.com",
		BootstrapAdminPassword: "changeme-now",
	})

	if err := svc.EnsureBootstrapAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureBootstrapAdmin: %v", err)
	}
	if len(repo.technicians) != 1 {
		t.Fatalf("technicians = %d, want 1", len(repo.technicians))
	}
	admin := repo.technicians[0]
	if admin.Role != domain.RoleAdmin || !admin.Active {
		t.Fatalf("bootstrap account = %+v, want active admin", admin)
	}

	// A restart must not duplicate the account.
	if err := svc.EnsureBootstrapAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureBootstrapAdmin second run: %v", err)
	}
	if len(repo.technicians) != 1 {
		t.Fatalf("technicians after second run = %d, want 1", len(repo.technicians))
	}

	if _, err := svc.Login(context.Background(), "admin@example.com", "changeme-now"); err != nil {
		t.Fatalf("bootstrap admin cannot log in: %v", err)
	}
}

func TestEnsureBootstrapAdminSkipsWhenUnconfigured(t *testing.T) {
	svc, repo := newAuthFixture(t, config.AuthConfig{BootstrapAdminName: "Administrator"})

	if err := svc.EnsureBootstrapAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureBootstrapAdmin: %v", err)
	}
	if len(repo.technicians) != 0 {
		t.Fatalf("technicians = %d, want none without bootstrap config", len(repo.technicians))
	}
}
