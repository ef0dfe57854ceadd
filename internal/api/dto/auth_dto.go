package dto

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// RegisterRequest payload. Role defaults to technician when absent.
type RegisterRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Password string                `json:"password"`
	Role     domain.TechnicianRole `json:"role"`
}

// TechnicianResponse represents an operator account.
type TechnicianResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Email     string                `json:"email"`
	Role      domain.TechnicianRole `json:"role"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
}

// FromTechnician maps a domain technician onto the response shape.
func FromTechnician(t *domain.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:        t.ID,
		Name:      t.Name,
		Email:     t.Email,
		Role:      t.Role,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}
