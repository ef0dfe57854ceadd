package domain

import "time"

// TechnicianRole enumerates operator roles.
type TechnicianRole string

const (
	RoleTechnician TechnicianRole = "technician"
	RoleAdmin      TechnicianRole = "admin"
)

// Technician models an operator who can be assigned tickets.
type Technician struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         TechnicianRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
