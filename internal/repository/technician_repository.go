package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// TechnicianRepository encapsulates technician persistence.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	GetByEmail(ctx context.Context, email string) (*domain.Technician, error)
	ListActive(ctx context.Context) ([]domain.Technician, error)
}

const technicianColumns = `id, name, email, password_hash, role, active, created_at, updated_at`

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	const query = `
        INSERT INTO technicians (name, email, password_hash, role, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		technician.Name,
		technician.Email,
		technician.PasswordHash,
		technician.Role,
		technician.Active,
	).Scan(&technician.ID, &technician.CreatedAt, &technician.UpdatedAt)
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *technicianRepository) GetByEmail(ctx context.Context, email string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

// ListActive returns active technicians in creation order; auto-assignment
// depends on this ordering for its tie-break.
func (r *technicianRepository) ListActive(ctx context.Context) ([]domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE active ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var technician domain.Technician
		if err := scanTechnician(rows, &technician); err != nil {
			return nil, err
		}
		result = append(result, technician)
	}
	return result, rows.Err()
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Technician, error) {
	var technician domain.Technician
	if err := scanTechnician(r.pool.QueryRow(ctx, query, arg), &technician); err != nil {
		return nil, err
	}
	return &technician, nil
}

func scanTechnician(row rowScanner, technician *domain.Technician) error {
	return row.Scan(
		&technician.ID,
		&technician.Name,
		&technician.Email,
		&technician.PasswordHash,
		&technician.Role,
		&technician.Active,
		&technician.CreatedAt,
		&technician.UpdatedAt,
	)
}
