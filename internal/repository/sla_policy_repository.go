package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// SLAPolicyRepository encapsulates SLA policy persistence. ListActive also
// satisfies the matcher's PolicySource contract.
type SLAPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	ListActive(ctx context.Context) ([]domain.SLAPolicy, error)
	Count(ctx context.Context) (int, error)
}

const policyColumns = `id, name, description, ticket_type, priority, impact, urgency, category,
        response_minutes, resolution_minutes,
        business_hours_only, business_start, business_end, business_days,
        is_active, created_at, updated_at`

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository instantiates repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, description, ticket_type, priority, impact, urgency, category,
            response_minutes, resolution_minutes,
            business_hours_only, business_start, business_end, business_days, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Description,
		policy.TicketType,
		policy.Priority,
		policy.Impact,
		policy.Urgency,
		policy.Category,
		policy.ResponseMinutes,
		policy.ResolutionMinutes,
		policy.BusinessHoursOnly,
		policy.BusinessStart,
		policy.BusinessEnd,
		policy.BusinessDays,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, description=$2, ticket_type=$3, priority=$4,
            impact=$5, urgency=$6, category=$7,
            response_minutes=$8, resolution_minutes=$9,
            business_hours_only=$10, business_start=$11, business_end=$12, business_days=$13,
            is_active=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := r.pool.Exec(ctx, query,
		policy.Name,
		policy.Description,
		policy.TicketType,
		policy.Priority,
		policy.Impact,
		policy.Urgency,
		policy.Category,
		policy.ResponseMinutes,
		policy.ResolutionMinutes,
		policy.BusinessHoursOnly,
		policy.BusinessStart,
		policy.BusinessEnd,
		policy.BusinessDays,
		policy.IsActive,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1`
	var policy domain.SLAPolicy
	if err := scanPolicy(r.pool.QueryRow(ctx, query, id), &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies ORDER BY created_at DESC`
	return r.queryPolicies(ctx, query)
}

func (r *slaPolicyRepository) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE is_active ORDER BY created_at DESC`
	return r.queryPolicies(ctx, query)
}

func (r *slaPolicyRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sla_policies`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *slaPolicyRepository) queryPolicies(ctx context.Context, query string) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := scanPolicy(rows, &policy); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func scanPolicy(row rowScanner, policy *domain.SLAPolicy) error {
	return row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Description,
		&policy.TicketType,
		&policy.Priority,
		&policy.Impact,
		&policy.Urgency,
		&policy.Category,
		&policy.ResponseMinutes,
		&policy.ResolutionMinutes,
		&policy.BusinessHoursOnly,
		&policy.BusinessStart,
		&policy.BusinessEnd,
		&policy.BusinessDays,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
}
