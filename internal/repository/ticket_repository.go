package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Types          []domain.TicketType
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	AssignedTo     *string
	RequesterEmail *string
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByTypeInYear(ctx context.Context, ticketType domain.TicketType, year int) (int, error)
	CountOpenByAssignee(ctx context.Context) (map[string]int, error)
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation, e.g. a ticket-number collision under concurrent creates.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const ticketColumns = `id, ticket_number, type, title, description, status, priority,
        impact, urgency, category, requester_email, assigned_to,
        sla_policy_id, sla_policy_name, sla_response_minutes, sla_resolution_minutes,
        sla_response_due, sla_resolution_due, first_response_at,
        sla_breached, sla_response_breached,
        resolved_at, closed_at, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, type, title, description, status, priority,
            impact, urgency, category, requester_email, assigned_to,
            sla_policy_id, sla_policy_name, sla_response_minutes, sla_resolution_minutes,
            sla_response_due, sla_resolution_due)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Type,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Impact,
		ticket.Urgency,
		ticket.Category,
		ticket.RequesterEmail,
		ticket.AssignedTo,
		ticket.SLAPolicyID,
		ticket.SLAPolicyName,
		ticket.SLAResponseMinutes,
		ticket.SLAResolutionMinutes,
		ticket.SLAResponseDue,
		ticket.SLAResolutionDue,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            impact=$5, urgency=$6, category=$7, assigned_to=$8,
            sla_policy_id=$9, sla_policy_name=$10, sla_response_minutes=$11, sla_resolution_minutes=$12,
            sla_response_due=$13, sla_resolution_due=$14, first_response_at=$15,
            sla_breached=$16, sla_response_breached=$17,
            resolved_at=$18, closed_at=$19, updated_at=$20
        WHERE id=$21`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Impact,
		ticket.Urgency,
		ticket.Category,
		ticket.AssignedTo,
		ticket.SLAPolicyID,
		ticket.SLAPolicyName,
		ticket.SLAResponseMinutes,
		ticket.SLAResolutionMinutes,
		ticket.SLAResponseDue,
		ticket.SLAResolutionDue,
		ticket.FirstResponseAt,
		ticket.SLABreached,
		ticket.SLAResponseBreached,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Types) > 0 {
		clauses = append(clauses, inClause("type", filter.Types, &args))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", filter.Statuses, &args))
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, inClause("priority", filter.Priorities, &args))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.RequesterEmail != nil {
		args = append(args, *filter.RequesterEmail)
		clauses = append(clauses, fmt.Sprintf("requester_email=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// CountByTypeInYear backs ticket-number generation. The count-then-insert
// derivation races under concurrent creates; the UNIQUE constraint on
// ticket_number plus the service-level retry is what keeps numbers unique.
func (r *ticketRepository) CountByTypeInYear(ctx context.Context, ticketType domain.TicketType, year int) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE type=$1 AND created_at >= $2 AND created_at < $3`
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	var count int
	if err := r.pool.QueryRow(ctx, query, ticketType, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountOpenByAssignee returns the live open-ticket load per technician email.
// Recomputed on every call; no cached counters to drift.
func (r *ticketRepository) CountOpenByAssignee(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT assigned_to, COUNT(*) FROM tickets
        WHERE assigned_to IS NOT NULL AND status NOT IN ('resolved','closed','cancelled')
        GROUP BY assigned_to`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var assignee string
		var count int
		if err := rows.Scan(&assignee, &count); err != nil {
			return nil, err
		}
		counts[assignee] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Type,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Impact,
		&ticket.Urgency,
		&ticket.Category,
		&ticket.RequesterEmail,
		&ticket.AssignedTo,
		&ticket.SLAPolicyID,
		&ticket.SLAPolicyName,
		&ticket.SLAResponseMinutes,
		&ticket.SLAResolutionMinutes,
		&ticket.SLAResponseDue,
		&ticket.SLAResolutionDue,
		&ticket.FirstResponseAt,
		&ticket.SLABreached,
		&ticket.SLAResponseBreached,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func inClause[T ~string](column string, values []T, args *[]any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}
