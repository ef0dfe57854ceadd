package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/sla"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// SLAService manages SLA policies and produces per-ticket SLA reports.
type SLAService struct {
	policies  repository.SLAPolicyRepository
	tickets   repository.TicketRepository
	evaluator *sla.Evaluator
	checker   *sla.Checker
	metrics   *observability.Metrics
	logger    *zap.Logger
	seed      config.SLAConfig
	now       func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	PolicyRepo repository.SLAPolicyRepository
	TicketRepo repository.TicketRepository
	Evaluator  *sla.Evaluator
	Checker    *sla.Checker
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	SeedConfig config.SLAConfig
	Clock      func() time.Time
}

// SLAStatusReport combines live breach evaluation with the stored-due-date
// consistency self check for one ticket.
type SLAStatusReport struct {
	TicketID     string
	TicketNumber string
	Evaluation   sla.Evaluation
	Check        sla.CheckReport
	EvaluatedAt  time.Time
}

// PolicyInput describes policy create/update payloads.
type PolicyInput struct {
	Name              string
	Description       string
	TicketType        *domain.TicketType
	Priority          *domain.TicketPriority
	Impact            *string
	Urgency           *string
	Category          *string
	ResponseMinutes   int
	ResolutionMinutes int
	BusinessHoursOnly bool
	BusinessStart     string
	BusinessEnd       string
	BusinessDays      string
	IsActive          bool
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		policies:  deps.PolicyRepo,
		tickets:   deps.TicketRepo,
		evaluator: deps.Evaluator,
		checker:   deps.Checker,
		metrics:   deps.Metrics,
		logger:    logger,
		seed:      deps.SeedConfig,
		now:       now,
	}
}

// SeedDefaultPolicies inserts the four priority-tier catch-all policies on
// first boot. A non-empty policy table is left untouched.
func (s *SLAService) SeedDefaultPolicies(ctx context.Context) error {
	count, err := s.policies.Count(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		priority      domain.TicketPriority
		businessHours bool
	}{
		{domain.TicketPriorityCritical, false}, // critical runs around the clock
		{domain.TicketPriorityHigh, true},
		{domain.TicketPriorityMedium, true},
		{domain.TicketPriorityLow, true},
	}
	for _, def := range defaults {
		priority := def.priority
		targets := sla.FallbackTargets(priority, domain.TicketTypeIncident)
		policy := &domain.SLAPolicy{
			Name:              fmt.Sprintf("Default %s priority", priority),
			Description:       "Seeded default policy",
			Priority:          &priority,
			ResponseMinutes:   targets.ResponseMinutes,
			ResolutionMinutes: targets.ResolutionMinutes,
			BusinessHoursOnly: def.businessHours,
			BusinessStart:     s.seed.BusinessStart,
			BusinessEnd:       s.seed.BusinessEnd,
			BusinessDays:      s.seed.BusinessDays,
			IsActive:          true,
		}
		if err := s.policies.Create(ctx, policy); err != nil {
			return apperrors.MapError(err)
		}
	}
	s.logger.Info("seeded default SLA policies", zap.Int("count", len(defaults)))
	return nil
}

// TicketSLAStatus evaluates a ticket's SLA position and runs the stored
// due-date self check. Self-check mismatches are reported, never raised.
func (s *SLAService) TicketSLAStatus(ctx context.Context, ticketID string) (*SLAStatusReport, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	evaluation := s.evaluator.Evaluate(ticket, now)
	if evaluation.ResponseBreached {
		s.metrics.RecordSLABreach("response")
	}
	if evaluation.ResolutionBreached {
		s.metrics.RecordSLABreach("resolution")
	}

	check, err := s.checker.Check(ctx, ticket)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !check.CalculationAccurate {
		s.logger.Warn("stored SLA due dates drift from recomputation",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.TicketNumber))
	}

	return &SLAStatusReport{
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Evaluation:   evaluation,
		Check:        check,
		EvaluatedAt:  now,
	}, nil
}

// CreatePolicy stores a new policy after validating its business window.
func (s *SLAService) CreatePolicy(ctx context.Context, input PolicyInput) (*domain.SLAPolicy, error) {
	policy := policyFromInput(input)
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// UpdatePolicy replaces an existing policy's fields.
func (s *SLAService) UpdatePolicy(ctx context.Context, id string, input PolicyInput) (*domain.SLAPolicy, error) {
	existing, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("SLA policy not found", map[string]any{"policy_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	policy := policyFromInput(input)
	policy.ID = existing.ID
	policy.CreatedAt = existing.CreatedAt
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// GetPolicy fetches a policy by id.
func (s *SLAService) GetPolicy(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("SLA policy not found", map[string]any{"policy_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// ListPolicies returns all policies, active or not.
func (s *SLAService) ListPolicies(ctx context.Context) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

func policyFromInput(input PolicyInput) *domain.SLAPolicy {
	return &domain.SLAPolicy{
		Name:              input.Name,
		Description:       input.Description,
		TicketType:        input.TicketType,
		Priority:          input.Priority,
		Impact:            input.Impact,
		Urgency:           input.Urgency,
		Category:          input.Category,
		ResponseMinutes:   input.ResponseMinutes,
		ResolutionMinutes: input.ResolutionMinutes,
		BusinessHoursOnly: input.BusinessHoursOnly,
		BusinessStart:     input.BusinessStart,
		BusinessEnd:       input.BusinessEnd,
		BusinessDays:      input.BusinessDays,
		IsActive:          input.IsActive,
	}
}

func validatePolicy(policy *domain.SLAPolicy) error {
	if policy.Name == "" {
		return apperrors.NewValidationError("policy name required", nil)
	}
	if policy.ResponseMinutes < 0 || policy.ResolutionMinutes < 0 {
		return apperrors.NewValidationError("target minutes must not be negative", nil)
	}
	if policy.BusinessHoursOnly {
		if _, err := sla.ParseBusinessWindow(*policy); err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
	}
	return nil
}
