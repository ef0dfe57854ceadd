package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/sla"
)

type fakePolicyRepo struct {
	policies []domain.SLAPolicy
	nextID   int
}

func (r *fakePolicyRepo) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	r.nextID++
	policy.ID = fmt.Sprintf("policy-%d", r.nextID)
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = policy.CreatedAt
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakePolicyRepo) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	for i := range r.policies {
		if r.policies[i].ID == policy.ID {
			r.policies[i] = *policy
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePolicyRepo) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	for i := range r.policies {
		if r.policies[i].ID == id {
			clone := r.policies[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	return append([]domain.SLAPolicy(nil), r.policies...), nil
}

func (r *fakePolicyRepo) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for _, p := range r.policies {
		if p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakePolicyRepo) Count(ctx context.Context) (int, error) {
	return len(r.policies), nil
}

func newSLAFixture(policies *fakePolicyRepo, tickets *fakeTicketRepo, now func() time.Time) *SLAService {
	matcher := sla.NewMatcher(policies)
	return NewSLAService(SLADependencies{
		PolicyRepo: policies,
		TicketRepo: tickets,
		Evaluator:  sla.NewEvaluator(0, 0),
		Checker:    sla.NewChecker(matcher),
		Metrics:    observability.NewMetrics(),
		SeedConfig: config.SLAConfig{
			BusinessStart: "09:00",
			BusinessEnd:   "17:00",
			BusinessDays:  "1,2,3,4,5",
		},
		Clock: now,
	})
}

func TestSeedDefaultPoliciesOnlyWhenEmpty(t *testing.T) {
	policies := &fakePolicyRepo{}
	svc := newSLAFixture(policies, newFakeTicketRepo(time.Now), time.Now)

	if err := svc.SeedDefaultPolicies(context.Background()); err != nil {
		t.Fatalf("SeedDefaultPolicies: %v", err)
	}
	if len(policies.policies) != 4 {
		t.Fatalf("seeded %d policies, want 4", len(policies.policies))
	}

	byPriority := map[domain.TicketPriority]domain.SLAPolicy{}
	for _, p := range policies.policies {
		if p.Priority == nil {
			t.Fatalf("seeded policy %q missing priority", p.Name)
		}
		if p.TicketType != nil || p.Impact != nil || p.Urgency != nil || p.Category != nil {
			t.Fatalf("seeded policy %q must be a priority-only catch-all", p.Name)
		}
		byPriority[*p.Priority] = p
	}

	critical := byPriority[domain.TicketPriorityCritical]
	if critical.ResponseMinutes != 15 || critical.ResolutionMinutes != 240 {
		t.Fatalf("critical targets = %d/%d, want 15/240", critical.ResponseMinutes, critical.ResolutionMinutes)
	}
	if critical.BusinessHoursOnly {
		t.Fatal("critical default must run around the clock")
	}
	if !byPriority[domain.TicketPriorityHigh].BusinessHoursOnly {
		t.Fatal("high default must be business-hours only")
	}

	// A second boot must not duplicate the defaults.
	if err := svc.SeedDefaultPolicies(context.Background()); err != nil {
		t.Fatalf("SeedDefaultPolicies second run: %v", err)
	}
	if len(policies.policies) != 4 {
		t.Fatalf("second seed grew the table to %d policies", len(policies.policies))
	}
}

func TestTicketSLAStatusReportsDrift(t *testing.T) {
	created := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return created.Add(30 * time.Minute) }

	tickets := newFakeTicketRepo(now)
	responseDue := created.Add(15 * time.Minute)
	resolutionDue := created.Add(240 * time.Minute)
	fifteen, twoForty := 15, 240
	ticket := &domain.Ticket{
		ID:                   "ticket-1",
		TicketNumber:         "INC-2024-001",
		Type:                 domain.TicketTypeIncident,
		Status:               domain.TicketStatusInProgress,
		Priority:             domain.TicketPriorityCritical,
		RequesterEmail:       "user@example.com",
		SLAResponseMinutes:   &fifteen,
		SLAResolutionMinutes: &twoForty,
		SLAResponseDue:       &responseDue,
		SLAResolutionDue:     &resolutionDue,
		CreatedAt:            created,
	}
	tickets.tickets[ticket.ID] = ticket

	svc := newSLAFixture(&fakePolicyRepo{}, tickets, now)

	report, err := svc.TicketSLAStatus(context.Background(), "ticket-1")
	if err != nil {
		t.Fatalf("TicketSLAStatus: %v", err)
	}
	if !report.Check.CalculationAccurate {
		t.Fatal("stored dues match the fallback computation, check must pass")
	}
	if !report.Check.UsedFallback {
		t.Fatal("no stored policies, check must report fallback usage")
	}
	// 30 minutes in with no first response: response target blown, 3.5h
	// left on resolution lands inside the 24h warning window.
	if !report.Evaluation.ResponseBreached {
		t.Fatal("response due passed without first response")
	}
	if report.Evaluation.Health != sla.HealthWarning {
		t.Fatalf("health = %q, want warning", report.Evaluation.Health)
	}

	// Drift the stored resolution due beyond tolerance.
	drifted := resolutionDue.Add(10 * time.Minute)
	ticket.SLAResolutionDue = &drifted
	report, err = svc.TicketSLAStatus(context.Background(), "ticket-1")
	if err != nil {
		t.Fatalf("TicketSLAStatus after drift: %v", err)
	}
	if report.Check.CalculationAccurate {
		t.Fatal("drifted stored due must fail the self check")
	}
	if report.Check.ExpectedResolutionDue == nil || !report.Check.ExpectedResolutionDue.Equal(resolutionDue) {
		t.Fatalf("expected resolution due = %v, want %v", report.Check.ExpectedResolutionDue, resolutionDue)
	}
}

func TestTicketSLAStatusNotFound(t *testing.T) {
	svc := newSLAFixture(&fakePolicyRepo{}, newFakeTicketRepo(time.Now), time.Now)
	if _, err := svc.TicketSLAStatus(context.Background(), "missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestCreatePolicyValidatesBusinessWindow(t *testing.T) {
	policies := &fakePolicyRepo{}
	svc := newSLAFixture(policies, newFakeTicketRepo(time.Now), time.Now)

	cases := []struct {
		name    string
		input   PolicyInput
		wantErr bool
	}{
		{
			name: "valid business hours policy",
			input: PolicyInput{
				Name: "weekday gold", ResponseMinutes: 30, ResolutionMinutes: 480,
				BusinessHoursOnly: true, BusinessStart: "09:00", BusinessEnd: "17:00", BusinessDays: "1,2,3,4,5",
				IsActive: true,
			},
		},
		{
			name:    "missing name",
			input:   PolicyInput{ResponseMinutes: 30, ResolutionMinutes: 480},
			wantErr: true,
		},
		{
			name:    "negative minutes",
			input:   PolicyInput{Name: "bad", ResponseMinutes: -1, ResolutionMinutes: 480},
			wantErr: true,
		},
		{
			name: "window end before start",
			input: PolicyInput{
				Name: "bad window", ResponseMinutes: 30, ResolutionMinutes: 480,
				BusinessHoursOnly: true, BusinessStart: "17:00", BusinessEnd: "09:00", BusinessDays: "1,2,3,4,5",
			},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePolicy(context.Background(), tc.input)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("CreatePolicy: %v", err)
			}
		})
	}
}
