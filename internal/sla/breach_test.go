package sla

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

func timePtr(v time.Time) *time.Time { return &v }

func TestEvaluateHealthBuckets(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(0, 0)

	tests := []struct {
		name                   string
		ticket                 domain.Ticket
		wantHealth             Health
		wantResponseBreached   bool
		wantResolutionBreached bool
	}{
		{
			name: "plenty of time",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusInProgress,
				SLAResponseDue:   timePtr(now.Add(time.Hour)),
				SLAResolutionDue: timePtr(now.Add(48 * time.Hour)),
			},
			wantHealth: HealthGood,
		},
		{
			name: "inside warning window",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusInProgress,
				SLAResolutionDue: timePtr(now.Add(10 * time.Hour)),
			},
			wantHealth: HealthWarning,
		},
		{
			name: "inside critical window",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusPending,
				SLAResolutionDue: timePtr(now.Add(30 * time.Minute)),
			},
			wantHealth: HealthCritical,
		},
		{
			name: "resolution due passed",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusInProgress,
				SLAResolutionDue: timePtr(now.Add(-time.Minute)),
			},
			wantHealth:             HealthBreached,
			wantResolutionBreached: true,
		},
		{
			name: "response due passed with no first response",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusNew,
				SLAResponseDue:   timePtr(now.Add(-time.Hour)),
				SLAResolutionDue: timePtr(now.Add(72 * time.Hour)),
			},
			wantHealth:           HealthGood,
			wantResponseBreached: true,
		},
		{
			name: "first response recorded suppresses response breach",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusInProgress,
				SLAResponseDue:   timePtr(now.Add(-time.Hour)),
				FirstResponseAt:  timePtr(now.Add(-2 * time.Hour)),
				SLAResolutionDue: timePtr(now.Add(72 * time.Hour)),
			},
			wantHealth: HealthGood,
		},
		{
			name: "resolved within target",
			ticket: domain.Ticket{
				Status:           domain.TicketStatusResolved,
				SLAResolutionDue: timePtr(now.Add(-time.Hour)),
				SLABreached:      false,
			},
			wantHealth: HealthMet,
		},
		{
			name: "resolved after due date",
			ticket: domain.Ticket{
				Status:      domain.TicketStatusClosed,
				SLABreached: true,
			},
			wantHealth:             HealthBreached,
			wantResolutionBreached: true,
		},
		{
			name: "cancelled without breach",
			ticket: domain.Ticket{
				Status: domain.TicketStatusCancelled,
			},
			wantHealth: HealthMet,
		},
		{
			name:       "no due dates populated",
			ticket:     domain.Ticket{Status: domain.TicketStatusNew},
			wantHealth: HealthUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluator.Evaluate(&tt.ticket, now)
			if got.Health != tt.wantHealth {
				t.Errorf("Health = %q, want %q", got.Health, tt.wantHealth)
			}
			if got.ResponseBreached != tt.wantResponseBreached {
				t.Errorf("ResponseBreached = %v, want %v", got.ResponseBreached, tt.wantResponseBreached)
			}
			if got.ResolutionBreached != tt.wantResolutionBreached {
				t.Errorf("ResolutionBreached = %v, want %v", got.ResolutionBreached, tt.wantResolutionBreached)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(0, 0)
	ticket := domain.Ticket{
		Status:           domain.TicketStatusInProgress,
		SLAResponseDue:   timePtr(now.Add(-time.Hour)),
		SLAResolutionDue: timePtr(now.Add(90 * time.Minute)),
	}

	first := evaluator.Evaluate(&ticket, now)
	second := evaluator.Evaluate(&ticket, now)
	if first != second {
		t.Errorf("repeated evaluation differs: %+v vs %+v", first, second)
	}
}

func TestFallbackTargets(t *testing.T) {
	tests := []struct {
		name           string
		priority       domain.TicketPriority
		ticketType     domain.TicketType
		wantResponse   int
		wantResolution int
	}{
		{"critical incident", domain.TicketPriorityCritical, domain.TicketTypeIncident, 15, 240},
		{"critical request", domain.TicketPriorityCritical, domain.TicketTypeRequest, 15, 480},
		{"high incident", domain.TicketPriorityHigh, domain.TicketTypeIncident, 60, 480},
		{"medium change", domain.TicketPriorityMedium, domain.TicketTypeChange, 240, 2880},
		{"low problem", domain.TicketPriorityLow, domain.TicketTypeProblem, 480, 5760},
		{"unknown priority defaults to medium", domain.TicketPriority("urgent"), domain.TicketTypeIncident, 240, 1440},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackTargets(tt.priority, tt.ticketType)
			if got.ResponseMinutes != tt.wantResponse {
				t.Errorf("ResponseMinutes = %d, want %d", got.ResponseMinutes, tt.wantResponse)
			}
			if got.ResolutionMinutes != tt.wantResolution {
				t.Errorf("ResolutionMinutes = %d, want %d", got.ResolutionMinutes, tt.wantResolution)
			}
		})
	}
}

func TestCheckerFlagsDriftedDueDates(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	policy := weekdayPolicy(60, 480)
	policy.ID = "p1"
	policy.Priority = prioPtr(domain.TicketPriorityHigh)
	policy.TicketType = nil

	checker := NewChecker(NewMatcher(staticPolicies{policies: []domain.SLAPolicy{policy}}))

	accurate := domain.Ticket{
		Type:             domain.TicketTypeIncident,
		Priority:         domain.TicketPriorityHigh,
		CreatedAt:        createdAt,
		SLAResponseDue:   timePtr(time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)), // 30s off, within tolerance
		SLAResolutionDue: timePtr(time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)),
	}
	report, err := checker.Check(context.Background(), &accurate)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !report.CalculationAccurate {
		t.Errorf("CalculationAccurate = false, want true (report %+v)", report)
	}
	if report.UsedFallback {
		t.Error("UsedFallback = true, want false")
	}

	drifted := accurate
	drifted.SLAResolutionDue = timePtr(time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC))
	report, err = checker.Check(context.Background(), &drifted)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.CalculationAccurate {
		t.Error("CalculationAccurate = true, want false for drifted due date")
	}
}

func TestCheckerUsesFallbackWhenNoPolicyMatches(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	checker := NewChecker(NewMatcher(staticPolicies{}))

	ticket := domain.Ticket{
		Type:             domain.TicketTypeIncident,
		Priority:         domain.TicketPriorityCritical,
		CreatedAt:        createdAt,
		SLAResponseDue:   timePtr(createdAt.Add(15 * time.Minute)),
		SLAResolutionDue: timePtr(createdAt.Add(240 * time.Minute)),
	}
	report, err := checker.Check(context.Background(), &ticket)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !report.UsedFallback {
		t.Error("UsedFallback = false, want true")
	}
	if !report.CalculationAccurate {
		t.Errorf("CalculationAccurate = false, want true (report %+v)", report)
	}
}
