package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

type staticPolicies struct {
	policies []domain.SLAPolicy
	err      error
}

func (s staticPolicies) ListActive(context.Context) ([]domain.SLAPolicy, error) {
	return s.policies, s.err
}

func strPtr(v string) *string { return &v }

func typePtr(v domain.TicketType) *domain.TicketType { return &v }

func prioPtr(v domain.TicketPriority) *domain.TicketPriority { return &v }

func TestFindMatchingPolicyTiers(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exact := domain.SLAPolicy{
		ID:         "exact",
		TicketType: typePtr(domain.TicketTypeIncident),
		Priority:   prioPtr(domain.TicketPriorityHigh),
		Impact:     strPtr("major"),
		CreatedAt:  base,
	}
	typePriority := domain.SLAPolicy{
		ID:         "type-priority",
		TicketType: typePtr(domain.TicketTypeIncident),
		Priority:   prioPtr(domain.TicketPriorityHigh),
		CreatedAt:  base,
	}
	priorityOnly := domain.SLAPolicy{
		ID:        "priority-only",
		Priority:  prioPtr(domain.TicketPriorityHigh),
		CreatedAt: base,
	}

	tests := []struct {
		name           string
		policies       []domain.SLAPolicy
		classification domain.Classification
		wantID         string
		wantNil        bool
	}{
		{
			name:     "exact beats broader tiers",
			policies: []domain.SLAPolicy{priorityOnly, typePriority, exact},
			classification: domain.Classification{
				Type:     domain.TicketTypeIncident,
				Priority: domain.TicketPriorityHigh,
				Impact:   strPtr("major"),
			},
			wantID: "exact",
		},
		{
			name:     "exact tier skips policies more specific than the ticket",
			policies: []domain.SLAPolicy{exact, typePriority},
			classification: domain.Classification{
				Type:     domain.TicketTypeIncident,
				Priority: domain.TicketPriorityHigh,
			},
			wantID: "type-priority",
		},
		{
			name:     "priority-only catch-all over non-matching specific policy",
			policies: []domain.SLAPolicy{exact, priorityOnly},
			classification: domain.Classification{
				Type:     domain.TicketTypeRequest,
				Priority: domain.TicketPriorityHigh,
			},
			wantID: "priority-only",
		},
		{
			name:     "no tier matches",
			policies: []domain.SLAPolicy{exact, typePriority, priorityOnly},
			classification: domain.Classification{
				Type:     domain.TicketTypeChange,
				Priority: domain.TicketPriorityLow,
			},
			wantNil: true,
		},
		{
			name:           "empty store",
			policies:       nil,
			classification: domain.Classification{Type: domain.TicketTypeIncident, Priority: domain.TicketPriorityHigh},
			wantNil:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewMatcher(staticPolicies{policies: tt.policies})
			got, err := matcher.FindMatchingPolicy(context.Background(), tt.classification)
			if err != nil {
				t.Fatalf("FindMatchingPolicy() error = %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("FindMatchingPolicy() = %q, want nil", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("FindMatchingPolicy() = nil, want %q", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("FindMatchingPolicy() = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestFindMatchingPolicyTieBreak(t *testing.T) {
	older := domain.SLAPolicy{
		ID:        "older",
		Priority:  prioPtr(domain.TicketPriorityMedium),
		CreatedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := domain.SLAPolicy{
		ID:        "newer",
		Priority:  prioPtr(domain.TicketPriorityMedium),
		CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	matcher := NewMatcher(staticPolicies{policies: []domain.SLAPolicy{older, newer}})
	got, err := matcher.FindMatchingPolicy(context.Background(), domain.Classification{
		Type:     domain.TicketTypeProblem,
		Priority: domain.TicketPriorityMedium,
	})
	if err != nil {
		t.Fatalf("FindMatchingPolicy() error = %v", err)
	}
	if got == nil || got.ID != "newer" {
		t.Errorf("FindMatchingPolicy() = %v, want newer", got)
	}
}

func TestFindMatchingPolicyPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	matcher := NewMatcher(staticPolicies{err: storeErr})
	_, err := matcher.FindMatchingPolicy(context.Background(), domain.Classification{
		Type:     domain.TicketTypeIncident,
		Priority: domain.TicketPriorityHigh,
	})
	if !errors.Is(err, storeErr) {
		t.Errorf("FindMatchingPolicy() error = %v, want %v", err, storeErr)
	}
}
