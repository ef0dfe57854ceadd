package sla

import (
	"context"
	"sort"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// PolicySource supplies the active policies the matcher selects from.
type PolicySource interface {
	ListActive(ctx context.Context) ([]domain.SLAPolicy, error)
}

// Matcher selects the single best SLA policy for a ticket classification
// using an ordered list of specificity tiers, most specific first. A tier
// never matches a policy that is more specific than the ticket's known
// attributes: where the ticket has no impact/urgency/category, the policy
// column must be NULL.
type Matcher struct {
	policies PolicySource
}

// NewMatcher constructs a matcher over the given policy source.
func NewMatcher(policies PolicySource) *Matcher {
	return &Matcher{policies: policies}
}

type tier func(domain.Classification, domain.SLAPolicy) bool

var matchTiers = []tier{
	matchExact,
	matchTypePriority,
	matchPriorityOnly,
}

// FindMatchingPolicy returns the best-matching active policy, or nil when no
// tier matches. Store errors propagate; callers treat them as a miss and
// apply the static fallback table.
func (m *Matcher) FindMatchingPolicy(ctx context.Context, c domain.Classification) (*domain.SLAPolicy, error) {
	policies, err := m.policies.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, match := range matchTiers {
		var candidates []domain.SLAPolicy
		for _, policy := range policies {
			if match(c, policy) {
				candidates = append(candidates, policy)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		// Most recently created wins within a tier.
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		})
		best := candidates[0]
		return &best, nil
	}
	return nil, nil
}

func matchExact(c domain.Classification, p domain.SLAPolicy) bool {
	if p.TicketType == nil || *p.TicketType != c.Type {
		return false
	}
	if p.Priority == nil || *p.Priority != c.Priority {
		return false
	}
	return optionalEqual(c.Impact, p.Impact) &&
		optionalEqual(c.Urgency, p.Urgency) &&
		optionalEqual(c.Category, p.Category)
}

func matchTypePriority(c domain.Classification, p domain.SLAPolicy) bool {
	if p.TicketType == nil || *p.TicketType != c.Type {
		return false
	}
	if p.Priority == nil || *p.Priority != c.Priority {
		return false
	}
	return p.Impact == nil && p.Urgency == nil && p.Category == nil
}

func matchPriorityOnly(c domain.Classification, p domain.SLAPolicy) bool {
	if p.Priority == nil || *p.Priority != c.Priority {
		return false
	}
	return p.TicketType == nil && p.Impact == nil && p.Urgency == nil && p.Category == nil
}

// optionalEqual compares an optional ticket attribute against a policy
// column: an absent ticket attribute only matches a NULL column.
func optionalEqual(ticketVal, policyVal *string) bool {
	if ticketVal == nil {
		return policyVal == nil
	}
	return policyVal != nil && *policyVal == *ticketVal
}
