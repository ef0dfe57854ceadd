package sla

import (
	"context"
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Stored due dates may drift from what the matcher and calculator would
// produce today (edited policies, imported data). The checker recomputes the
// expected deadlines from the ticket's original classification and creation
// time and compares within a tolerance. Mismatches are diagnostic data for
// operators, never errors.
const checkTolerance = time.Minute

// CheckReport describes the outcome of a stored-due-date consistency check.
type CheckReport struct {
	CalculationAccurate   bool
	UsedFallback          bool
	MatchedPolicyID       *string
	ExpectedResponseDue   *time.Time
	ExpectedResolutionDue *time.Time
	StoredResponseDue     *time.Time
	StoredResolutionDue   *time.Time
}

// Checker validates stored SLA due dates against a fresh computation.
type Checker struct {
	matcher *Matcher
}

// NewChecker constructs a checker over the given matcher.
func NewChecker(matcher *Matcher) *Checker {
	return &Checker{matcher: matcher}
}

// Check recomputes the ticket's expected due dates and compares them to the
// stored values. Only matcher/calculator failures return an error.
func (c *Checker) Check(ctx context.Context, ticket *domain.Ticket) (CheckReport, error) {
	report := CheckReport{
		StoredResponseDue:   ticket.SLAResponseDue,
		StoredResolutionDue: ticket.SLAResolutionDue,
	}

	policy, err := c.matcher.FindMatchingPolicy(ctx, ticket.Classification())
	if err != nil {
		return report, err
	}
	if policy == nil {
		fallback := FallbackPolicy(ticket.Priority, ticket.Type)
		policy = &fallback
		report.UsedFallback = true
	} else {
		report.MatchedPolicyID = &policy.ID
	}

	due, err := CalculateDueDates(ticket.CreatedAt, *policy)
	if err != nil {
		return report, err
	}
	report.ExpectedResponseDue = &due.ResponseDue
	report.ExpectedResolutionDue = &due.ResolutionDue

	report.CalculationAccurate = withinTolerance(ticket.SLAResponseDue, due.ResponseDue) &&
		withinTolerance(ticket.SLAResolutionDue, due.ResolutionDue)
	return report, nil
}

func withinTolerance(stored *time.Time, expected time.Time) bool {
	if stored == nil {
		return false
	}
	diff := stored.Sub(expected)
	if diff < 0 {
		diff = -diff
	}
	return diff <= checkTolerance
}
