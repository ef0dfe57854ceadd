package sla

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Health buckets a ticket's SLA position for dashboards and reports.
type Health string

const (
	HealthGood     Health = "good"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
	HealthBreached Health = "breached"
	HealthMet      Health = "met"
	HealthUnknown  Health = "unknown"
)

// Evaluation is the result of classifying a ticket against its due dates.
type Evaluation struct {
	ResponseBreached   bool
	ResolutionBreached bool
	Health             Health
}

// Evaluator classifies tickets as on-track, at-risk or breached. Evaluation
// is a pure function of the ticket and the supplied clock; there is no
// background job, breach state is computed lazily at read or write time.
type Evaluator struct {
	criticalWindow time.Duration
	warningWindow  time.Duration
}

// NewEvaluator builds an evaluator with the given at-risk windows. Values
// at or below zero fall back to the defaults of 2h (critical) and 24h
// (warning).
func NewEvaluator(criticalWindow, warningWindow time.Duration) *Evaluator {
	if criticalWindow <= 0 {
		criticalWindow = 2 * time.Hour
	}
	if warningWindow <= 0 {
		warningWindow = 24 * time.Hour
	}
	return &Evaluator{criticalWindow: criticalWindow, warningWindow: warningWindow}
}

// Evaluate classifies the ticket at the given instant.
//
// Terminal tickets report met/breached from the stored SLABreached flag and
// get no live countdown. Open tickets are bucketed by remaining resolution
// time. Response breach is independent: due date passed with no first
// response recorded.
func (e *Evaluator) Evaluate(ticket *domain.Ticket, now time.Time) Evaluation {
	eval := Evaluation{
		ResponseBreached: ticket.FirstResponseAt == nil &&
			ticket.SLAResponseDue != nil &&
			now.After(*ticket.SLAResponseDue),
	}

	if ticket.Status.IsTerminal() {
		eval.ResolutionBreached = ticket.SLABreached
		if ticket.SLABreached {
			eval.Health = HealthBreached
		} else {
			eval.Health = HealthMet
		}
		return eval
	}

	if ticket.SLAResolutionDue == nil {
		eval.Health = HealthUnknown
		return eval
	}

	remaining := ticket.SLAResolutionDue.Sub(now)
	switch {
	case remaining < 0:
		eval.ResolutionBreached = true
		eval.Health = HealthBreached
	case remaining < e.criticalWindow:
		eval.Health = HealthCritical
	case remaining < e.warningWindow:
		eval.Health = HealthWarning
	default:
		eval.Health = HealthGood
	}
	return eval
}
