package sla

import "github.com/spec-kit/itsm-service/internal/domain"

// Targets holds response/resolution minutes from the static fallback table.
type Targets struct {
	ResponseMinutes   int
	ResolutionMinutes int
}

type fallbackRow struct {
	response           int
	incidentResolution int
	otherResolution    int
}

// Static targets applied when no stored policy matches, e.g. before the
// default policies have been seeded. Incidents resolve on a tighter clock
// than the other ticket types.
var fallbackTable = map[domain.TicketPriority]fallbackRow{
	domain.TicketPriorityCritical: {response: 15, incidentResolution: 240, otherResolution: 480},
	domain.TicketPriorityHigh:     {response: 60, incidentResolution: 480, otherResolution: 1440},
	domain.TicketPriorityMedium:   {response: 240, incidentResolution: 1440, otherResolution: 2880},
	domain.TicketPriorityLow:      {response: 480, incidentResolution: 2880, otherResolution: 5760},
}

// FallbackTargets returns the static targets for a priority and ticket type.
// Unknown priorities fall back to the medium row.
func FallbackTargets(priority domain.TicketPriority, ticketType domain.TicketType) Targets {
	row, ok := fallbackTable[priority]
	if !ok {
		row = fallbackTable[domain.TicketPriorityMedium]
	}
	resolution := row.otherResolution
	if ticketType == domain.TicketTypeIncident {
		resolution = row.incidentResolution
	}
	return Targets{ResponseMinutes: row.response, ResolutionMinutes: resolution}
}

// FallbackPolicy expresses the fallback targets as an unstored 24/7 policy so
// callers can run the regular due-date calculation against it.
func FallbackPolicy(priority domain.TicketPriority, ticketType domain.TicketType) domain.SLAPolicy {
	targets := FallbackTargets(priority, ticketType)
	return domain.SLAPolicy{
		Name:              "fallback",
		ResponseMinutes:   targets.ResponseMinutes,
		ResolutionMinutes: targets.ResolutionMinutes,
		BusinessHoursOnly: false,
		IsActive:          true,
	}
}
