package domain

import "time"

// TicketType enumerates the ITSM record categories.
type TicketType string

const (
	TicketTypeRequest  TicketType = "request"
	TicketTypeIncident TicketType = "incident"
	TicketTypeProblem  TicketType = "problem"
	TicketTypeChange   TicketType = "change"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// IsTerminal reports whether the status ends the SLA clock. The only
// transition allowed out of a terminal status is resolved -> closed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed || s == TicketStatusCancelled
}

// TicketPriority enumerates SLA urgency tiers.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Ticket is the aggregate for ITSM records: incidents, requests, problems
// and changes share one lifecycle and one SLA contract.
//
// SLABreached reflects resolution breach only; response breach is carried
// separately in SLAResponseBreached.
type Ticket struct {
	ID           string
	TicketNumber string
	Type         TicketType
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	Impact       *string
	Urgency      *string
	Category     *string

	RequesterEmail string
	AssignedTo     *string

	SLAPolicyID          *string
	SLAPolicyName        *string
	SLAResponseMinutes   *int
	SLAResolutionMinutes *int
	SLAResponseDue       *time.Time
	SLAResolutionDue     *time.Time
	FirstResponseAt      *time.Time
	SLABreached          bool
	SLAResponseBreached  bool

	ResolvedAt *time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Classification carries the attributes SLA policy matching keys on.
type Classification struct {
	Type     TicketType
	Priority TicketPriority
	Impact   *string
	Urgency  *string
	Category *string
}

// Classification extracts the matching attributes from the ticket.
func (t *Ticket) Classification() Classification {
	return Classification{
		Type:     t.Type,
		Priority: t.Priority,
		Impact:   t.Impact,
		Urgency:  t.Urgency,
		Category: t.Category,
	}
}
