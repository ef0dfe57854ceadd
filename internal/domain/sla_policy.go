package domain

import "time"

// SLAPolicy defines response/resolution targets for a class of tickets.
// Classification columns are nullable; a NULL column means the policy does
// not discriminate on that attribute, so a policy with all five NULL acts
// as a catch-all. ResponseMinutes is expected to be below ResolutionMinutes,
// though the core does not enforce it.
type SLAPolicy struct {
	ID          string
	Name        string
	Description string

	TicketType *TicketType
	Priority   *TicketPriority
	Impact     *string
	Urgency    *string
	Category   *string

	ResponseMinutes   int
	ResolutionMinutes int

	BusinessHoursOnly bool
	BusinessStart     string // "HH:MM"
	BusinessEnd       string // "HH:MM"
	BusinessDays      string // comma-separated 1-7, Monday=1

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
