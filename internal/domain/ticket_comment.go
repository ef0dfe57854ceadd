package domain

import "time"

// TicketComment is an append-only note on a ticket. Internal comments are
// hidden from requesters and never count as a first response.
type TicketComment struct {
	ID          string
	TicketID    string
	AuthorEmail string
	Comment     string
	IsInternal  bool
	CreatedAt   time.Time
}
