package events

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventSLABreachDetected     EventType = "sla_breach_detected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber  string                `json:"ticket_number"`
	Type          domain.TicketType     `json:"type"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	SLAPolicyName *string               `json:"sla_policy_name,omitempty"`
	ResponseDue   *time.Time            `json:"response_due,omitempty"`
	ResolutionDue *time.Time            `json:"resolution_due,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority      domain.TicketPriority `json:"old_priority"`
	NewPriority      domain.TicketPriority `json:"new_priority"`
	NewResponseDue   *time.Time            `json:"new_response_due,omitempty"`
	NewResolutionDue *time.Time            `json:"new_resolution_due,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID     string `json:"comment_id"`
	AuthorEmail   string `json:"author_email"`
	IsInternal    bool   `json:"is_internal"`
	FirstResponse bool   `json:"first_response"`
}

// SLABreachDetectedPayload payload.
type SLABreachDetectedPayload struct {
	TicketNumber string     `json:"ticket_number"`
	Dimension    string     `json:"dimension"` // "response" or "resolution"
	DueAt        *time.Time `json:"due_at,omitempty"`
}
