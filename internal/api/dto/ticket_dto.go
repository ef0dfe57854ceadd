package dto

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type           domain.TicketType     `json:"type"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	Impact         *string               `json:"impact"`
	Urgency        *string               `json:"urgency"`
	Category       *string               `json:"category"`
	RequesterEmail string                `json:"requester_email"`
	AssignedTo     *string               `json:"assigned_to"`
}

// UpdateTicketRequest payload. Absent fields are left untouched; unknown
// fields are rejected during decoding.
type UpdateTicketRequest struct {
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Impact      *string                `json:"impact"`
	Urgency     *string                `json:"urgency"`
	Category    *string                `json:"category"`
	AssignedTo  *string                `json:"assigned_to"`
	Comment     string                 `json:"comment"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                   string                `json:"id"`
	TicketNumber         string                `json:"ticket_number"`
	Type                 domain.TicketType     `json:"type"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	Impact               *string               `json:"impact,omitempty"`
	Urgency              *string               `json:"urgency,omitempty"`
	Category             *string               `json:"category,omitempty"`
	RequesterEmail       string                `json:"requester_email"`
	AssignedTo           *string               `json:"assigned_to,omitempty"`
	SLAPolicyID          *string               `json:"sla_policy_id,omitempty"`
	SLAPolicyName        *string               `json:"sla_policy,omitempty"`
	SLAResponseMinutes   *int                  `json:"sla_response_time,omitempty"`
	SLAResolutionMinutes *int                  `json:"sla_resolution_time,omitempty"`
	SLAResponseDue       *time.Time            `json:"sla_response_due,omitempty"`
	SLAResolutionDue     *time.Time            `json:"sla_resolution_due,omitempty"`
	ResponseDueAt        *time.Time            `json:"response_due_at,omitempty"`
	ResolveDueAt         *time.Time            `json:"resolve_due_at,omitempty"`
	FirstResponseAt      *time.Time            `json:"first_response_at,omitempty"`
	SLABreached          bool                  `json:"sla_breached"`
	SLAResponseBreached  bool                  `json:"sla_response_breached"`
	ResolvedAt           *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt             *time.Time            `json:"closed_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// FromTicket maps a domain ticket onto the response shape. The legacy
// response_due_at/resolve_due_at aliases mirror the sla_* fields.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                   t.ID,
		TicketNumber:         t.TicketNumber,
		Type:                 t.Type,
		Title:                t.Title,
		Description:          t.Description,
		Status:               t.Status,
		Priority:             t.Priority,
		Impact:               t.Impact,
		Urgency:              t.Urgency,
		Category:             t.Category,
		RequesterEmail:       t.RequesterEmail,
		AssignedTo:           t.AssignedTo,
		SLAPolicyID:          t.SLAPolicyID,
		SLAPolicyName:        t.SLAPolicyName,
		SLAResponseMinutes:   t.SLAResponseMinutes,
		SLAResolutionMinutes: t.SLAResolutionMinutes,
		SLAResponseDue:       t.SLAResponseDue,
		SLAResolutionDue:     t.SLAResolutionDue,
		ResponseDueAt:        t.SLAResponseDue,
		ResolveDueAt:         t.SLAResolutionDue,
		FirstResponseAt:      t.FirstResponseAt,
		SLABreached:          t.SLABreached,
		SLAResponseBreached:  t.SLAResponseBreached,
		ResolvedAt:           t.ResolvedAt,
		ClosedAt:             t.ClosedAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Comment    string `json:"comment"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	AuthorEmail string    `json:"author_email"`
	Comment     string    `json:"comment"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromComment maps a domain comment onto the response shape.
func FromComment(c *domain.TicketComment) CommentResponse {
	return CommentResponse{
		ID:          c.ID,
		TicketID:    c.TicketID,
		AuthorEmail: c.AuthorEmail,
		Comment:     c.Comment,
		IsInternal:  c.IsInternal,
		CreatedAt:   c.CreatedAt,
	}
}
