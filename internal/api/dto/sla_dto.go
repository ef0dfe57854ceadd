package dto

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/service"
	"github.com/spec-kit/itsm-service/internal/sla"
)

// PolicyRequest payload for policy create/update.
type PolicyRequest struct {
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	TicketType        *domain.TicketType     `json:"ticket_type"`
	Priority          *domain.TicketPriority `json:"priority"`
	Impact            *string                `json:"impact"`
	Urgency           *string                `json:"urgency"`
	Category          *string                `json:"category"`
	ResponseMinutes   int                    `json:"response_time"`
	ResolutionMinutes int                    `json:"resolution_time"`
	BusinessHoursOnly bool                   `json:"business_hours_only"`
	BusinessStart     string                 `json:"business_start"`
	BusinessEnd       string                 `json:"business_end"`
	BusinessDays      string                 `json:"business_days"`
	IsActive          bool                   `json:"is_active"`
}

// PolicyResponse represents a stored policy.
type PolicyResponse struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	TicketType        *domain.TicketType     `json:"ticket_type,omitempty"`
	Priority          *domain.TicketPriority `json:"priority,omitempty"`
	Impact            *string                `json:"impact,omitempty"`
	Urgency           *string                `json:"urgency,omitempty"`
	Category          *string                `json:"category,omitempty"`
	ResponseMinutes   int                    `json:"response_time"`
	ResolutionMinutes int                    `json:"resolution_time"`
	BusinessHoursOnly bool                   `json:"business_hours_only"`
	BusinessStart     string                 `json:"business_start"`
	BusinessEnd       string                 `json:"business_end"`
	BusinessDays      string                 `json:"business_days"`
	IsActive          bool                   `json:"is_active"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// FromPolicy maps a domain policy onto the response shape.
func FromPolicy(p *domain.SLAPolicy) PolicyResponse {
	return PolicyResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		TicketType:        p.TicketType,
		Priority:          p.Priority,
		Impact:            p.Impact,
		Urgency:           p.Urgency,
		Category:          p.Category,
		ResponseMinutes:   p.ResponseMinutes,
		ResolutionMinutes: p.ResolutionMinutes,
		BusinessHoursOnly: p.BusinessHoursOnly,
		BusinessStart:     p.BusinessStart,
		BusinessEnd:       p.BusinessEnd,
		BusinessDays:      p.BusinessDays,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ToInput converts the request into the service payload.
func (r PolicyRequest) ToInput() service.PolicyInput {
	return service.PolicyInput{
		Name:              r.Name,
		Description:       r.Description,
		TicketType:        r.TicketType,
		Priority:          r.Priority,
		Impact:            r.Impact,
		Urgency:           r.Urgency,
		Category:          r.Category,
		ResponseMinutes:   r.ResponseMinutes,
		ResolutionMinutes: r.ResolutionMinutes,
		BusinessHoursOnly: r.BusinessHoursOnly,
		BusinessStart:     r.BusinessStart,
		BusinessEnd:       r.BusinessEnd,
		BusinessDays:      r.BusinessDays,
		IsActive:          r.IsActive,
	}
}

// SLAStatusResponse reports live evaluation plus the self-check outcome.
type SLAStatusResponse struct {
	TicketID              string     `json:"ticket_id"`
	TicketNumber          string     `json:"ticket_number"`
	Health                sla.Health `json:"health"`
	ResponseBreached      bool       `json:"response_breached"`
	ResolutionBreached    bool       `json:"resolution_breached"`
	CalculationAccurate   bool       `json:"calculation_accurate"`
	UsedFallback          bool       `json:"used_fallback"`
	MatchedPolicyID       *string    `json:"matched_policy_id,omitempty"`
	ExpectedResponseDue   *time.Time `json:"expected_response_due,omitempty"`
	ExpectedResolutionDue *time.Time `json:"expected_resolution_due,omitempty"`
	StoredResponseDue     *time.Time `json:"stored_response_due,omitempty"`
	StoredResolutionDue   *time.Time `json:"stored_resolution_due,omitempty"`
	EvaluatedAt           time.Time  `json:"evaluated_at"`
}

// FromSLAStatus maps a service report onto the response shape.
func FromSLAStatus(r *service.SLAStatusReport) SLAStatusResponse {
	return SLAStatusResponse{
		TicketID:              r.TicketID,
		TicketNumber:          r.TicketNumber,
		Health:                r.Evaluation.Health,
		ResponseBreached:      r.Evaluation.ResponseBreached,
		ResolutionBreached:    r.Evaluation.ResolutionBreached,
		CalculationAccurate:   r.Check.CalculationAccurate,
		UsedFallback:          r.Check.UsedFallback,
		MatchedPolicyID:       r.Check.MatchedPolicyID,
		ExpectedResponseDue:   r.Check.ExpectedResponseDue,
		ExpectedResolutionDue: r.Check.ExpectedResolutionDue,
		StoredResponseDue:     r.Check.StoredResponseDue,
		StoredResolutionDue:   r.Check.StoredResolutionDue,
		EvaluatedAt:           r.EvaluatedAt,
	}
}
