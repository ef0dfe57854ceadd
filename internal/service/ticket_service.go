package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/sla"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle: creation with numbering,
// auto-assignment and SLA stamping, guarded status transitions, and SLA
// recomputation on priority changes.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	technicians repository.TechnicianRepository
	matcher     *sla.Matcher
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	TechnicianRepo repository.TechnicianRepository
	Matcher        *sla.Matcher
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type           domain.TicketType
	Title          string
	Description    string
	Priority       domain.TicketPriority
	Impact         *string
	Urgency        *string
	Category       *string
	RequesterEmail string
	AssignedTo     *string
}

// TicketUpdateRequest is the validated partial-update shape. Nil fields are
// left untouched; unknown payload fields are rejected at the HTTP boundary.
type TicketUpdateRequest struct {
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Title       *string
	Description *string
	Impact      *string
	Urgency     *string
	Category    *string
	AssignedTo  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		technicians: deps.TechnicianRepo,
		matcher:     deps.Matcher,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         now,
	}
}

var validTypes = map[domain.TicketType]bool{
	domain.TicketTypeRequest:  true,
	domain.TicketTypeIncident: true,
	domain.TicketTypeProblem:  true,
	domain.TicketTypeChange:   true,
}

// Legal status transitions. Forward movement may skip intermediate states
// (a new ticket can go straight to in_progress or resolved once the guards
// pass); terminal states accept nothing except resolved -> closed.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusOnHold:     {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusCancelled:  {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

var commentRequiredStatuses = map[domain.TicketStatus]bool{
	domain.TicketStatusResolved:  true,
	domain.TicketStatusClosed:    true,
	domain.TicketStatusCancelled: true,
}

var assignmentRequiredStatuses = map[domain.TicketStatus]bool{
	domain.TicketStatusInProgress: true,
	domain.TicketStatusPending:    true,
	domain.TicketStatusResolved:   true,
}

// CreateTicket creates a ticket with a generated number, a matched SLA
// policy (or fallback targets), computed due dates, and an auto-assigned
// technician when one is available.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if !validTypes[input.Type] {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid ticket type %q", input.Type), nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if strings.TrimSpace(input.RequesterEmail) == "" {
		return nil, apperrors.NewValidationError("requester_email required", nil)
	}

	ticket := &domain.Ticket{
		Type:           input.Type,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusNew,
		Priority:       input.Priority,
		Impact:         input.Impact,
		Urgency:        input.Urgency,
		Category:       input.Category,
		RequesterEmail: input.RequesterEmail,
		AssignedTo:     input.AssignedTo,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	createdAt := s.now()
	if err := s.applySLAPolicy(ctx, ticket, createdAt); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssignedTo == nil {
		assignee, err := s.leastLoadedTechnician(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.AssignedTo = assignee
	}

	if err := s.createWithNumber(ctx, ticket, createdAt); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    ticket.RequesterEmail,
		Payload: events.TicketCreatedPayload{
			TicketNumber:  ticket.TicketNumber,
			Type:          ticket.Type,
			Priority:      ticket.Priority,
			AssignedTo:    ticket.AssignedTo,
			SLAPolicyName: ticket.SLAPolicyName,
			ResponseDue:   ticket.SLAResponseDue,
			ResolutionDue: ticket.SLAResolutionDue,
		},
	})
	return ticket, nil
}

// UpdateTicket validates and applies a partial update. Guards run in a fixed
// order and the first violation wins: existence, comment requirement,
// assignment requirement, transition legality.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, updates TicketUpdateRequest, actorEmail, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if updates.Status != nil {
		newStatus := *updates.Status
		if commentRequiredStatuses[newStatus] && strings.TrimSpace(comment) == "" {
			return nil, apperrors.NewValidationError("Comment required when resolving, closing, or cancelling tickets", nil)
		}
		if assignmentRequiredStatuses[newStatus] && updates.AssignedTo == nil && ticket.AssignedTo == nil {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("Ticket must be assigned before moving to %s status", newStatus), nil)
		}
		if newStatus == domain.TicketStatusAssigned && updates.AssignedTo == nil && ticket.AssignedTo == nil {
			actor := actorEmail
			updates.AssignedTo = &actor
		}
		if newStatus != ticket.Status && !isValidTransition(ticket.Status, newStatus) {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("Cannot move ticket from %s to %s", ticket.Status, newStatus), nil)
		}
	}

	now := s.now()
	oldStatus := ticket.Status
	oldPriority := ticket.Priority
	wasBreached := ticket.SLABreached
	wasResponseBreached := ticket.SLAResponseBreached

	applyUpdates(ticket, updates)

	if updates.Status != nil {
		switch *updates.Status {
		case domain.TicketStatusResolved:
			if ticket.ResolvedAt == nil {
				resolvedAt := now
				ticket.ResolvedAt = &resolvedAt
			}
			ticket.SLABreached = ticket.SLAResolutionDue != nil && now.After(*ticket.SLAResolutionDue)
		case domain.TicketStatusClosed:
			if ticket.ClosedAt == nil {
				closedAt := now
				ticket.ClosedAt = &closedAt
			}
		}
	}

	if updates.Priority != nil && *updates.Priority != oldPriority {
		// Deadlines re-anchor at the original creation time, not at the
		// moment of the priority change.
		if err := s.applySLAPolicy(ctx, ticket, ticket.CreatedAt); err != nil {
			return nil, apperrors.MapError(err)
		}
		if ticket.SLAResolutionDue != nil {
			reference := now
			if ticket.ResolvedAt != nil {
				reference = *ticket.ResolvedAt
			}
			ticket.SLABreached = reference.After(*ticket.SLAResolutionDue)
		}
	}

	stampResponseBreach(ticket, now)

	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if strings.TrimSpace(comment) != "" {
		if _, err := s.AddComment(ctx, ticket.ID, actorEmail, comment, false); err != nil {
			return nil, err
		}
	}

	if updates.Status != nil && *updates.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actorEmail,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Comment:   comment,
			},
		})
	}
	if updates.Priority != nil && *updates.Priority != oldPriority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    actorEmail,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority:      oldPriority,
				NewPriority:      ticket.Priority,
				NewResponseDue:   ticket.SLAResponseDue,
				NewResolutionDue: ticket.SLAResolutionDue,
			},
		})
	}
	if ticket.SLABreached && !wasBreached {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventSLABreachDetected,
			TicketID: ticket.ID,
			Actor:    actorEmail,
			Payload: events.SLABreachDetectedPayload{
				TicketNumber: ticket.TicketNumber,
				Dimension:    "resolution",
				DueAt:        ticket.SLAResolutionDue,
			},
		})
	}
	if ticket.SLAResponseBreached && !wasResponseBreached {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventSLABreachDetected,
			TicketID: ticket.ID,
			Actor:    actorEmail,
			Payload: events.SLABreachDetectedPayload{
				TicketNumber: ticket.TicketNumber,
				Dimension:    "response",
				DueAt:        ticket.SLAResponseDue,
			},
		})
	}
	return ticket, nil
}

// stampResponseBreach reconciles the persisted response-breach flag against
// the response deadline. Once a first response exists the flag is fixed by
// that timestamp; until then it tracks the reference instant, so a priority
// change that extends the response target can clear it again.
func stampResponseBreach(ticket *domain.Ticket, reference time.Time) {
	if ticket.SLAResponseDue == nil {
		ticket.SLAResponseBreached = false
		return
	}
	if ticket.FirstResponseAt != nil {
		reference = *ticket.FirstResponseAt
	}
	ticket.SLAResponseBreached = reference.After(*ticket.SLAResponseDue)
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// GetTicketByNumber fetches a ticket by its human-facing number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticket_number": number})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListComments returns the comment thread for a ticket.
func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]domain.TicketComment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// AddComment appends a comment to a ticket. The first non-internal comment
// from someone other than the requester stamps first_response_at.
func (s *TicketService) AddComment(ctx context.Context, ticketID, authorEmail, body string, isInternal bool) (*domain.TicketComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	comment := &domain.TicketComment{
		TicketID:    ticket.ID,
		AuthorEmail: authorEmail,
		Comment:     strings.TrimSpace(body),
		IsInternal:  isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	firstResponse := false
	if ticket.FirstResponseAt == nil && !isInternal && authorEmail != ticket.RequesterEmail {
		respondedAt := s.now()
		ticket.FirstResponseAt = &respondedAt
		stampResponseBreach(ticket, respondedAt)
		ticket.UpdatedAt = respondedAt
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		firstResponse = true
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    authorEmail,
		Payload: events.TicketCommentAddedPayload{
			CommentID:     comment.ID,
			AuthorEmail:   authorEmail,
			IsInternal:    isInternal,
			FirstResponse: firstResponse,
		},
	})
	return comment, nil
}

// applySLAPolicy matches a policy for the ticket's current classification,
// falling back to the static table on a miss, and overwrites the SLA
// snapshot fields with deadlines anchored at the given instant.
func (s *TicketService) applySLAPolicy(ctx context.Context, ticket *domain.Ticket, anchor time.Time) error {
	policy, err := s.matcher.FindMatchingPolicy(ctx, ticket.Classification())
	if err != nil {
		return err
	}
	if policy == nil {
		fallback := sla.FallbackPolicy(ticket.Priority, ticket.Type)
		policy = &fallback
		ticket.SLAPolicyID = nil
		ticket.SLAPolicyName = nil
	} else {
		policyID := policy.ID
		policyName := policy.Name
		ticket.SLAPolicyID = &policyID
		ticket.SLAPolicyName = &policyName
	}

	due, err := sla.CalculateDueDates(anchor, *policy)
	if err != nil {
		return err
	}
	responseMinutes := policy.ResponseMinutes
	resolutionMinutes := policy.ResolutionMinutes
	ticket.SLAResponseMinutes = &responseMinutes
	ticket.SLAResolutionMinutes = &resolutionMinutes
	ticket.SLAResponseDue = &due.ResponseDue
	ticket.SLAResolutionDue = &due.ResolutionDue
	return nil
}

// createWithNumber generates a ticket number and inserts the ticket,
// retrying once when a concurrent create took the same number. The
// count-then-insert derivation is inherently racy; the UNIQUE constraint on
// ticket_number turns the race into a retryable conflict.
func (s *TicketService) createWithNumber(ctx context.Context, ticket *domain.Ticket, createdAt time.Time) error {
	for attempt := 0; ; attempt++ {
		number, err := s.nextTicketNumber(ctx, ticket.Type, createdAt)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			return nil
		}
		if repository.IsUniqueViolation(err) && attempt == 0 {
			s.logger.Warn("ticket number collision, retrying",
				zap.String("ticket_number", number))
			continue
		}
		return err
	}
}

func (s *TicketService) nextTicketNumber(ctx context.Context, ticketType domain.TicketType, createdAt time.Time) (string, error) {
	count, err := s.tickets.CountByTypeInYear(ctx, ticketType, createdAt.Year())
	if err != nil {
		return "", err
	}
	prefix := strings.ToUpper(string(ticketType))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, createdAt.Year(), count+1), nil
}

// leastLoadedTechnician picks the active technician with the fewest open
// tickets; ties go to the earlier entry in the technician list. Load is
// recomputed from live counts on every call. Returns nil when no active
// technician exists.
func (s *TicketService) leastLoadedTechnician(ctx context.Context) (*string, error) {
	technicians, err := s.technicians.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(technicians) == 0 {
		return nil, nil
	}
	counts, err := s.tickets.CountOpenByAssignee(ctx)
	if err != nil {
		return nil, err
	}

	best := technicians[0].Email
	bestLoad := counts[best]
	for _, tech := range technicians[1:] {
		if load := counts[tech.Email]; load < bestLoad {
			best = tech.Email
			bestLoad = load
		}
	}
	return &best, nil
}

func applyUpdates(ticket *domain.Ticket, updates TicketUpdateRequest) {
	if updates.Title != nil {
		ticket.Title = strings.TrimSpace(*updates.Title)
	}
	if updates.Description != nil {
		ticket.Description = strings.TrimSpace(*updates.Description)
	}
	if updates.Impact != nil {
		ticket.Impact = updates.Impact
	}
	if updates.Urgency != nil {
		ticket.Urgency = updates.Urgency
	}
	if updates.Category != nil {
		ticket.Category = updates.Category
	}
	if updates.AssignedTo != nil {
		ticket.AssignedTo = updates.AssignedTo
	}
	if updates.Status != nil {
		ticket.Status = *updates.Status
	}
	if updates.Priority != nil {
		ticket.Priority = *updates.Priority
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
