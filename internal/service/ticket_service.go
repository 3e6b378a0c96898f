package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const commentPreviewLen = 120

// TicketMetrics counts created tickets.
type TicketMetrics interface {
	RecordTicketCreated(source string)
}

// TicketService is the ticket store: every read goes through the visibility
// rules and every write through the edit rules.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	sequence   *ticketid.Sequence
	dispatcher events.Dispatcher
	metrics    TicketMetrics
	logger     *zap.Logger
	now        func() time.Time

	// writeMu serialises read-modify-write cycles so concurrent updates to
	// one ticket cannot lose each other's changes.
	writeMu sync.Mutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Sequence   *ticketid.Sequence
	Dispatcher events.Dispatcher
	Metrics    TicketMetrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload. Empty priority and
// category take their defaults.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
}

// TicketStats are the administrator dashboard counters.
type TicketStats struct {
	Total      int
	Open       int
	InProgress int
	Pending    int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		sequence:   deps.Sequence,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// Create files a new ticket for actor. The ticket starts Open with no
// comments and lands at the head of the collection.
func (s *TicketService) Create(ctx context.Context, actor domain.User, input TicketCreateInput, source domain.TicketSource) (domain.Ticket, error) {
	if !policy.Can(actor.Role, policy.ActionCreateTicket) {
		return domain.Ticket{}, apperrors.NewForbidden("role may not create tickets")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	missing := []string{}
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return domain.Ticket{}, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryOther
	}
	if !category.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("invalid category", map[string]any{"category": category})
	}
	if source == "" {
		source = domain.TicketSourceWeb
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id, err := s.sequence.Next(ctx)
	if err != nil {
		return domain.Ticket{}, apperrors.NewInternalError(err)
	}
	now := s.now()
	ticket := domain.Ticket{
		ID:          id,
		Title:       title,
		Description: description,
		Requester:   actor,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
		Source:      source,
		Comments:    []domain.Comment{},
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return domain.Ticket{}, apperrors.MapError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordTicketCreated(string(source))
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("requester_id", actor.ID),
		zap.String("source", string(source)),
	)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFrom(actor),
		Payload: events.TicketCreatedPayload{
			Title:       ticket.Title,
			Priority:    ticket.Priority,
			Category:    ticket.Category,
			Source:      ticket.Source,
			RequesterID: actor.ID,
		},
	})
	return ticket, nil
}

// List returns the tickets actor may see, most recent first.
func (s *TicketService) List(ctx context.Context, actor domain.User) ([]domain.Ticket, error) {
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy.VisibleTickets(actor, all), nil
}

// Get returns one ticket. Tickets actor may not see are reported as missing.
func (s *TicketService) Get(ctx context.Context, actor domain.User, id string) (domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !policy.CanView(actor, ticket) {
		return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// Update validates changes against the edit rules and stores the result. A
// rejected update leaves the stored ticket untouched.
func (s *TicketService) Update(ctx context.Context, actor domain.User, id string, changes policy.Changes) (domain.Ticket, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return domain.Ticket{}, err
	}

	var lookupErr error
	lookup := func(userID string) (domain.User, bool) {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if !repository.IsNotFound(err) {
				lookupErr = err
			}
			return domain.User{}, false
		}
		return user, true
	}

	updated, err := policy.ApplyUpdate(actor, current, changes, lookup, s.now())
	if lookupErr != nil {
		return domain.Ticket{}, apperrors.NewInternalError(lookupErr)
	}
	if err != nil {
		return domain.Ticket{}, err
	}

	if err := s.tickets.Replace(ctx, updated); err != nil {
		if repository.IsNotFound(err) {
			return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return domain.Ticket{}, apperrors.MapError(err)
	}

	s.publishChanges(ctx, actor, current, updated)
	return updated, nil
}

// AddComment appends text to the ticket's conversation.
func (s *TicketService) AddComment(ctx context.Context, actor domain.User, id, text string) (domain.Ticket, error) {
	return s.Update(ctx, actor, id, policy.Changes{Comment: &text})
}

// Permissions reports which fields actor may edit on the ticket.
func (s *TicketService) Permissions(ctx context.Context, actor domain.User, id string) (map[policy.Field]bool, error) {
	ticket, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return policy.Permissions(actor, ticket), nil
}

// Stats counts tickets for the administrator dashboard.
func (s *TicketService) Stats(ctx context.Context, actor domain.User) (TicketStats, error) {
	if !policy.Can(actor.Role, policy.ActionViewStats) {
		return TicketStats{}, apperrors.NewForbidden("role may not view statistics")
	}
	tickets, err := s.List(ctx, actor)
	if err != nil {
		return TicketStats{}, err
	}
	stats := TicketStats{Total: len(tickets)}
	for _, ticket := range tickets {
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusPending:
			stats.Pending++
		}
	}
	return stats, nil
}

// TechnicianQueue returns actor's active work split into assigned and
// unassigned tickets.
func (s *TicketService) TechnicianQueue(ctx context.Context, actor domain.User) (policy.Queue, error) {
	if !policy.Can(actor.Role, policy.ActionViewQueue) {
		return policy.Queue{}, apperrors.NewForbidden("role has no technician queue")
	}
	visible, err := s.List(ctx, actor)
	if err != nil {
		return policy.Queue{}, err
	}
	return policy.ActiveQueue(actor, visible), nil
}

func (s *TicketService) load(ctx context.Context, id string) (domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return domain.Ticket{}, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publishChanges(ctx context.Context, actor domain.User, before, after domain.Ticket) {
	actorRef := events.ActorFrom(actor)
	var fields []string

	if before.Status != after.Status {
		fields = append(fields, string(policy.FieldStatus))
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketStatusChanged, TicketID: after.ID, Actor: actorRef,
			Payload: events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status},
		})
	}
	if before.Priority != after.Priority {
		fields = append(fields, string(policy.FieldPriority))
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketPriorityChanged, TicketID: after.ID, Actor: actorRef,
			Payload: events.TicketPriorityChangedPayload{OldPriority: before.Priority, NewPriority: after.Priority},
		})
	}
	if before.AssigneeID() != after.AssigneeID() {
		fields = append(fields, string(policy.FieldAssignee))
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketAssigned, TicketID: after.ID, Actor: actorRef,
			Payload: events.TicketAssignedPayload{OldAssigneeID: before.AssigneeID(), NewAssigneeID: after.AssigneeID()},
		})
	}
	for _, comment := range after.Comments[len(before.Comments):] {
		fields = append(fields, string(policy.FieldComments))
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketCommentAdded, TicketID: after.ID, Actor: actorRef,
			Payload: events.TicketCommentAddedPayload{Author: comment.Author, BodyPreview: preview(comment.Text)},
		})
	}

	if len(fields) > 0 {
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketUpdated, TicketID: after.ID, Actor: actorRef,
			Payload: events.TicketUpdatedPayload{Fields: fields},
		})
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

func preview(text string) string {
	if utf8.RuneCountInString(text) <= commentPreviewLen {
		return text
	}
	return string([]rune(text)[:commentPreviewLen]) + "..."
}
