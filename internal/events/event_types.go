package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketUpdated         EventType = "ticket_updated"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
)

// AllTypes lists every event type, for subscribers that want them all.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketCommentAdded,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// ActorFrom builds the event actor for user.
func ActorFrom(user domain.User) Actor {
	return Actor{UserID: user.ID, Name: user.Name, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title       string                `json:"title"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	Source      domain.TicketSource   `json:"source"`
	RequesterID string                `json:"requester_id"`
}

// TicketUpdatedPayload lists the fields an accepted update changed.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload. Empty ids mean unassigned.
type TicketAssignedPayload struct {
	OldAssigneeID string `json:"old_assignee_id,omitempty"`
	NewAssigneeID string `json:"new_assignee_id,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	Author      string `json:"author"`
	BodyPreview string `json:"body_preview"`
}
