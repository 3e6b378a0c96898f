package dto

import (
	"time"

	"github.com/xeonx/timeago"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
}

// UpdateTicketRequest is a partial update: absent fields stay as they are.
// An empty assignee_id unassigns the ticket.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	AssigneeID  *string                `json:"assignee_id"`
	Comment     *string                `json:"comment"`
}

// Changes converts the request into an edit proposal.
func (r UpdateTicketRequest) Changes() policy.Changes {
	return policy.Changes{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		AssigneeID:  r.AssigneeID,
		Comment:     r.Comment,
	}
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Text string `json:"text"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Requester   UserResponse          `json:"requester"`
	Assignee    *UserResponse         `json:"assignee"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	Source      domain.TicketSource   `json:"source"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	UpdatedAgo  string                `json:"updated_ago"`
	Comments    []CommentResponse     `json:"comments"`
}

// CommentResponse is one comment.
type CommentResponse struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTicketResponse renders ticket; now anchors the relative update label.
func NewTicketResponse(ticket domain.Ticket, now time.Time) TicketResponse {
	resp := TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Requester:   NewUserResponse(ticket.Requester),
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Category:    ticket.Category,
		Source:      ticket.Source,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		UpdatedAgo:  timeago.English.FormatReference(ticket.UpdatedAt, now),
		Comments:    make([]CommentResponse, 0, len(ticket.Comments)),
	}
	if ticket.Assignee != nil {
		assignee := NewUserResponse(*ticket.Assignee)
		resp.Assignee = &assignee
	}
	for _, c := range ticket.Comments {
		resp.Comments = append(resp.Comments, CommentResponse{Author: c.Author, Text: c.Text, Timestamp: c.Timestamp})
	}
	return resp
}

func NewTicketResponses(tickets []domain.Ticket, now time.Time) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, NewTicketResponse(ticket, now))
	}
	return out
}

// PermissionsResponse maps field name to whether the caller may edit it.
type PermissionsResponse struct {
	TicketID string          `json:"ticket_id"`
	Fields   map[string]bool `json:"fields"`
}

func NewPermissionsResponse(ticketID string, perms map[policy.Field]bool) PermissionsResponse {
	fields := make(map[string]bool, len(perms))
	for field, allowed := range perms {
		fields[string(field)] = allowed
	}
	return PermissionsResponse{TicketID: ticketID, Fields: fields}
}
