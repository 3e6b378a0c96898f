package policy

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Changes is a proposed update. Nil fields are left alone. An empty AssigneeID
// clears the assignee.
type Changes struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssigneeID  *string
	Comment     *string
}

// UserLookup resolves a user id against the directory.
type UserLookup func(id string) (domain.User, bool)

// touched lists the fields whose proposed value differs from ticket. Resubmitting
// the current value is not a change and needs no permission.
func (c Changes) touched(ticket domain.Ticket) []Field {
	var fields []Field
	if c.Title != nil && *c.Title != ticket.Title {
		fields = append(fields, FieldTitle)
	}
	if c.Description != nil && *c.Description != ticket.Description {
		fields = append(fields, FieldDescription)
	}
	if c.Category != nil && *c.Category != ticket.Category {
		fields = append(fields, FieldCategory)
	}
	if c.Priority != nil && *c.Priority != ticket.Priority {
		fields = append(fields, FieldPriority)
	}
	if c.Status != nil && *c.Status != ticket.Status {
		fields = append(fields, FieldStatus)
	}
	if c.AssigneeID != nil && *c.AssigneeID != ticket.AssigneeID() {
		fields = append(fields, FieldAssignee)
	}
	if c.Comment != nil {
		fields = append(fields, FieldComments)
	}
	return fields
}

// ApplyUpdate validates changes for user and returns the updated copy of
// ticket. The input ticket is never modified, so a rejected update leaves the
// caller's state untouched. ID, CreatedAt and Requester are carried over as is;
// UpdatedAt becomes now, or stays put if the clock went backwards.
func ApplyUpdate(user domain.User, ticket domain.Ticket, changes Changes, lookup UserLookup, now time.Time) (domain.Ticket, error) {
	fields := changes.touched(ticket)
	for _, field := range fields {
		if !CanEditField(user, ticket, field) {
			return domain.Ticket{}, apperrors.NewForbiddenField(string(field))
		}
	}

	updated := ticket.Clone()
	for _, field := range fields {
		switch field {
		case FieldPriority:
			if !changes.Priority.Valid() {
				return domain.Ticket{}, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *changes.Priority})
			}
			updated.Priority = *changes.Priority
		case FieldStatus:
			if !changes.Status.Valid() {
				return domain.Ticket{}, apperrors.NewValidationError("invalid status", map[string]any{"status": *changes.Status})
			}
			updated.Status = *changes.Status
		case FieldAssignee:
			assignee, err := resolveAssignee(*changes.AssigneeID, lookup)
			if err != nil {
				return domain.Ticket{}, err
			}
			updated.Assignee = assignee
		case FieldComments:
			text := strings.TrimSpace(*changes.Comment)
			if text == "" {
				return domain.Ticket{}, apperrors.NewValidationError("comment text required", nil)
			}
			updated.Comments = append(updated.Comments, domain.Comment{
				Author:    user.Name,
				Text:      text,
				Timestamp: now,
			})
		}
	}

	if now.After(ticket.UpdatedAt) {
		updated.UpdatedAt = now
	}
	return updated, nil
}

func resolveAssignee(id string, lookup UserLookup) (*domain.User, error) {
	if id == "" {
		return nil, nil
	}
	if lookup == nil {
		return nil, apperrors.NewInvalidAssignee(id)
	}
	user, ok := lookup(id)
	if !ok || user.Role != domain.RoleTechnician {
		return nil, apperrors.NewInvalidAssignee(id)
	}
	return &user, nil
}
