// Package policy holds the role based rules for who may see and change
// tickets. Every role check in the service consults the tables here.
package policy

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Field names a mutable part of a ticket.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldPriority    Field = "priority"
	FieldStatus      Field = "status"
	FieldAssignee    Field = "assignee"
	FieldComments    Field = "comments"
)

// Fields lists every field in a stable order.
var Fields = []Field{
	FieldTitle, FieldDescription, FieldCategory,
	FieldPriority, FieldStatus, FieldAssignee, FieldComments,
}

// creationFields may only be set while a ticket is being filed.
var creationFields = map[Field]bool{
	FieldTitle:       true,
	FieldDescription: true,
	FieldCategory:    true,
}

// Action names a role gated operation outside single field edits.
type Action string

const (
	ActionCreateTicket       Action = "create_ticket"
	ActionViewAllTickets     Action = "view_all_tickets"
	ActionViewStats          Action = "view_stats"
	ActionViewQueue          Action = "view_queue"
	ActionRequestSuggestions Action = "request_suggestions"
	ActionUseIntake          Action = "use_intake"
)

// fieldTable maps role x field on an existing ticket.
var fieldTable = map[domain.Role]map[Field]bool{
	domain.RoleRequester: {},
	domain.RoleTechnician: {
		FieldPriority: true,
		FieldStatus:   true,
		FieldAssignee: true,
		FieldComments: true,
	},
	domain.RoleAdministrator: {
		FieldPriority: true,
		FieldStatus:   true,
		FieldAssignee: true,
		FieldComments: true,
	},
}

var actionTable = map[domain.Role]map[Action]bool{
	domain.RoleRequester: {
		ActionCreateTicket: true,
		ActionUseIntake:    true,
	},
	domain.RoleTechnician: {
		ActionViewQueue:          true,
		ActionRequestSuggestions: true,
	},
	domain.RoleAdministrator: {
		ActionCreateTicket:       true,
		ActionViewAllTickets:     true,
		ActionViewStats:          true,
		ActionRequestSuggestions: true,
	},
}

// Can reports whether role may perform action.
func Can(role domain.Role, action Action) bool {
	return actionTable[role][action]
}

// CanEditField reports whether user may set field on ticket. A ticket without
// an id is a draft being filed: only the creation fields are open, and only to
// roles allowed to create tickets. Creation fields are read-only afterwards.
func CanEditField(user domain.User, ticket domain.Ticket, field Field) bool {
	if ticket.ID == "" {
		return creationFields[field] && Can(user.Role, ActionCreateTicket)
	}
	if creationFields[field] {
		return false
	}
	return fieldTable[user.Role][field]
}

// Permissions returns the editable state of every field for user on ticket.
func Permissions(user domain.User, ticket domain.Ticket) map[Field]bool {
	out := make(map[Field]bool, len(Fields))
	for _, field := range Fields {
		out[field] = CanEditField(user, ticket, field)
	}
	return out
}
