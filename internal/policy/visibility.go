package policy

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CanView reports whether user may see ticket.
//   - Requester: own tickets only.
//   - Technician: tickets assigned to them plus the unassigned queue.
//   - Administrator: everything.
func CanView(user domain.User, ticket domain.Ticket) bool {
	switch user.Role {
	case domain.RoleAdministrator:
		return true
	case domain.RoleRequester:
		return ticket.Requester.ID == user.ID
	case domain.RoleTechnician:
		return ticket.Assignee == nil || ticket.Assignee.ID == user.ID
	default:
		return false
	}
}

// VisibleTickets filters all down to what user may see, preserving order. The
// result never aliases the input slice.
func VisibleTickets(user domain.User, all []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(all))
	for _, ticket := range all {
		if CanView(user, ticket) {
			out = append(out, ticket)
		}
	}
	return out
}

// Queue is a technician's working view.
type Queue struct {
	Assigned   []domain.Ticket
	Unassigned []domain.Ticket
}

// ActiveQueue splits tickets into assigned-to-user and unassigned, dropping
// resolved and closed ones. It is a presentation filter over VisibleTickets.
func ActiveQueue(user domain.User, tickets []domain.Ticket) Queue {
	queue := Queue{Assigned: []domain.Ticket{}, Unassigned: []domain.Ticket{}}
	for _, ticket := range tickets {
		if !ticket.IsActive() {
			continue
		}
		switch {
		case ticket.Assignee == nil:
			queue.Unassigned = append(queue.Unassigned, ticket)
		case ticket.Assignee.ID == user.ID:
			queue.Assigned = append(queue.Assigned, ticket)
		}
	}
	return queue
}
