package domain

import "time"

// TicketStatus is a free label; any status may follow any other.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	default:
		return false
	}
}

// TicketCategory classifies the problem area.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "Hardware"
	TicketCategorySoftware TicketCategory = "Software"
	TicketCategoryNetwork  TicketCategory = "Network"
	TicketCategoryAccess   TicketCategory = "Access"
	TicketCategoryOther    TicketCategory = "Other"
)

func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork, TicketCategoryAccess, TicketCategoryOther:
		return true
	default:
		return false
	}
}

// TicketSource tags the channel a ticket arrived through.
type TicketSource string

const (
	TicketSourceGLPI   TicketSource = "GLPI"
	TicketSourceSolman TicketSource = "Solman"
	TicketSourceEmail  TicketSource = "Email"
	TicketSourceWeb    TicketSource = "Web"
	TicketSourceChat   TicketSource = "Chat"
)

// Ticket is the aggregate for support requests. Requester and Assignee are
// copies of directory entries, never owned by the ticket.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Requester   User
	Assignee    *User
	Status      TicketStatus
	Priority    TicketPriority
	Category    TicketCategory
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Source      TicketSource
	Comments    []Comment
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (t Ticket) Clone() Ticket {
	out := t
	if t.Assignee != nil {
		assignee := *t.Assignee
		out.Assignee = &assignee
	}
	if t.Comments != nil {
		out.Comments = make([]Comment, len(t.Comments))
		copy(out.Comments, t.Comments)
	}
	return out
}

// IsActive reports whether the ticket still needs work.
func (t Ticket) IsActive() bool {
	return t.Status != TicketStatusResolved && t.Status != TicketStatusClosed
}

// AssigneeID returns the assignee's id or "" when unassigned.
func (t Ticket) AssigneeID() string {
	if t.Assignee == nil {
		return ""
	}
	return t.Assignee.ID
}
