package domain

// Suggestion is advisory troubleshooting output for a ticket.
type Suggestion struct {
	Solutions []string
	Keywords  []string
}
