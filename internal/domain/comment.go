package domain

import "time"

// Comment is an append-only entry in a ticket thread.
type Comment struct {
	Author    string
	Text      string
	Timestamp time.Time
}
