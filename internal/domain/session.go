package domain

import "time"

// Session is the selected identity for one logged-in client. No credential is
// checked; the role comes from the chosen directory entry.
type Session struct {
	ID        string
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
