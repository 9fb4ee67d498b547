package audit

import "time"

// Row is a single append-only audit record. UserID is a pointer because
// some actions cannot be attributed to a user.
type Row struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
