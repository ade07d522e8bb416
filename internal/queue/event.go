// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.
const (
	CountSubmittedQueue = "count.submitted"
	SessionStatusQueue  = "session.status"
)

// CountSubmittedEvent is published after a count commits.  It carries
// enough for downstream consumers to log or feed dashboards without
// querying the primary database.  Corrected is true when the submission
// overwrote an earlier count for the same tuple.
type CountSubmittedEvent struct {
	EventID       string `json:"event_id"`
	CountID       uint64 `json:"count_id"`
	SessionID     uint64 `json:"session_id"`
	SessionName   string `json:"session_name"`
	ArticleID     uint64 `json:"article_id"`
	ArticleNumero string `json:"article_numero"`
	Round         int    `json:"round"`
	Quantity      string `json:"quantity_counted"`
	Version       int    `json:"version"`
	Corrected     bool   `json:"corrected"`
	UserID        uint64 `json:"user_id"`
	Username      string `json:"username"`
	CountedAt     string `json:"counted_at"`
}

// SessionStatusEvent is published when a session changes lifecycle status.
type SessionStatusEvent struct {
	EventID     string `json:"event_id"`
	SessionID   uint64 `json:"session_id"`
	SessionName string `json:"session_name"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ChangedBy   uint64 `json:"changed_by_user_id"`
	ChangedAt   string `json:"changed_at"`
}
