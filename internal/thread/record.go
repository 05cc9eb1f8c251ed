// Package thread groups message records into threads and derives the reply
// edges between them.
package thread

import "time"

// Record is one raw message as delivered by an ingestion source. Its row is
// its zero-based position in the slice handed to Assemble.
type Record struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Subject    string    `json:"subject"`
	Body       *string   `json:"body"`
	ParentRow  *int      `json:"parent_row,omitempty"`
	InReplyTo  string    `json:"in_reply_to,omitempty"`
}

// Thread is the set of messages sharing a thread id.
type Thread struct {
	ThreadID string    `json:"thread_id"`
	Members  []string  `json:"members"`
	Rows     []int     `json:"rows"`
	RootRows []int     `json:"root_rows"`
	Subject  string    `json:"subject,omitempty"`
	FirstAt  time.Time `json:"first_at,omitzero"`
	LastAt   time.Time `json:"last_at,omitzero"`
}

// Edge states that the message at ChildRow directly replies to the message
// at ParentRow within ThreadID.
type Edge struct {
	ThreadID  string `json:"thread_id"`
	ParentRow int    `json:"parent_row"`
	ChildRow  int    `json:"child_row"`
}

// RejectReason explains why a parent reference did not become an edge.
type RejectReason string

const (
	RejectOutOfRange  RejectReason = "parent row out of range"
	RejectOtherThread RejectReason = "parent row belongs to another thread"
	RejectSelfLoop    RejectReason = "parent row is the record itself"
	RejectCycle       RejectReason = "edge would close a reply cycle"
)

// Rejected is a parent reference that was dropped.
type Rejected struct {
	Edge   Edge         `json:"edge"`
	Reason RejectReason `json:"reason"`
}
