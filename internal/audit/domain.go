package audit

import (
	"time"

	"github.com/google/uuid"
)

// Status marks the outcome of the audited operation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Record holds the columns shared by every audit table. Rows are append
// only: they are never updated or deleted through the API, and the only
// post-insert mutation is the database nulling ActorID when the referenced
// user is removed.
type Record struct {
	ID            int64          `json:"id"`
	ActorID       *int64         `json:"actor_id"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	ResourceID    string         `json:"resource_id,omitempty"`
	Status        Status         `json:"status"`
	Metadata      map[string]any `json:"metadata"`
	SourceIP      string         `json:"source_ip,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	RecordedAt    time.Time      `json:"recorded_at"`
	CorrelationID uuid.UUID      `json:"correlation_id"`
}

// Entry selects the concrete table a record is written to. New audit
// domains define their own Entry elsewhere, with extension columns beyond
// the base set; the recorder needs no change to support them.
type Entry interface {
	TableName() string
	// Extra returns extension column names and their values, aligned by
	// index. Both are nil for tables with no extension columns.
	Extra() (columns []string, values []any)
}

// Log is the default general-purpose audit table, used for standard
// business events that need no extra fields.
type Log struct{}

func (Log) TableName() string { return "audit_logs" }

func (Log) Extra() ([]string, []any) { return nil, nil }
