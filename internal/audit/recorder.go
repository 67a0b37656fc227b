package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
)

// Storage persists audit rows.
type Storage interface {
	Insert(ctx context.Context, table string, rec Record, extraCols []string, extraVals []any) (Record, error)
}

// Options collects the fields of one audit record. Action and Resource are
// required; everything else is optional. A zero CorrelationID gets a fresh
// random UUID. Metadata must never contain secrets: no passwords, tokens or
// private keys.
type Options struct {
	Entry         Entry
	ActorID       *int64
	Action        string
	Resource      string
	ResourceID    string
	Metadata      map[string]any
	SourceIP      string
	UserAgent     string
	CorrelationID uuid.UUID
}

// Recorder writes audit entries with fail-silent semantics: a storage
// failure is logged with enough context to diagnose later and converted to
// a nil return, never propagated, so audit logging can never abort the
// business operation that triggered it. One synchronous insert per call,
// outside any caller transaction; no retries, no buffering.
type Recorder struct {
	storage Storage
	logger  *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(storage Storage, logger *slog.Logger) *Recorder {
	return &Recorder{storage: storage, logger: logger}
}

// Success records an entry with status SUCCESS. Returns nil on any failure.
func (r *Recorder) Success(ctx context.Context, opts Options) *Record {
	return r.record(ctx, opts, StatusSuccess)
}

// Failure records an entry with status FAILURE. Returns nil on any failure.
func (r *Recorder) Failure(ctx context.Context, opts Options) *Record {
	return r.record(ctx, opts, StatusFailure)
}

func (r *Recorder) record(ctx context.Context, opts Options, status Status) *Record {
	rec, err := r.create(ctx, opts, status)
	if err != nil {
		table := "audit_logs"
		if opts.Entry != nil {
			table = opts.Entry.TableName()
		}
		if r.logger != nil {
			r.logger.Error("audit write failed",
				slog.String("action", opts.Action),
				slog.String("resource", opts.Resource),
				slog.String("table", table),
				slog.String("status", string(status)),
				slog.Any("error", err))
		}
		return nil
	}
	return rec
}

// Table names are interpolated into the INSERT statement, so anything that
// is not a plain SQL identifier is rejected before reaching the database.
var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (r *Recorder) create(ctx context.Context, opts Options, status Status) (*Record, error) {
	if opts.Action == "" || opts.Resource == "" {
		return nil, errors.New("audit: action and resource are required")
	}
	entry := opts.Entry
	if entry == nil {
		entry = Log{}
	}
	table := entry.TableName()
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("audit: invalid table name %q", table)
	}

	rec := Record{
		ActorID:       opts.ActorID,
		Action:        opts.Action,
		Resource:      opts.Resource,
		ResourceID:    opts.ResourceID,
		Status:        status,
		Metadata:      opts.Metadata,
		SourceIP:      opts.SourceIP,
		UserAgent:     opts.UserAgent,
		CorrelationID: opts.CorrelationID,
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	if rec.CorrelationID == uuid.Nil {
		rec.CorrelationID = uuid.New()
	}

	extraCols, extraVals := entry.Extra()
	if len(extraCols) != len(extraVals) {
		return nil, fmt.Errorf("audit: entry %s returned %d extra columns but %d values", table, len(extraCols), len(extraVals))
	}
	stored, err := r.storage.Insert(ctx, table, rec, extraCols, extraVals)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
