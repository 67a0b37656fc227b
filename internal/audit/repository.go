package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/austral-labs/austral/internal/shared"
)

// Filters narrows audit listings. Action and Resource match as substrings,
// everything else is exact. Zero values are ignored.
type Filters struct {
	Action        string
	Resource      string
	Status        Status
	ActorID       *int64
	CorrelationID uuid.UUID
	RecordedFrom  time.Time
	RecordedTo    time.Time
	OrderBy       string // recorded_at | action | resource | status, "-" prefix for descending
}

var orderColumns = map[string]string{
	"recorded_at": "recorded_at",
	"action":      "action",
	"resource":    "resource",
	"status":      "status",
}

// Repository provides PostgreSQL backed persistence for the default
// audit_logs table and implements the recorder's Storage port for every
// concrete audit table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one row to the given audit table. The table name has been
// validated by the recorder; base columns come first, extension columns
// follow.
func (r *Repository) Insert(ctx context.Context, table string, rec Record, extraCols []string, extraVals []any) (Record, error) {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return Record{}, fmt.Errorf("audit: marshal metadata: %w", err)
	}

	cols := []string{"actor_id", "action", "resource", "resource_id", "status", "metadata", "source_ip", "user_agent", "correlation_id"}
	args := []any{rec.ActorID, rec.Action, rec.Resource, rec.ResourceID, string(rec.Status), metaJSON, nullableText(rec.SourceIP), rec.UserAgent, rec.CorrelationID.String()}
	cols = append(cols, extraCols...)
	args = append(args, extraVals...)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id, recorded_at",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.RecordedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

const baseSelect = `SELECT id, actor_id, action, resource, resource_id, status, metadata, source_ip, user_agent, recorded_at, correlation_id FROM audit_logs`

// List returns one page of audit_logs rows plus a has-next indicator. The
// window fetches limit+1 rows to detect the next page without a count.
func (r *Repository) List(ctx context.Context, f Filters, offset, limit int) ([]Record, bool, error) {
	where, args := buildWhere(f)
	query := baseSelect + where + orderClause(f.OrderBy) +
		fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
	args = append(args, offset, limit+1)

	records, err := r.query(ctx, query, args)
	if err != nil {
		return nil, false, err
	}
	hasNext := len(records) > limit
	if hasNext {
		records = records[:limit]
	}
	return records, hasNext, nil
}

// ListAll returns every matching audit_logs row, for exports.
func (r *Repository) ListAll(ctx context.Context, f Filters) ([]Record, error) {
	where, args := buildWhere(f)
	return r.query(ctx, baseSelect+where+orderClause(f.OrderBy), args)
}

// Get fetches a single audit_logs row by id.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	rows, err := r.query(ctx, baseSelect+" WHERE id = $1", []any{id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	if len(rows) == 0 {
		return Record{}, shared.ErrNotFound
	}
	return rows[0], nil
}

func (r *Repository) query(ctx context.Context, query string, args []any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			metaJSON   []byte
			sourceIP   *string
			corrID     string
			resourceID *string
		)
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.Resource, &resourceID, &rec.Status, &metaJSON, &sourceIP, &rec.UserAgent, &rec.RecordedAt, &corrID); err != nil {
			return nil, err
		}
		if resourceID != nil {
			rec.ResourceID = *resourceID
		}
		if sourceIP != nil {
			rec.SourceIP = *sourceIP
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("audit: unmarshal metadata: %w", err)
			}
		}
		if parsed, err := uuid.Parse(corrID); err == nil {
			rec.CorrelationID = parsed
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func buildWhere(f Filters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Action != "" {
		add("action ILIKE $%d", "%"+f.Action+"%")
	}
	if f.Resource != "" {
		add("resource ILIKE $%d", "%"+f.Resource+"%")
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.CorrelationID != uuid.Nil {
		add("correlation_id = $%d", f.CorrelationID.String())
	}
	if !f.RecordedFrom.IsZero() {
		add("recorded_at >= $%d", f.RecordedFrom)
	}
	if !f.RecordedTo.IsZero() {
		add("recorded_at <= $%d", f.RecordedTo)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause maps the user-supplied ordering to a whitelisted column.
// Anything unrecognized falls back to newest-first.
func orderClause(orderBy string) string {
	dir := "ASC"
	if strings.HasPrefix(orderBy, "-") {
		dir = "DESC"
		orderBy = strings.TrimPrefix(orderBy, "-")
	}
	col, ok := orderColumns[orderBy]
	if !ok {
		return " ORDER BY recorded_at DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
