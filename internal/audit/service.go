package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/austral-labs/austral/internal/shared"
)

// ReadRepository provides the queries backing the read API.
type ReadRepository interface {
	List(ctx context.Context, f Filters, offset, limit int) ([]Record, bool, error)
	ListAll(ctx context.Context, f Filters) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
}

// Result wraps one page of audit records with paging metadata.
type Result struct {
	Rows   []Record
	Paging shared.PagingInfo
}

// Service coordinates read access to the audit trail.
type Service struct {
	repo ReadRepository
}

// NewService constructs the audit read service.
func NewService(repo ReadRepository) *Service {
	return &Service{repo: repo}
}

// Query returns one page of audit records matching the filters.
func (s *Service) Query(ctx context.Context, f Filters, page, pageSize int) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	page, pageSize = shared.ClampPage(page, pageSize)
	rows, hasNext, err := s.repo.List(ctx, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return Result{}, err
	}
	return Result{Rows: rows, Paging: shared.NewPagingInfo(page, pageSize, hasNext)}, nil
}

// Get fetches a single audit record.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	if s.repo == nil {
		return Record{}, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Get(ctx, id)
}

// Export renders every matching record as CSV.
func (s *Service) Export(ctx context.Context, f Filters) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "actor_id", "action", "resource", "resource_id", "status", "metadata", "source_ip", "user_agent", "recorded_at", "correlation_id"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range rows {
		actor := ""
		if rec.ActorID != nil {
			actor = strconv.FormatInt(*rec.ActorID, 10)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return nil, err
		}
		record := []string{
			strconv.FormatInt(rec.ID, 10),
			actor,
			rec.Action,
			rec.Resource,
			rec.ResourceID,
			string(rec.Status),
			string(meta),
			rec.SourceIP,
			rec.UserAgent,
			rec.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			rec.CorrelationID.String(),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
