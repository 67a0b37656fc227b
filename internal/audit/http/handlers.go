package audithttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

// Handler serves the read-only audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.service.Query(r.Context(), filters, page, pageSize)
	if err != nil {
		h.logger.Error("audit list", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"results": result.Rows,
		"paging":  result.Paging,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "logID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid log id")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "audit log not found")
			return
		}
		h.logger.Error("audit get", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	// Identical concurrent exports collapse into one repository scan.
	data, err, _ := singleflightExport(r.Context(), exportKey(filters), func(ctx context.Context) ([]byte, error) {
		return h.service.Export(ctx, filters)
	})
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit_logs.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
		OrderBy:  q.Get("ordering"),
	}
	switch status := q.Get("status"); status {
	case "":
	case string(audit.StatusSuccess), string(audit.StatusFailure):
		filters.Status = audit.Status(status)
	default:
		return audit.Filters{}, fmt.Errorf("status must be SUCCESS or FAILURE")
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("actor_id must be numeric")
		}
		filters.ActorID = &id
	}
	if raw := q.Get("correlation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("correlation_id must be a UUID")
		}
		filters.CorrelationID = id
	}
	if raw := q.Get("recorded_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("recorded_from must be RFC3339")
		}
		filters.RecordedFrom = t
	}
	if raw := q.Get("recorded_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("recorded_to must be RFC3339")
		}
		filters.RecordedTo = t
	}
	return filters, nil
}

func exportKey(f audit.Filters) string {
	actor := ""
	if f.ActorID != nil {
		actor = strconv.FormatInt(*f.ActorID, 10)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%s",
		f.Action, f.Resource, f.Status, actor, f.CorrelationID,
		f.RecordedFrom.UnixNano(), f.RecordedTo.UnixNano(), f.OrderBy)
}
