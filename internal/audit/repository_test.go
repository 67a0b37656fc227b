package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWhereEmptyFilters(t *testing.T) {
	where, args := buildWhere(Filters{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhereCorrelationID(t *testing.T) {
	id := uuid.New()

	where, args := buildWhere(Filters{CorrelationID: id})
	assert.Equal(t, " WHERE correlation_id = $1", where)
	require.Len(t, args, 1)
	assert.Equal(t, id.String(), args[0])
}

func TestBuildWhereCombinedFilters(t *testing.T) {
	actor := int64(7)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	where, args := buildWhere(Filters{
		Action:       "login",
		Resource:     "session",
		Status:       StatusFailure,
		ActorID:      &actor,
		RecordedFrom: from,
		RecordedTo:   to,
	})
	assert.Equal(t,
		" WHERE action ILIKE $1 AND resource ILIKE $2 AND status = $3 AND actor_id = $4 AND recorded_at >= $5 AND recorded_at <= $6",
		where)
	assert.Equal(t, []any{"%login%", "%session%", "FAILURE", actor, from, to}, args)
}

func TestBuildWhereSubstringMatch(t *testing.T) {
	where, args := buildWhere(Filters{Action: "user."})
	assert.Equal(t, " WHERE action ILIKE $1", where)
	assert.Equal(t, []any{"%user.%"}, args)
}

func TestOrderClause(t *testing.T) {
	cases := []struct {
		orderBy string
		want    string
	}{
		{"", " ORDER BY recorded_at DESC"},
		{"-recorded_at", " ORDER BY recorded_at DESC"},
		{"recorded_at", " ORDER BY recorded_at ASC"},
		{"action", " ORDER BY action ASC"},
		{"-status", " ORDER BY status DESC"},
		{"metadata", " ORDER BY recorded_at DESC"},
		{"recorded_at; DROP TABLE audit_logs", " ORDER BY recorded_at DESC"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, orderClause(tc.orderBy), "orderBy=%q", tc.orderBy)
	}
}
