package brokerage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

type memBrokerageRepo struct {
	clients      map[int64]*Client
	clientByCUIT map[string]bool
	assets       map[int64]*Asset
	assetByCode  map[string]bool
	nextID       int64
}

func newMemBrokerageRepo() *memBrokerageRepo {
	return &memBrokerageRepo{
		clients:      make(map[int64]*Client),
		clientByCUIT: make(map[string]bool),
		assets:       make(map[int64]*Asset),
		assetByCode:  make(map[string]bool),
	}
}

func (m *memBrokerageRepo) ListClients(ctx context.Context, f ClientFilters, limit, offset int) ([]Client, bool, error) {
	out := make([]Client, 0, len(m.clients))
	for _, c := range m.clients {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, false, nil
}

func (m *memBrokerageRepo) GetClient(ctx context.Context, id int64) (*Client, error) {
	if c, ok := m.clients[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memBrokerageRepo) CreateClient(ctx context.Context, c *Client) (*Client, error) {
	if m.clientByCUIT[c.CUIT] {
		return nil, httpx.ErrDuplicate
	}
	m.nextID++
	c.ID = m.nextID
	m.clients[c.ID] = c
	m.clientByCUIT[c.CUIT] = true
	copied := *c
	return &copied, nil
}

func (m *memBrokerageRepo) UpdateClient(ctx context.Context, id int64, name, email string) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c.Name = name
	c.Email = email
	copied := *c
	return &copied, nil
}

func (m *memBrokerageRepo) SetClientStatus(ctx context.Context, id int64, status string) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c.Status = status
	copied := *c
	return &copied, nil
}

func (m *memBrokerageRepo) ListAssets(ctx context.Context, f AssetFilters, limit, offset int) ([]Asset, bool, error) {
	out := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		if !f.IncludeInactive && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	return out, false, nil
}

func (m *memBrokerageRepo) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	if a, ok := m.assets[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memBrokerageRepo) CreateAsset(ctx context.Context, a *Asset) (*Asset, error) {
	if m.assetByCode[a.Code] {
		return nil, httpx.ErrDuplicate
	}
	m.nextID++
	a.ID = m.nextID
	m.assets[a.ID] = a
	m.assetByCode[a.Code] = true
	copied := *a
	return &copied, nil
}

func (m *memBrokerageRepo) UpdateAsset(ctx context.Context, id int64, name, category string) (*Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	a.Name = name
	a.Category = category
	copied := *a
	return &copied, nil
}

func (m *memBrokerageRepo) SetAssetActive(ctx context.Context, id int64, active bool) (*Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	a.IsActive = active
	copied := *a
	return &copied, nil
}

type memAuditStorage struct {
	rows []audit.Record
}

func (m *memAuditStorage) Insert(ctx context.Context, table string, rec audit.Record, extraCols []string, extraVals []any) (audit.Record, error) {
	m.rows = append(m.rows, rec)
	return rec, nil
}

func newBrokerageService() (*Service, *memBrokerageRepo, *memAuditStorage) {
	repo := newMemBrokerageRepo()
	storage := &memAuditStorage{}
	return NewService(repo, audit.NewRecorder(storage, nil)), repo, storage
}

func TestCreateClientValidatesCUIT(t *testing.T) {
	svc, _, storage := newBrokerageService()
	ctx := context.Background()

	cases := []struct {
		name string
		cuit string
		ok   bool
	}{
		{"valid", "30-50000074-5", true},
		{"missing dashes", "30500000745", false},
		{"short body", "30-5000007-5", false},
		{"letters", "3A-50000074-5", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateClient(ctx, "Cliente", tc.cuit, "", Meta{})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, httpx.ErrValidation)
			}
		})
	}
	require.Len(t, storage.rows, 1, "only the valid CUIT is audited")
}

func TestCreateClientDuplicateCUIT(t *testing.T) {
	svc, _, _ := newBrokerageService()
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, "Cliente A", "30-50000074-5", "", Meta{})
	require.NoError(t, err)
	_, err = svc.CreateClient(ctx, "Cliente B", "30-50000074-5", "", Meta{})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestClientBlockUnblock(t *testing.T) {
	svc, _, storage := newBrokerageService()
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, "Cliente", "30-50000074-5", "", Meta{})
	require.NoError(t, err)
	assert.Equal(t, ClientStatusActive, client.Status)
	storage.rows = nil

	blocked, err := svc.BlockClient(ctx, client.ID, Meta{})
	require.NoError(t, err)
	assert.Equal(t, ClientStatusBlocked, blocked.Status)

	restored, err := svc.UnblockClient(ctx, client.ID, Meta{})
	require.NoError(t, err)
	assert.Equal(t, ClientStatusActive, restored.Status)

	require.Len(t, storage.rows, 2)
	assert.Equal(t, "client.blocked", storage.rows[0].Action)
	assert.Equal(t, "client.unblocked", storage.rows[1].Action)
}

func TestCreateAssetUppercasesCode(t *testing.T) {
	svc, _, _ := newBrokerageService()

	asset, err := svc.CreateAsset(context.Background(), "ggal", "Grupo Financiero Galicia", "ACCION", Meta{})
	require.NoError(t, err)
	assert.Equal(t, "GGAL", asset.Code)
	assert.True(t, asset.IsActive)
}

func TestAssetDeactivateHidesFromDefaultListing(t *testing.T) {
	svc, _, _ := newBrokerageService()
	ctx := context.Background()

	asset, err := svc.CreateAsset(ctx, "AL30", "Bonar 2030", "BONO", Meta{})
	require.NoError(t, err)

	_, err = svc.DeactivateAsset(ctx, asset.ID, Meta{})
	require.NoError(t, err)

	visible, err := svc.ListAssets(ctx, AssetFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, visible.Rows)

	all, err := svc.ListAssets(ctx, AssetFilters{IncludeInactive: true}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all.Rows, 1)

	restored, err := svc.ReactivateAsset(ctx, asset.ID, Meta{})
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
}

func TestAssetOperationsOnMissingAsset(t *testing.T) {
	svc, _, _ := newBrokerageService()
	ctx := context.Background()

	_, err := svc.GetAsset(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.DeactivateAsset(ctx, 99, Meta{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
