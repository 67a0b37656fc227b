package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

type memRolesRepo struct {
	roles     map[int64]*Role
	byName    map[string]int64
	assigned  map[int64]int64
	catalog   []Permission
	nextID    int64
	deleteErr error
}

func newMemRolesRepo() *memRolesRepo {
	return &memRolesRepo{
		roles:    make(map[int64]*Role),
		byName:   make(map[string]int64),
		assigned: make(map[int64]int64),
		catalog: []Permission{
			{ID: 1, Code: "dashboard.view", Description: "Ver el dashboard"},
			{ID: 2, Code: "usuarios.view", Description: "Ver usuarios"},
		},
	}
}

func (m *memRolesRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memRolesRepo) GetRole(ctx context.Context, id int64) (*Role, error) {
	if r, ok := m.roles[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memRolesRepo) CreateRole(ctx context.Context, name, description string, codes []string) (*Role, error) {
	if _, ok := m.byName[name]; ok {
		return nil, httpx.ErrDuplicate
	}
	m.nextID++
	r := &Role{ID: m.nextID, Name: name, Description: description, Permissions: codes}
	m.roles[r.ID] = r
	m.byName[name] = r.ID
	return r, nil
}

func (m *memRolesRepo) UpdateRole(ctx context.Context, id int64, name, description string, codes []string) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	delete(m.byName, r.Name)
	r.Name = name
	r.Description = description
	r.Permissions = codes
	m.byName[name] = id
	copied := *r
	return &copied, nil
}

func (m *memRolesRepo) DeleteRole(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	r, ok := m.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.byName, r.Name)
	delete(m.roles, id)
	return nil
}

func (m *memRolesRepo) CountUsersWithRole(ctx context.Context, id int64) (int64, error) {
	return m.assigned[id], nil
}

func (m *memRolesRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	return m.catalog, nil
}

type memAuditStorage struct {
	rows []audit.Record
}

func (m *memAuditStorage) Insert(ctx context.Context, table string, rec audit.Record, extraCols []string, extraVals []any) (audit.Record, error) {
	m.rows = append(m.rows, rec)
	return rec, nil
}

func newRolesService() (*Service, *memRolesRepo, *memAuditStorage) {
	repo := newMemRolesRepo()
	storage := &memAuditStorage{}
	return NewService(repo, audit.NewRecorder(storage, nil)), repo, storage
}

func TestCreateRole(t *testing.T) {
	svc, _, storage := newRolesService()

	role, err := svc.CreateRole(context.Background(), " Analista ", "Opera conciliaciones",
		[]string{"dashboard.view"}, Meta{})
	require.NoError(t, err)
	assert.Equal(t, "Analista", role.Name, "name is trimmed")

	require.Len(t, storage.rows, 1)
	assert.Equal(t, "role.created", storage.rows[0].Action)
	assert.Equal(t, audit.StatusSuccess, storage.rows[0].Status)
}

func TestCreateDuplicateRole(t *testing.T) {
	svc, _, _ := newRolesService()
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "Analista", "", nil, Meta{})
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, "Analista", "", nil, Meta{})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestUpdateRoleReplacesPermissions(t *testing.T) {
	svc, _, storage := newRolesService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Analista", "", []string{"dashboard.view"}, Meta{})
	require.NoError(t, err)
	storage.rows = nil

	updated, err := svc.UpdateRole(ctx, role.ID, "Analista", "", []string{"usuarios.view"}, Meta{})
	require.NoError(t, err)
	assert.Equal(t, []string{"usuarios.view"}, updated.Permissions)
	require.Len(t, storage.rows, 1)
	assert.Equal(t, "role.updated", storage.rows[0].Action)
}

func TestDeleteAssignedRoleIsRejected(t *testing.T) {
	svc, repo, storage := newRolesService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Supervisor", "", nil, Meta{})
	require.NoError(t, err)
	repo.assigned[role.ID] = 2
	storage.rows = nil

	err = svc.DeleteRole(ctx, role.ID, Meta{})
	assert.ErrorIs(t, err, shared.ErrRoleAssigned)
	_, err = svc.GetRole(ctx, role.ID)
	assert.NoError(t, err, "role survives the rejected delete")

	require.Len(t, storage.rows, 1)
	assert.Equal(t, audit.StatusFailure, storage.rows[0].Status)
}

func TestDeleteRoleRacingAssignment(t *testing.T) {
	svc, repo, _ := newRolesService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Operador", "", nil, Meta{})
	require.NoError(t, err)
	// An assignment lands after the count check; the store rejects the
	// delete through the restrict constraint.
	repo.deleteErr = shared.ErrRoleAssigned

	err = svc.DeleteRole(ctx, role.ID, Meta{})
	assert.ErrorIs(t, err, shared.ErrRoleAssigned)
	repo.deleteErr = nil
	_, err = svc.GetRole(ctx, role.ID)
	assert.NoError(t, err, "role survives the rejected delete")
}

func TestDeleteUnassignedRole(t *testing.T) {
	svc, _, storage := newRolesService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Temporal", "", nil, Meta{})
	require.NoError(t, err)
	storage.rows = nil

	require.NoError(t, svc.DeleteRole(ctx, role.ID, Meta{}))
	_, err = svc.GetRole(ctx, role.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, storage.rows, 1)
	assert.Equal(t, "role.deleted", storage.rows[0].Action)
	assert.Equal(t, audit.StatusSuccess, storage.rows[0].Status)
}

func TestListPermissionsCatalog(t *testing.T) {
	svc, _, _ := newRolesService()

	catalog, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, 2)
}
