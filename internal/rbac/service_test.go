package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/shared"
)

type stubRepo struct {
	granted  map[string]bool
	codes    []string
	err      error
	lastCode string
	lastRole int64
}

func (s *stubRepo) RoleHasPermission(ctx context.Context, roleID int64, code string) (bool, error) {
	s.lastRole = roleID
	s.lastCode = code
	if s.err != nil {
		return false, s.err
	}
	return s.granted[code], nil
}

func (s *stubRepo) RolePermissionCodes(ctx context.Context, roleID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.codes, nil
}

func activePrincipal(roleID int64) *shared.Principal {
	return &shared.Principal{ID: 7, Email: "ana@austral.local", IsActive: true, RoleID: &roleID}
}

func TestHasPermissionGranted(t *testing.T) {
	repo := &stubRepo{granted: map[string]bool{"usuarios.view": true}}
	svc := NewService(repo, nil)

	assert.True(t, svc.HasPermission(context.Background(), activePrincipal(3), "usuarios.view"))
	assert.Equal(t, int64(3), repo.lastRole)
}

func TestHasPermissionFailClosed(t *testing.T) {
	repo := &stubRepo{granted: map[string]bool{"usuarios.view": true}}
	svc := NewService(repo, nil)
	ctx := context.Background()

	assert.False(t, svc.HasPermission(ctx, nil, "usuarios.view"), "nil principal")
	assert.False(t, svc.HasPermission(ctx, &shared.Principal{}, "usuarios.view"), "unauthenticated")

	roleID := int64(3)
	inactive := &shared.Principal{ID: 7, IsActive: false, RoleID: &roleID}
	assert.False(t, svc.HasPermission(ctx, inactive, "usuarios.view"), "inactive account")

	noRole := &shared.Principal{ID: 7, IsActive: true}
	assert.False(t, svc.HasPermission(ctx, noRole, "usuarios.view"), "no role assigned")

	assert.False(t, svc.HasPermission(ctx, activePrincipal(3), ""), "empty code")
}

func TestHasPermissionCaseSensitive(t *testing.T) {
	repo := &stubRepo{granted: map[string]bool{"usuarios.view": true}}
	svc := NewService(repo, nil)

	assert.False(t, svc.HasPermission(context.Background(), activePrincipal(3), "Usuarios.View"))
	assert.Equal(t, "Usuarios.View", repo.lastCode, "code must reach storage unmodified")
}

func TestHasPermissionStorageErrorDenies(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection refused")}
	svc := NewService(repo, nil)

	assert.False(t, svc.HasPermission(context.Background(), activePrincipal(3), "usuarios.view"))
}

func TestPermissionsListsRoleGrants(t *testing.T) {
	repo := &stubRepo{codes: []string{"dashboard.view", "usuarios.view"}}
	svc := NewService(repo, nil)

	codes := svc.Permissions(context.Background(), activePrincipal(3))
	require.Equal(t, []string{"dashboard.view", "usuarios.view"}, codes)
}

func TestPermissionsEmptyWhenFailClosed(t *testing.T) {
	repo := &stubRepo{codes: []string{"dashboard.view"}}
	svc := NewService(repo, nil)
	ctx := context.Background()

	assert.Empty(t, svc.Permissions(ctx, nil))
	assert.Empty(t, svc.Permissions(ctx, &shared.Principal{ID: 7, IsActive: true}))

	repo.err = errors.New("connection refused")
	assert.Empty(t, svc.Permissions(ctx, activePrincipal(3)))
}
