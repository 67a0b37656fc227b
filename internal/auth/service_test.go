package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/shared"
)

type memAuthRepo struct {
	users   map[int64]*User
	byEmail map[string]*User
	revoked map[string]bool
}

func newMemAuthRepo(users ...*User) *memAuthRepo {
	repo := &memAuthRepo{
		users:   make(map[int64]*User),
		byEmail: make(map[string]*User),
		revoked: make(map[string]bool),
	}
	for _, u := range users {
		repo.users[u.ID] = u
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (m *memAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memAuthRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memAuthRepo) Create(ctx context.Context, u *User) (*User, error) {
	u.ID = int64(len(m.users) + 1)
	m.users[u.ID] = u
	m.byEmail[u.Email] = u
	return u, nil
}

func (m *memAuthRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	u.TokenVersion++
	return nil
}

func (m *memAuthRepo) RevokeToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	m.revoked[jti] = true
	return nil
}

func (m *memAuthRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

type memAuditStorage struct {
	tables []string
	rows   []audit.Record
}

func (m *memAuditStorage) Insert(ctx context.Context, table string, rec audit.Record, extraCols []string, extraVals []any) (audit.Record, error) {
	m.tables = append(m.tables, table)
	m.rows = append(m.rows, rec)
	return rec, nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, limit int, users ...*User) (*Service, *memAuthRepo, *memAuditStorage) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemAuthRepo(users...)
	storage := &memAuditStorage{}
	svc := NewService(repo,
		NewTokenIssuer("secret", "austral", 15*time.Minute, time.Hour),
		NewThrottle(client, limit, time.Minute),
		audit.NewRecorder(storage, nil))
	return svc, repo, storage
}

func activeUser(t *testing.T, password string) *User {
	roleID := int64(2)
	return &User{
		ID:           7,
		Email:        "ana@austral.local",
		PasswordHash: mustHash(t, password),
		IsActive:     true,
		RoleID:       &roleID,
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _, storage := newTestService(t, 5, activeUser(t, "hunter22"))

	pair, user, err := svc.Login(context.Background(), "Ana@Austral.Local", "hunter22", RequestMeta{SourceIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, int64(7), user.ID)

	require.Len(t, storage.rows, 1)
	assert.Equal(t, "auth.login", storage.rows[0].Action)
	assert.Equal(t, audit.StatusSuccess, storage.rows[0].Status)
	assert.Equal(t, "10.0.0.1", storage.rows[0].SourceIP)
}

func TestLoginFoldsFailuresIntoInvalidCredentials(t *testing.T) {
	inactive := activeUser(t, "hunter22")
	inactive.IsActive = false
	inactive.Email = "baja@austral.local"

	svc, _, storage := newTestService(t, 5, activeUser(t, "hunter22"), inactive)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "ana@austral.local", "wrong", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nadie@austral.local", "hunter22", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "baja@austral.local", "hunter22", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.Len(t, storage.rows, 3)
	for _, row := range storage.rows {
		assert.Equal(t, audit.StatusFailure, row.Status)
	}
}

func TestLoginThrottledWritesSecurityRow(t *testing.T) {
	svc, _, storage := newTestService(t, 2, activeUser(t, "hunter22"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, "ana@austral.local", "wrong", RequestMeta{})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrLoginThrottled, "even the right password is rejected while locked")

	require.Len(t, storage.tables, 3)
	assert.Equal(t, "security_audit_logs", storage.tables[2])
}

func TestLoginResetsThrottleOnSuccess(t *testing.T) {
	svc, _, _ := newTestService(t, 3, activeUser(t, "hunter22"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _ = svc.Login(ctx, "ana@austral.local", "wrong", RequestMeta{})
	}
	_, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	// The counter is cleared, so two more misses do not lock the account.
	for i := 0; i < 2; i++ {
		_, _, err = svc.Login(ctx, "ana@austral.local", "wrong", RequestMeta{})
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newTestService(t, 5, activeUser(t, "hunter22"))
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.Refresh, RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, next.Refresh)
	assert.Len(t, repo.revoked, 1, "presented jti is revoked on rotation")

	// The rotated-out token cannot be replayed.
	_, err = svc.Refresh(ctx, pair.Refresh, RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t, 5, activeUser(t, "hunter22"))
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.Access, RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRefreshRejectsSupersededTokenVersion(t *testing.T) {
	user := activeUser(t, "hunter22")
	svc, _, _ := newTestService(t, 5, user)
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	user.TokenVersion++
	_, err = svc.Refresh(ctx, pair.Refresh, RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	user := activeUser(t, "hunter22")
	svc, _, _ := newTestService(t, 5, user)
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	user.IsActive = false
	_, err = svc.Refresh(ctx, pair.Refresh, RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t, 5, activeUser(t, "hunter22"))
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "ana@austral.local", "hunter22", RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.Refresh, nil, RequestMeta{}))
	assert.Len(t, repo.revoked, 1)
	require.NoError(t, svc.Logout(ctx, pair.Refresh, nil, RequestMeta{}))
	require.NoError(t, svc.Logout(ctx, "garbage", nil, RequestMeta{}))
}

func TestChangePassword(t *testing.T) {
	user := activeUser(t, "hunter22")
	svc, _, storage := newTestService(t, 5, user)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, user.ID, "wrong", "nueva-clave-9", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	before := user.TokenVersion
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "hunter22", "nueva-clave-9", RequestMeta{}))
	assert.Equal(t, before+1, user.TokenVersion, "outstanding tokens are invalidated")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("nueva-clave-9")))

	last := storage.rows[len(storage.rows)-1]
	assert.Equal(t, "auth.password_changed", last.Action)
	assert.Equal(t, audit.StatusSuccess, last.Status)
}

func TestRegisterStartsWithoutRole(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     "Nuevo@Austral.Local",
		FirstName: "Nuevo",
		LastName:  "Usuario",
		Password:  "clave-segura-1",
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "nuevo@austral.local", user.Email)
	assert.Nil(t, user.RoleID)
	assert.True(t, user.IsActive)
}
