package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/shared"
)

func newAuthenticator(t *testing.T, users ...*User) (*Authenticator, *TokenIssuer) {
	t.Helper()
	issuer := NewTokenIssuer("secret", "austral", 15*time.Minute, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Authenticator{Tokens: issuer, Repo: newMemAuthRepo(users...), Logger: logger}, issuer
}

func principalEcho() (http.Handler, *[]*shared.Principal) {
	var seen []*shared.Principal
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, shared.PrincipalFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}), &seen
}

func TestAuthenticatorResolvesPrincipal(t *testing.T) {
	user := activeUser(t, "hunter22")
	auth, issuer := newAuthenticator(t, user)
	pair, err := issuer.Issue(user)
	require.NoError(t, err)

	next, seen := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, *seen, 1)
	principal := (*seen)[0]
	require.NotNil(t, principal)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, user.Email, principal.Email)
}

func TestAuthenticatorPassesAnonymousThrough(t *testing.T) {
	auth, _ := newAuthenticator(t)

	next, seen := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0], "no principal for anonymous requests")
}

func TestAuthenticatorRejectsRefreshTokenAsBearer(t *testing.T) {
	user := activeUser(t, "hunter22")
	auth, issuer := newAuthenticator(t, user)
	pair, err := issuer.Issue(user)
	require.NoError(t, err)

	next, seen := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, *seen)
}

func TestAuthenticatorRejectsStaleTokenVersion(t *testing.T) {
	user := activeUser(t, "hunter22")
	auth, issuer := newAuthenticator(t, user)
	pair, err := issuer.Issue(user)
	require.NoError(t, err)

	user.TokenVersion++
	next, _ := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorRejectsDeactivatedAccount(t *testing.T) {
	user := activeUser(t, "hunter22")
	auth, issuer := newAuthenticator(t, user)
	pair, err := issuer.Issue(user)
	require.NoError(t, err)

	user.IsActive = false
	next, _ := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorIgnoresMalformedHeader(t *testing.T) {
	auth, _ := newAuthenticator(t)

	next, seen := principalEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Token abcdef")
	res := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code, "non-bearer schemes fall through as anonymous")
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0])
}
