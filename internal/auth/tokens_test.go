package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral-labs/austral/internal/shared"
)

func testUser() *User {
	roleID := int64(2)
	return &User{
		ID:           7,
		Email:        "ana@austral.local",
		IsActive:     true,
		RoleID:       &roleID,
		TokenVersion: 3,
	}
}

func TestIssueAndParseRoundtrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "austral", 15*time.Minute, time.Hour)

	pair, err := issuer.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	access, err := issuer.Parse(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, TokenKindAccess, access.Kind)
	assert.Equal(t, int64(7), access.UserID)
	assert.Equal(t, 3, access.TokenVersion)
	assert.Equal(t, "ana@austral.local", access.Subject)
	assert.NotEmpty(t, access.ID)

	refresh, err := issuer.Parse(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenKindRefresh, refresh.Kind)
	assert.NotEqual(t, access.ID, refresh.ID, "each token gets its own jti")
}

func TestParseExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", "austral", -time.Minute, -time.Minute)

	pair, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Access)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestParseWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret", "austral", time.Hour, time.Hour)
	other := NewTokenIssuer("different", "austral", time.Hour, time.Hour)

	pair, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = other.Parse(pair.Access)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestParseGarbage(t *testing.T) {
	issuer := NewTokenIssuer("secret", "austral", time.Hour, time.Hour)

	_, err := issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}
