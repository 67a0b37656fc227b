package shared

import "context"

// Principal describes the authenticated actor resolved by the JWT layer.
// RoleID is nil when the account has no role assigned; such principals are
// denied by every permission check.
type Principal struct {
	ID       int64
	Email    string
	IsActive bool
	RoleID   *int64
}

// IsAuthenticated reports whether the principal represents a resolved account.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.ID != 0
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. Returns nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
