package rbac

import (
	"log/slog"
	"net/http"

	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

// Middleware wires RBAC authorization gates into HTTP handlers. Requests
// without an authenticated principal receive 401; authenticated principals
// failing the gate receive 403 with the gate's denial message.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require guards with a single permission code.
func (m Middleware) Require(code string) func(http.Handler) http.Handler {
	return m.guard(RequirePermission(m.Service, code))
}

// RequireAny guards with at-least-one-of semantics.
func (m Middleware) RequireAny(codes ...string) func(http.Handler) http.Handler {
	return m.guard(RequireAnyPermission(m.Service, codes...))
}

// RequireAll guards with all-of semantics.
func (m Middleware) RequireAll(codes ...string) func(http.Handler) http.Handler {
	return m.guard(RequireAllPermissions(m.Service, codes...))
}

func (m Middleware) guard(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if !principal.IsAuthenticated() {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !gate.Allow(r.Context(), principal) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("gate", gate.Label()),
						slog.Int64("user_id", principal.ID),
						slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", gate.Message())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
