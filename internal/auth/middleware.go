package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

// Authenticator resolves bearer tokens into a request principal. Requests
// without an Authorization header pass through anonymous; permission gates
// downstream decide whether that is acceptable.
type Authenticator struct {
	Tokens *TokenIssuer
	Repo   RepositoryPort
	Logger *slog.Logger
}

// Middleware returns the http middleware. A presented token must be a valid,
// unexpired access token whose user still exists, is active and has not had
// its tokens invalidated since issuance.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := a.Tokens.Parse(raw)
			if err != nil || claims.Kind != TokenKindAccess {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}

			user, err := a.Repo.FindByID(r.Context(), claims.UserID)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			if !user.IsActive || user.TokenVersion != claims.TokenVersion {
				a.Logger.Debug("stale token rejected",
					"user_id", user.ID, "active", user.IsActive)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}

			principal := &shared.Principal{
				ID:       user.ID,
				Email:    user.Email,
				IsActive: user.IsActive,
				RoleID:   user.RoleID,
			}
			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
