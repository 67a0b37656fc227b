package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/austral-labs/austral/internal/audit/http"
	"github.com/austral-labs/austral/internal/auth"
	"github.com/austral-labs/austral/internal/brokerage"
	"github.com/austral-labs/austral/internal/rbac"
	"github.com/austral-labs/austral/internal/roles"
	"github.com/austral-labs/austral/internal/shared"
	"github.com/austral-labs/austral/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Authenticator      *auth.Authenticator
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	BrokerageHandler   *brokerage.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RBACMiddleware     rbac.Middleware
}

// NewRouter constructs the chi.Router with Austral defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)
	r.Use(params.Authenticator.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(gr chi.Router) {
			params.AuthHandler.MountRoutes(gr)
		})
		api.Route("/users", func(gr chi.Router) {
			params.UsersHandler.MountRoutes(gr, params.RBACMiddleware)
		})
		api.Route("/authorization", func(gr chi.Router) {
			params.PermissionsHandler.MountRoutes(gr)
			params.RolesHandler.MountRoutes(gr, params.RBACMiddleware)
		})
		api.Route("/brokerage", func(gr chi.Router) {
			params.BrokerageHandler.MountRoutes(gr, params.RBACMiddleware)
		})
		api.Route("/audit", func(gr chi.Router) {
			gr.Use(params.RBACMiddleware.Require(shared.PermAuditView))
			params.AuditHandler.MountRoutes(gr)
		})
	})

	return r
}
