package rbac

import (
	"context"
	"log/slog"

	"github.com/austral-labs/austral/internal/shared"
)

// RepositoryPort defines the lookups required by the decision function.
type RepositoryPort interface {
	RoleHasPermission(ctx context.Context, roleID int64, code string) (bool, error)
	RolePermissionCodes(ctx context.Context, roleID int64) ([]string, error)
}

// Service is the single source of truth for authorization decisions.
// Every check hits the database, so role changes take effect on the next
// request without token rotation.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// HasPermission reports whether the principal's role grants the permission
// code. Fail-closed: a nil, unauthenticated, inactive or role-less principal
// is always denied, and a storage error denies rather than erroring out.
// Codes are compared exactly and case-sensitively.
func (s *Service) HasPermission(ctx context.Context, p *shared.Principal, code string) bool {
	if code == "" {
		return false
	}
	if !p.IsAuthenticated() || !p.IsActive || p.RoleID == nil {
		return false
	}
	granted, err := s.repo.RoleHasPermission(ctx, *p.RoleID, code)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("rbac permission check",
				slog.Int64("role_id", *p.RoleID),
				slog.String("code", code),
				slog.Any("error", err))
		}
		return false
	}
	return granted
}

// Permissions returns every permission code granted by the principal's role.
// Empty under the same fail-closed conditions as HasPermission.
func (s *Service) Permissions(ctx context.Context, p *shared.Principal) []string {
	if !p.IsAuthenticated() || !p.IsActive || p.RoleID == nil {
		return []string{}
	}
	codes, err := s.repo.RolePermissionCodes(ctx, *p.RoleID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("rbac list permissions",
				slog.Int64("role_id", *p.RoleID),
				slog.Any("error", err))
		}
		return []string{}
	}
	return codes
}
