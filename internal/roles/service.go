package roles

import (
	"context"
	"strconv"
	"strings"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, name, description string, codes []string) (*Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, codes []string) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
	CountUsersWithRole(ctx context.Context, id int64) (int64, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
}

// Meta carries per-request client context into audit rows.
type Meta struct {
	ActorID   *int64
	SourceIP  string
	UserAgent string
}

// Service handles role administration business logic.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole creates a role with the given permission grants.
func (s *Service) CreateRole(ctx context.Context, name, description string, codes []string, meta Meta) (*Role, error) {
	role, err := s.repo.CreateRole(ctx, strings.TrimSpace(name), strings.TrimSpace(description), codes)
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "role.created",
		Resource:   "role",
		ResourceID: formatID(role.ID),
		Metadata:   map[string]any{"name": role.Name, "permissions": role.Permissions},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

// UpdateRole renames a role and replaces its permission set.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, codes []string, meta Meta) (*Role, error) {
	role, err := s.repo.UpdateRole(ctx, id, strings.TrimSpace(name), strings.TrimSpace(description), codes)
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "role.updated",
		Resource:   "role",
		ResourceID: formatID(role.ID),
		Metadata:   map[string]any{"name": role.Name, "permissions": role.Permissions},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

// DeleteRole removes a role. Roles still assigned to accounts cannot be
// deleted; reassign the accounts first.
func (s *Service) DeleteRole(ctx context.Context, id int64, meta Meta) error {
	assigned, err := s.repo.CountUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		s.recorder.Failure(ctx, audit.Options{
			ActorID:    meta.ActorID,
			Action:     "role.deleted",
			Resource:   "role",
			ResourceID: formatID(id),
			Metadata:   map[string]any{"reason": "role_assigned", "assigned_users": assigned},
			SourceIP:   meta.SourceIP,
			UserAgent:  meta.UserAgent,
		})
		return shared.ErrRoleAssigned
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "role.deleted",
		Resource:   "role",
		ResourceID: formatID(id),
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
