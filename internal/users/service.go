package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/shared"
)

// RepositoryPort defines data access methods for user administration.
type RepositoryPort interface {
	List(ctx context.Context, f Filters, limit, offset int) ([]User, bool, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, input CreateInput, passwordHash string) (*User, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*User, error)
	Deactivate(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, hash string) error
}

// Notifier delivers account notifications out of band. Delivery failures do
// not fail the operation that triggered them.
type Notifier interface {
	SendTempPassword(ctx context.Context, email, tempPassword string) error
}

// Meta carries per-request client context into audit rows.
type Meta struct {
	ActorID   *int64
	SourceIP  string
	UserAgent string
}

// Result is a listing page.
type Result struct {
	Rows   []User
	Paging shared.PagingInfo
}

// Service handles user administration business logic.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, notifier Notifier, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, recorder: recorder, logger: logger}
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, f Filters, page, pageSize int) (Result, error) {
	page, pageSize = shared.ClampPage(page, pageSize)
	rows, hasNext, err := s.repo.List(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	return Result{Rows: rows, Paging: shared.NewPagingInfo(page, pageSize, hasNext)}, nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions an account with a generated temporary password, delivers
// it out of band and audits the creation. When a role is assigned at creation
// the role assignment is audited under the same correlation id.
func (s *Service) Create(ctx context.Context, input CreateInput, meta Meta) (*User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	tempPassword, err := generatePassword()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, input, string(hash))
	if err != nil {
		return nil, err
	}

	corrID := uuid.New()
	s.recorder.Success(ctx, audit.Options{
		ActorID:       meta.ActorID,
		Action:        "user.created",
		Resource:      "user",
		ResourceID:    formatID(user.ID),
		Metadata:      map[string]any{"email": user.Email},
		SourceIP:      meta.SourceIP,
		UserAgent:     meta.UserAgent,
		CorrelationID: corrID,
	})
	if user.RoleID != nil {
		s.recorder.Success(ctx, audit.Options{
			ActorID:       meta.ActorID,
			Action:        "user.role_assigned",
			Resource:      "user",
			ResourceID:    formatID(user.ID),
			Metadata:      map[string]any{"role_id": *user.RoleID},
			SourceIP:      meta.SourceIP,
			UserAgent:     meta.UserAgent,
			CorrelationID: corrID,
		})
	}

	if s.notifier != nil {
		if err := s.notifier.SendTempPassword(ctx, user.Email, tempPassword); err != nil {
			s.logger.Warn("temp password notification failed",
				slog.String("email", user.Email), slog.Any("error", err))
		}
	}
	return user, nil
}

// Update applies partial changes and audits what changed. A role change is
// audited as its own entry under the same correlation id.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, meta Meta) (*User, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	changed := changedFields(before, user)
	corrID := uuid.New()
	s.recorder.Success(ctx, audit.Options{
		ActorID:       meta.ActorID,
		Action:        "user.updated",
		Resource:      "user",
		ResourceID:    formatID(user.ID),
		Metadata:      map[string]any{"changed": changed},
		SourceIP:      meta.SourceIP,
		UserAgent:     meta.UserAgent,
		CorrelationID: corrID,
	})
	if roleChanged(before, user) {
		md := map[string]any{}
		if user.RoleID != nil {
			md["role_id"] = *user.RoleID
		} else {
			md["role_id"] = nil
		}
		s.recorder.Success(ctx, audit.Options{
			ActorID:       meta.ActorID,
			Action:        "user.role_assigned",
			Resource:      "user",
			ResourceID:    formatID(user.ID),
			Metadata:      md,
			SourceIP:      meta.SourceIP,
			UserAgent:     meta.UserAgent,
			CorrelationID: corrID,
		})
	}
	return user, nil
}

// Deactivate disables the account, invalidating its outstanding tokens.
func (s *Service) Deactivate(ctx context.Context, id int64, meta Meta) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "user.deactivated",
		Resource:   "user",
		ResourceID: formatID(id),
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// ResetPassword replaces the password with a fresh temporary one, delivers
// it out of band and returns it to the caller exactly once; it is never
// persisted in clear. Reset and notification share a correlation id.
func (s *Service) ResetPassword(ctx context.Context, id int64, meta Meta) (string, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	tempPassword, err := generatePassword()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPassword(ctx, user.ID, string(hash)); err != nil {
		return "", err
	}

	corrID := uuid.New()
	s.recorder.Success(ctx, audit.Options{
		ActorID:       meta.ActorID,
		Action:        "user.password_reset",
		Resource:      "user",
		ResourceID:    formatID(user.ID),
		SourceIP:      meta.SourceIP,
		UserAgent:     meta.UserAgent,
		CorrelationID: corrID,
	})

	if s.notifier != nil {
		if err := s.notifier.SendTempPassword(ctx, user.Email, tempPassword); err != nil {
			s.logger.Warn("temp password notification failed",
				slog.String("email", user.Email), slog.Any("error", err))
			s.recorder.Failure(ctx, audit.Options{
				ActorID:       meta.ActorID,
				Action:        "user.password_notify",
				Resource:      "user",
				ResourceID:    formatID(user.ID),
				Metadata:      map[string]any{"reason": "delivery_failed"},
				SourceIP:      meta.SourceIP,
				UserAgent:     meta.UserAgent,
				CorrelationID: corrID,
			})
			return tempPassword, nil
		}
		s.recorder.Success(ctx, audit.Options{
			ActorID:       meta.ActorID,
			Action:        "user.password_notify",
			Resource:      "user",
			ResourceID:    formatID(user.ID),
			SourceIP:      meta.SourceIP,
			UserAgent:     meta.UserAgent,
			CorrelationID: corrID,
		})
	}
	return tempPassword, nil
}

func changedFields(before, after *User) []string {
	changed := make([]string, 0, 4)
	if before.FirstName != after.FirstName {
		changed = append(changed, "first_name")
	}
	if before.LastName != after.LastName {
		changed = append(changed, "last_name")
	}
	if before.IsActive != after.IsActive {
		changed = append(changed, "is_active")
	}
	if roleChanged(before, after) {
		changed = append(changed, "role_id")
	}
	return changed
}

func roleChanged(before, after *User) bool {
	switch {
	case before.RoleID == nil && after.RoleID == nil:
		return false
	case before.RoleID == nil || after.RoleID == nil:
		return true
	default:
		return *before.RoleID != *after.RoleID
	}
}

// generatePassword returns a random url-safe temporary password.
func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("users: generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
