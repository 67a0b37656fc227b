package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/shared"
)

// RepositoryPort defines data access methods for identity.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	RevokeToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RequestMeta carries per-request client context forwarded into audit rows.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// Service wraps authentication business rules.
type Service struct {
	repo     RepositoryPort
	tokens   *TokenIssuer
	throttle *Throttle
	recorder *audit.Recorder
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, tokens *TokenIssuer, throttle *Throttle, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, tokens: tokens, throttle: throttle, recorder: recorder}
}

// Login validates credentials and issues a token pair. Unknown accounts,
// wrong passwords and inactive accounts all fold into ErrInvalidCredentials
// so the response does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (TokenPair, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.throttle.Blocked(ctx, email) {
		s.recorder.Failure(ctx, audit.Options{
			Entry:     SecurityLog{ThreatLevel: ThreatLevelHigh, Blocked: true},
			Action:    "auth.login",
			Resource:  "session",
			Metadata:  map[string]any{"reason": "too_many_attempts", "limit": s.throttle.Limit()},
			SourceIP:  meta.SourceIP,
			UserAgent: meta.UserAgent,
		})
		return TokenPair{}, nil, shared.ErrLoginThrottled
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil || !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		_, _ = s.throttle.Fail(ctx, email)
		s.recorder.Failure(ctx, audit.Options{
			Action:    "auth.login",
			Resource:  "session",
			Metadata:  map[string]any{"reason": "invalid_credentials"},
			SourceIP:  meta.SourceIP,
			UserAgent: meta.UserAgent,
		})
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	_ = s.throttle.Reset(ctx, email)
	s.recorder.Success(ctx, audit.Options{
		ActorID:   &user.ID,
		Action:    "auth.login",
		Resource:  "session",
		SourceIP:  meta.SourceIP,
		UserAgent: meta.UserAgent,
	})
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented jti is revoked and a new
// pair is issued. Revoked, expired, superseded (token_version mismatch) or
// wrong-kind tokens are rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil || claims.Kind != TokenKindRefresh {
		return TokenPair{}, shared.ErrInvalidToken
	}
	revoked, err := s.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, shared.ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, shared.ErrInvalidToken
	}
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		return TokenPair{}, shared.ErrInvalidToken
	}

	if err := s.repo.RevokeToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		return TokenPair{}, err
	}
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return TokenPair{}, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:   &user.ID,
		Action:    "auth.refresh",
		Resource:  "session",
		SourceIP:  meta.SourceIP,
		UserAgent: meta.UserAgent,
	})
	return pair, nil
}

// Logout revokes the presented refresh token. Already-invalid tokens are
// accepted silently; logout is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string, actor *shared.Principal, meta RequestMeta) error {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil || claims.Kind != TokenKindRefresh {
		return nil
	}
	if err := s.repo.RevokeToken(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	opts := audit.Options{
		Action:    "auth.logout",
		Resource:  "session",
		SourceIP:  meta.SourceIP,
		UserAgent: meta.UserAgent,
	}
	if actor.IsAuthenticated() {
		opts.ActorID = &actor.ID
	}
	s.recorder.Success(ctx, opts)
	return nil
}

// RegisterInput carries public signup fields.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register creates an account through public signup. The account starts
// without a role, so every permission check denies until an administrator
// assigns one.
func (s *Service) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, &User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    &user.ID,
		Action:     "user.registered",
		Resource:   "user",
		ResourceID: formatID(user.ID),
		Metadata:   map[string]any{"email": user.Email},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash,
// bumping token_version so every outstanding token is invalidated.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string, meta RequestMeta) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		s.recorder.Failure(ctx, audit.Options{
			ActorID:    &user.ID,
			Action:     "auth.password_changed",
			Resource:   "user",
			ResourceID: formatID(user.ID),
			Metadata:   map[string]any{"reason": "current_password_mismatch"},
			SourceIP:   meta.SourceIP,
			UserAgent:  meta.UserAgent,
		})
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    &user.ID,
		Action:     "auth.password_changed",
		Resource:   "user",
		ResourceID: formatID(user.ID),
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// Profile returns the account for the authenticated principal.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
