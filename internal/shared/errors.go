package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a malformed, expired, revoked or superseded token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrLoginThrottled indicates too many failed login attempts for the account.
	ErrLoginThrottled = errors.New("too many failed login attempts")
	// ErrRoleAssigned indicates an attempt to delete a role still assigned to users.
	ErrRoleAssigned = errors.New("role is assigned to one or more users")
)
