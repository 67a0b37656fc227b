package auth

import "time"

// User represents a user account.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsActive     bool
	RoleID       *int64
	RoleName     string
	// TokenVersion is embedded in every issued token; bumping it
	// invalidates all outstanding tokens for the account at once.
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenPair carries one access and one refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
