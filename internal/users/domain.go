package users

import "time"

// User is the administrative view of an account. RoleName is joined in from
// the roles table for display.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	RoleID    *int64    `json:"role_id"`
	RoleName  string    `json:"role_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filters narrows user listings.
type Filters struct {
	Search   string
	IsActive *bool
	RoleID   *int64
}

// CreateInput carries fields for administrative account creation.
type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	RoleID    *int64
}

// UpdateInput carries the mutable fields of an account. Nil pointers leave
// the column untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	IsActive  *bool
	RoleID    *int64
	ClearRole bool
}
