package brokerage

import "time"

// Client statuses. BLOCKED clients stay on file but are excluded from
// operational flows.
const (
	ClientStatusActive  = "ACTIVE"
	ClientStatusBlocked = "BLOCKED"
)

// Client is a brokerage customer identified by CUIT.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CUIT      string    `json:"cuit"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset is a tradeable instrument. Inactive assets are kept for historical
// references but hidden from default listings.
type Asset struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientFilters narrows client listings.
type ClientFilters struct {
	Search string
	Status string
}

// AssetFilters narrows asset listings. IncludeInactive widens the default
// active-only view.
type AssetFilters struct {
	Search          string
	Category        string
	IncludeInactive bool
}
