package brokerage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

// Repository provides PostgreSQL backed persistence for clients and assets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, cuit, email, status, created_at, updated_at`

// ListClients returns a page of clients plus a has-more flag.
func (r *Repository) ListClients(ctx context.Context, f ClientFilters, limit, offset int) ([]Client, bool, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		clauses = append(clauses, fmt.Sprintf(`(name ILIKE $%[1]d OR cuit ILIKE $%[1]d)`, len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit+1, offset)

	query := fmt.Sprintf(`SELECT %s FROM clients%s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]Client, 0, limit)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CUIT, &c.Email, &c.Status,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, false, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasNext := len(out) > limit
	if hasNext {
		out = out[:limit]
	}
	return out, hasNext, nil
}

// GetClient fetches a client by primary key.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

// CreateClient inserts a client. CUIT uniqueness is enforced by the schema.
func (r *Repository) CreateClient(ctx context.Context, c *Client) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, cuit, email, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+clientColumns,
		c.Name, c.CUIT, c.Email, c.Status)
	created, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// UpdateClient changes name and email. CUIT is immutable after creation.
func (r *Repository) UpdateClient(ctx context.Context, id int64, name, email string) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns, id, name, email)
	return scanClient(row)
}

// SetClientStatus flips a client between ACTIVE and BLOCKED.
func (r *Repository) SetClientStatus(ctx context.Context, id int64, status string) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns, id, status)
	return scanClient(row)
}

const assetColumns = `id, code, name, category, is_active, created_at, updated_at`

// ListAssets returns a page of assets. Inactive assets are excluded unless
// the filter asks for them.
func (r *Repository) ListAssets(ctx context.Context, f AssetFilters, limit, offset int) ([]Asset, bool, error) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if !f.IncludeInactive {
		clauses = append(clauses, `is_active = TRUE`)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		clauses = append(clauses, fmt.Sprintf(`(code ILIKE $%[1]d OR name ILIKE $%[1]d)`, len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clauses = append(clauses, fmt.Sprintf(`category = $%d`, len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit+1, offset)

	query := fmt.Sprintf(`SELECT %s FROM assets%s ORDER BY code ASC LIMIT $%d OFFSET $%d`,
		assetColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]Asset, 0, limit)
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Category, &a.IsActive,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, false, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasNext := len(out) > limit
	if hasNext {
		out = out[:limit]
	}
	return out, hasNext, nil
}

// GetAsset fetches an asset by primary key.
func (r *Repository) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	return scanAsset(row)
}

// CreateAsset inserts an asset. Code uniqueness is enforced by the schema.
func (r *Repository) CreateAsset(ctx context.Context, a *Asset) (*Asset, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assets (code, name, category, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+assetColumns,
		a.Code, a.Name, a.Category, a.IsActive)
	created, err := scanAsset(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// UpdateAsset changes name and category. Code is immutable after creation.
func (r *Repository) UpdateAsset(ctx context.Context, id int64, name, category string) (*Asset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assets SET name = $2, category = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+assetColumns, id, name, category)
	return scanAsset(row)
}

// SetAssetActive toggles the asset's availability.
func (r *Repository) SetAssetActive(ctx context.Context, id int64, active bool) (*Asset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assets SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+assetColumns, id, active)
	return scanAsset(row)
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.CUIT, &c.Email, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanAsset(row pgx.Row) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Category, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
