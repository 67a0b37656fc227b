package users

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

// Repository provides PostgreSQL backed persistence for user administration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const baseSelect = `
	SELECT u.id, u.email, u.first_name, u.last_name, u.is_active,
	       u.role_id, COALESCE(r.name, ''), u.created_at, u.updated_at
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

// List returns a page of users matching the filters plus a flag indicating
// whether more rows follow. Search matches email and names case-insensitively.
func (r *Repository) List(ctx context.Context, f Filters, limit, offset int) ([]User, bool, error) {
	where, args := buildWhere(f)
	args = append(args, limit+1, offset)
	query := fmt.Sprintf(`%s%s ORDER BY u.email ASC LIMIT $%d OFFSET $%d`,
		baseSelect, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, false, err
		}
		out = append(out, *u)
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

// Get fetches a user by primary key.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, baseSelect+` WHERE u.id = $1`, id)
	return scanUser(row)
}

// Create inserts an account with the provided password hash.
func (r *Repository) Create(ctx context.Context, input CreateInput, passwordHash string) (*User, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, password_hash, is_active, role_id)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id`,
		input.Email, input.FirstName, input.LastName, passwordHash, input.RoleID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update applies the non-nil fields of input. Returns the refreshed row.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (*User, error) {
	sets := make([]string, 0, 5)
	args := []any{id}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.FirstName != nil {
		set("first_name", *input.FirstName)
	}
	if input.LastName != nil {
		set("last_name", *input.LastName)
	}
	if input.IsActive != nil {
		set("is_active", *input.IsActive)
	}
	if input.ClearRole {
		sets = append(sets, "role_id = NULL")
	} else if input.RoleID != nil {
		set("role_id", *input.RoleID)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $1`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Deactivate disables the account and bumps token_version so outstanding
// tokens stop working immediately.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET is_active = FALSE, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPassword stores a new hash and bumps token_version.
func (r *Repository) SetPassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func buildWhere(f Filters) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Search != "" {
		add(`(u.email ILIKE $%[1]d OR u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d)`,
			"%"+f.Search+"%")
	}
	if f.IsActive != nil {
		add(`u.is_active = $%d`, *f.IsActive)
	}
	if f.RoleID != nil {
		add(`u.role_id = $%d`, *f.RoleID)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsActive,
		&u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
