package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullah628/workspace-notes/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository   = (*PostgresUserRepo)(nil)
	_ TenantRepository = (*PostgresTenantRepo)(nil)
)

const uniqueViolationCode = "23505"

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const selectUserSQL = `SELECT id, tenant_id, name, email, password_hash, role, status, providers, created_at, updated_at FROM users`

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by email: %w", mapError(err))
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by id: %w", mapError(err))
	}
	return user, nil
}

const insertUserSQL = `INSERT INTO users (tenant_id, name, email, password_hash, role, status, providers)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, tenant_id, name, email, password_hash, role, status, providers, created_at, updated_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	providers, err := json.Marshal(user.Providers)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode providers: %w", err)
	}

	row := r.db.QueryRow(ctx, insertUserSQL,
		user.TenantID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		providers,
	)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	return created, nil
}

const updateUserSQL = `UPDATE users
SET name = $2, password_hash = $3, role = $4, status = $5, providers = $6, updated_at = NOW()
WHERE id = $1
RETURNING id, tenant_id, name, email, password_hash, role, status, providers, created_at, updated_at`

func (r *PostgresUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	providers, err := json.Marshal(user.Providers)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode providers: %w", err)
	}

	row := r.db.QueryRow(ctx, updateUserSQL,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Status,
		providers,
	)
	updated, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", mapError(err))
	}
	return updated, nil
}

// PostgresTenantRepo implements TenantRepository on pgx.
type PostgresTenantRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTenantRepo(pool *pgxpool.Pool) *PostgresTenantRepo {
	return &PostgresTenantRepo{db: pool}
}

const selectTenantSQL = `SELECT id, name, domain, created_at, updated_at FROM tenants`

func (r *PostgresTenantRepo) FindByDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx, selectTenantSQL+` WHERE domain = $1`, emailDomain)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("find tenant by domain: %w", mapError(err))
	}
	return tenant, nil
}

func (r *PostgresTenantRepo) FindByID(ctx context.Context, id int64) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx, selectTenantSQL+` WHERE id = $1`, id)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("find tenant by id: %w", mapError(err))
	}
	return tenant, nil
}

const insertTenantSQL = `INSERT INTO tenants (name, domain)
VALUES ($1, $2)
RETURNING id, name, domain, created_at, updated_at`

func (r *PostgresTenantRepo) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx, insertTenantSQL, tenant.Name, tenant.Domain)
	created, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("create tenant: %w", mapError(err))
	}
	return created, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user      domain.User
		providers []byte
	)
	if err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&providers,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return domain.User{}, err
	}
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &user.Providers); err != nil {
			return domain.User{}, fmt.Errorf("decode providers: %w", err)
		}
	}
	return user, nil
}

func scanTenant(row pgx.Row) (domain.Tenant, error) {
	var tenant domain.Tenant
	if err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Domain,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

// mapError folds driver errors onto the repository sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrDuplicate
	}
	return err
}
