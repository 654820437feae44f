// Package repository defines persistence contracts for identity
// records. Implementations map their storage errors onto the two
// sentinels below so callers never depend on driver types.
package repository

import (
	"context"
	"errors"

	"github.com/Abdullah628/workspace-notes/internal/domain"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a write violates a uniqueness
	// constraint (duplicate email or tenant domain).
	ErrDuplicate = errors.New("repository: duplicate")
)

// UserRepository persists identity records. Email lookups are global:
// an email identifies at most one account across all tenants.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
}

// TenantRepository persists tenants. Domain lookups are exact and
// case-insensitive; callers pass domains already lowercased.
type TenantRepository interface {
	FindByDomain(ctx context.Context, emailDomain string) (domain.Tenant, error)
	FindByID(ctx context.Context, id int64) (domain.Tenant, error)
	Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
}
