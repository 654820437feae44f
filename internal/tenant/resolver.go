// Package tenant decides which company a registering user belongs to.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Abdullah628/workspace-notes/internal/apperror"
	"github.com/Abdullah628/workspace-notes/internal/domain"
	"github.com/Abdullah628/workspace-notes/internal/repository"
)

// Resolver routes registrants onto tenants by email domain.
type Resolver struct {
	repo repository.TenantRepository
}

// NewResolver creates a tenant resolver.
func NewResolver(repo repository.TenantRepository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveOrCreate returns the tenant for the email's domain and the
// role the registrant takes in it. An existing tenant admits the user
// as MEMBER. An unseen domain creates a tenant named proposedName and
// makes the user its OWNER; proposedName must be non-empty in that
// case. Two concurrent first registrations for one domain race on the
// storage uniqueness constraint: the loser retries as a lookup and
// joins as MEMBER.
func (r *Resolver) ResolveOrCreate(ctx context.Context, email, proposedName string) (domain.Tenant, domain.Role, error) {
	emailDomain, err := DomainOf(email)
	if err != nil {
		return domain.Tenant{}, "", err
	}

	existing, err := r.repo.FindByDomain(ctx, emailDomain)
	if err == nil {
		return existing, domain.RoleMember, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Tenant{}, "", fmt.Errorf("look up tenant: %w", err)
	}

	name := strings.TrimSpace(proposedName)
	if name == "" {
		return domain.Tenant{}, "", apperror.Validation("tenant name required for first registration with this email domain")
	}

	created, err := r.repo.Create(ctx, domain.Tenant{Name: name, Domain: emailDomain})
	if err == nil {
		zap.L().Info("tenant created",
			zap.Int64("tenant_id", created.ID),
			zap.String("domain", emailDomain),
		)
		return created, domain.RoleOwner, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return domain.Tenant{}, "", fmt.Errorf("create tenant: %w", err)
	}

	// Lost the creation race; the tenant exists now.
	existing, err = r.repo.FindByDomain(ctx, emailDomain)
	if err != nil {
		return domain.Tenant{}, "", fmt.Errorf("look up tenant after create conflict: %w", err)
	}
	return existing, domain.RoleMember, nil
}

// DomainOf extracts the lowercased domain part of an email address.
func DomainOf(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", apperror.Validation("invalid email address")
	}
	return strings.ToLower(email[at+1:]), nil
}
