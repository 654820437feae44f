package domain

import "time"

// Role is the position a user holds within their tenant.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusBlocked  Status = "BLOCKED"
)

// ProviderCredentials is the provider name for password login.
// External providers use their own name (e.g. "google").
const ProviderCredentials = "credentials"

// AuthProvider links a user to one way of authenticating.
type AuthProvider struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
}

// User is an identity record owned by exactly one tenant for its lifetime.
type User struct {
	ID           int64
	TenantID     int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
	Providers    []AuthProvider
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can log in with credentials.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasProvider reports whether the user holds an entry for the named provider.
func (u User) HasProvider(name string) bool {
	for _, p := range u.Providers {
		if p.Provider == name {
			return true
		}
	}
	return false
}

// HasExternalProvider reports whether any linked provider is not the
// credentials entry.
func (u User) HasExternalProvider() bool {
	for _, p := range u.Providers {
		if p.Provider != ProviderCredentials {
			return true
		}
	}
	return false
}
