package domain

import "time"

// Tenant is an isolated company that owns users and workspaces.
// Domain, when set, routes new registrants whose email shares it;
// uniqueness is enforced by the storage layer.
type Tenant struct {
	ID        int64
	Name      string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
