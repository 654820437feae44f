package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Abdullah628/workspace-notes/internal/domain"
	"github.com/Abdullah628/workspace-notes/internal/token"
)

const identityKey = "identity"

type identityContextKey struct{}

// AccessTokenCookie is the fallback transport when no Authorization
// header is present.
const AccessTokenCookie = "access_token"

// Identity is the verified caller attached to every authorized
// request. Downstream resource services treat it as authoritative and
// must not re-derive identity from any other request field.
type Identity struct {
	UserID   int64
	TenantID int64
	Role     domain.Role
}

// Auth verifies access tokens before requests reach resource handlers.
type Auth struct {
	Tokens *token.Service
}

// NewAuth creates the access guard.
func NewAuth(tokens *token.Service) *Auth {
	return &Auth{Tokens: tokens}
}

// Require returns a handler that rejects requests without a valid
// access token and, when roles are given, without one of those roles.
// Claims are trusted as-is; no database lookup happens here.
func (m *Auth) Require(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "access token required"})
			return
		}

		claims, err := m.Tokens.Verify(token.KindAccess, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired access token"})
			return
		}

		identity := Identity{
			UserID:   claims.UserID,
			TenantID: claims.TenantID,
			Role:     claims.Role,
		}

		if len(roles) > 0 && !roleAllowed(identity.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "insufficient role"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), identityContextKey{}, identity)
		c.Request = c.Request.WithContext(ctx)
		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity exposes the verified identity to gin handlers.
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

// IdentityFromContext extracts the verified identity from a standard
// context, for collaborators that only see the request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	value := ctx.Value(identityContextKey{})
	if value == nil {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
