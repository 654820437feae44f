package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Abdullah628/workspace-notes/internal/config"
	"github.com/Abdullah628/workspace-notes/internal/domain"
	"github.com/Abdullah628/workspace-notes/internal/http/middleware"
	"github.com/Abdullah628/workspace-notes/internal/token"
)

func newGuard(opts ...token.Option) (*middleware.Auth, *token.Service) {
	cfg := config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		ResetTokenSecret:   "reset-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		ResetTokenTTL:      10 * time.Minute,
	}
	tokens := token.NewService(cfg, opts...)
	return middleware.NewAuth(tokens), tokens
}

func newRouter(guard *middleware.Auth, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", guard.Require(roles...), func(c *gin.Context) {
		identity, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}
		fromCtx, ok := middleware.IdentityFromContext(c.Request.Context())
		if !ok || fromCtx != identity {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "context identity mismatch"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":   identity.UserID,
			"tenant_id": identity.TenantID,
			"role":      identity.Role,
		})
	})
	return r
}

func TestRequireMissingToken(t *testing.T) {
	guard, _ := newGuard()
	r := newRouter(guard)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireValidBearerToken(t *testing.T) {
	guard, tokens := newGuard()
	r := newRouter(guard)

	access, err := tokens.IssueAccess(domain.User{ID: 42, TenantID: 7, Role: domain.RoleMember})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":42`)
	require.Contains(t, w.Body.String(), `"tenant_id":7`)
}

func TestRequireAccessTokenCookieFallback(t *testing.T) {
	guard, tokens := newGuard()
	r := newRouter(guard)

	access, err := tokens.IssueAccess(domain.User{ID: 42, TenantID: 7, Role: domain.RoleMember})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: access})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRejectsRefreshToken(t *testing.T) {
	guard, tokens := newGuard()
	r := newRouter(guard)

	refresh, err := tokens.IssueRefresh(42)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireExpiredToken(t *testing.T) {
	// Sign with a clock two minutes in the past so the minute-long
	// token is already stale for the live guard.
	issued := time.Now().Add(-2 * time.Minute)
	_, staleTokens := newGuard(token.WithClock(func() time.Time { return issued }))

	access, err := staleTokens.IssueAccess(domain.User{ID: 1, TenantID: 1, Role: domain.RoleMember})
	require.NoError(t, err)

	guard, _ := newGuard()
	r := newRouter(guard)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleForbidden(t *testing.T) {
	guard, tokens := newGuard()
	r := newRouter(guard, domain.RoleOwner)

	access, err := tokens.IssueAccess(domain.User{ID: 42, TenantID: 7, Role: domain.RoleMember})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleAllowed(t *testing.T) {
	guard, tokens := newGuard()
	r := newRouter(guard, domain.RoleOwner, domain.RoleMember)

	access, err := tokens.IssueAccess(domain.User{ID: 42, TenantID: 7, Role: domain.RoleMember})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
