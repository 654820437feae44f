package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abdullah628/workspace-notes/internal/config"
	"github.com/Abdullah628/workspace-notes/internal/domain"
	httptransport "github.com/Abdullah628/workspace-notes/internal/http"
	"github.com/Abdullah628/workspace-notes/internal/http/handler"
	httpmiddleware "github.com/Abdullah628/workspace-notes/internal/http/middleware"
	"github.com/Abdullah628/workspace-notes/internal/password"
	"github.com/Abdullah628/workspace-notes/internal/repository"
	"github.com/Abdullah628/workspace-notes/internal/service"
	"github.com/Abdullah628/workspace-notes/internal/tenant"
	"github.com/Abdullah628/workspace-notes/internal/token"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Environment:        "development",
		ServiceName:        "identity-test",
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		ResetTokenSecret:   "reset-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		ResetTokenTTL:      10 * time.Minute,
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	tokens := token.NewService(cfg)
	auth := service.NewAuthService(
		newMemoryUserRepo(),
		tenant.NewResolver(newMemoryTenantRepo()),
		password.NewHasher(bcrypt.MinCost),
		tokens,
		zap.NewNop(),
	)

	authHandler := handler.NewAuthHandler(auth, handler.NewCookieHelper(false))
	guard := httpmiddleware.NewAuth(tokens)
	return httptransport.NewRouter(cfg, authHandler, guard, nil)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"tenant_name": "Acme",
		"name":        "Alice",
		"email":       "alice@acme.com",
		"password":    "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "password")

	w = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@acme.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginBody))
	require.NotEmpty(t, loginBody.AccessToken)

	refreshCookie := cookieByName(w.Result(), handler.RefreshTokenCookie)
	require.NotNil(t, refreshCookie)
	require.True(t, refreshCookie.HttpOnly)
	require.NotContains(t, w.Body.String(), refreshCookie.Value)

	w = doJSON(t, r, http.MethodPost, "/auth/refresh-token", nil, refreshCookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "access_token")

	w = doJSON(t, r, http.MethodPost, "/auth/logout", nil, refreshCookie)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := cookieByName(w.Result(), handler.RefreshTokenCookie)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)
}

func TestRefreshWithoutCookie(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/refresh-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	// Short password and malformed email are rejected before the
	// service runs.
	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"tenant_name": "Acme",
		"name":        "Alice",
		"email":       "not-an-email",
		"password":    "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReturnsUser(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"tenant_name": "Acme",
		"name":        "Alice",
		"email":       "alice@acme.com",
		"password":    "password123",
	})
	w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@acme.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginBody))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginBody.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alice@acme.com")
}

func TestExternalCallbackIssuesSession(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/external/callback", gin.H{
		"provider":    "google",
		"provider_id": "g-123",
		"email":       "eve@startup.io",
		"name":        "Eve",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "access_token")
	require.NotNil(t, cookieByName(w.Result(), handler.RefreshTokenCookie))
}

func TestChangePasswordFlow(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"tenant_name": "Acme",
		"name":        "Alice",
		"email":       "alice@acme.com",
		"password":    "password123",
	})
	w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@acme.com",
		"password": "password123",
	})
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginBody))

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(gin.H{
		"old_password": "password123",
		"new_password": "newpassword1",
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+loginBody.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@acme.com",
		"password": "newpassword1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

// In-memory repositories mirroring the storage uniqueness rules.

type memoryUserRepo struct {
	mu      sync.Mutex
	byID    map[int64]domain.User
	byEmail map[string]int64
	nextID  int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.byID[id], nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return domain.User{}, repository.ErrDuplicate
	}
	m.nextID++
	user.ID = m.nextID
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user, nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return domain.User{}, repository.ErrNotFound
	}
	m.byID[user.ID] = user
	return user, nil
}

type memoryTenantRepo struct {
	mu       sync.Mutex
	byDomain map[string]domain.Tenant
	nextID   int64
}

func newMemoryTenantRepo() *memoryTenantRepo {
	return &memoryTenantRepo{byDomain: make(map[string]domain.Tenant)}
}

func (m *memoryTenantRepo) FindByDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.byDomain[emailDomain]
	if !ok {
		return domain.Tenant{}, repository.ErrNotFound
	}
	return tenant, nil
}

func (m *memoryTenantRepo) FindByID(ctx context.Context, id int64) (domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tenant := range m.byDomain {
		if tenant.ID == id {
			return tenant, nil
		}
	}
	return domain.Tenant{}, repository.ErrNotFound
}

func (m *memoryTenantRepo) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byDomain[tenant.Domain]; exists {
		return domain.Tenant{}, repository.ErrDuplicate
	}
	m.nextID++
	tenant.ID = m.nextID
	m.byDomain[tenant.Domain] = tenant
	return tenant, nil
}
