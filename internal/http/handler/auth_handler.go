package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Abdullah628/workspace-notes/internal/apperror"
	"github.com/Abdullah628/workspace-notes/internal/domain"
	"github.com/Abdullah628/workspace-notes/internal/http/middleware"
	"github.com/Abdullah628/workspace-notes/internal/service"
)

// AuthHandler exposes the authentication flows over HTTP.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies *CookieHelper
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cookies *CookieHelper) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

// UserView is the user shape returned to callers. The password hash
// never leaves the service.
type UserView struct {
	ID        int64                 `json:"id"`
	TenantID  int64                 `json:"tenant_id"`
	Name      string                `json:"name"`
	Email     string                `json:"email"`
	Role      domain.Role           `json:"role"`
	Status    domain.Status         `json:"status"`
	Providers []domain.AuthProvider `json:"providers"`
}

func newUserView(user domain.User) UserView {
	return UserView{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		Providers: user.Providers,
	}
}

// RegisterRequest is the registration payload. Role and tenant id are
// deliberately absent: they are derived, never caller-supplied.
type RegisterRequest struct {
	TenantName string `json:"tenant_name"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
}

// Register creates a user and its tenant when the email domain is new.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		TenantName: req.TenantName,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserView(user)})
}

// LoginRequest is the credentials login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates credentials and issues the token pair. The
// refresh token rides an http-only cookie; the access token is also
// returned in the body for non-browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.issueSession(c, user, http.StatusOK)
}

// ExternalCallbackRequest is the verified identity tuple posted by the
// provider integration once its handshake has succeeded. This core
// never talks to the provider itself.
type ExternalCallbackRequest struct {
	Provider   string `json:"provider" binding:"required"`
	ProviderID string `json:"provider_id" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
}

// ExternalCallback logs in (or registers) a user from an external
// provider identity.
func (h *AuthHandler) ExternalCallback(c *gin.Context) {
	var req ExternalCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.Auth.ExternalLogin(c.Request.Context(), service.ExternalProfile{
		Provider:   req.Provider,
		ProviderID: req.ProviderID,
		Email:      req.Email,
		Name:       req.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.issueSession(c, user, http.StatusOK)
}

// Refresh rotates the refresh token cookie into a fresh access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh := h.Cookies.RefreshToken(c)
	if refresh == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "refresh token required"})
		return
	}

	access, err := h.Auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "Bearer"})
}

// Logout clears the client-held tokens. Tokens are stateless, so
// nothing changes server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.ClearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePasswordRequest swaps an existing password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword updates the authenticated user's password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "access token required"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	if err := h.Auth.ChangePassword(c.Request.Context(), identity.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// SetPasswordRequest claims credentials login for an external account.
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// SetPassword sets a password on an account created via an external
// provider.
func (h *AuthHandler) SetPassword(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "access token required"})
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	if err := h.Auth.SetPassword(c.Request.Context(), identity.UserID, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password set"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "access token required"})
		return
	}

	user, err := h.Auth.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserView(user)})
}

func (h *AuthHandler) issueSession(c *gin.Context, user domain.User, status int) {
	pair, err := h.Auth.IssueTokens(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	h.Cookies.SetAuthCookies(c,
		pair.AccessToken,
		pair.RefreshToken,
		int(pair.ExpiresIn),
		int(h.Auth.RefreshTTLSeconds()),
	)

	c.JSON(status, gin.H{
		"access_token": pair.AccessToken,
		"token_type":   pair.TokenType,
		"expires_in":   pair.ExpiresIn,
		"user":         newUserView(user),
	})
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.FromError(err); ok {
		c.JSON(appErr.Status, gin.H{"error": appErr.Code, "message": appErr.Message})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
}
