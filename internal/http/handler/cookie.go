package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// RefreshTokenCookie is the http-only transport for refresh
	// tokens; they never appear in a response body and page scripts
	// cannot read them.
	RefreshTokenCookie = "refresh_token"
	// AccessTokenCookie mirrors the access token for browser clients
	// that prefer cookies over the Authorization header.
	AccessTokenCookie = "access_token"
)

// CookieHelper manages the authentication cookies.
type CookieHelper struct {
	secure bool
}

// NewCookieHelper creates a cookie helper. secure should be true
// outside development so cookies only travel over TLS.
func NewCookieHelper(secure bool) *CookieHelper {
	return &CookieHelper{secure: secure}
}

// SetAuthCookies sets both token cookies.
func (h *CookieHelper) SetAuthCookies(c *gin.Context, accessToken, refreshToken string, accessMaxAge, refreshMaxAge int) {
	h.set(c, AccessTokenCookie, accessToken, accessMaxAge)
	h.set(c, RefreshTokenCookie, refreshToken, refreshMaxAge)
}

// ClearAuthCookies removes both token cookies (logout).
func (h *CookieHelper) ClearAuthCookies(c *gin.Context) {
	h.set(c, AccessTokenCookie, "", -1)
	h.set(c, RefreshTokenCookie, "", -1)
}

// RefreshToken reads the refresh token cookie off the request.
func (h *CookieHelper) RefreshToken(c *gin.Context) string {
	token, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *CookieHelper) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secure, true)
}
