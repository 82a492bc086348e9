package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextClaims is the gin context key holding the request's *Claims.
const ContextClaims = "session_claims"

// SetClaims stores validated claims on the request context.
func SetClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextClaims, claims)
}

// ClaimsFromContext returns the request's claims, or nil when anonymous.
func ClaimsFromContext(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// Cookie describes how the session token travels in a browser cookie.
type Cookie struct {
	Name   string
	Secure bool
}

// Set writes the session cookie, expiring with the token.
func (ck Cookie) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, token, maxAge, "/", "", ck.Secure, true)
}

// Clear removes the session cookie.
func (ck Cookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, "", -1, "/", "", ck.Secure, true)
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func (ck Cookie) TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie(ck.Name); err == nil {
		return v
	}
	return ""
}
