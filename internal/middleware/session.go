package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/authz"
)

// Session resolves the request's identity from a bearer token or session cookie.
// It never rejects a request: anything short of a valid, unrevoked token leaves the
// request anonymous, and handlers decide what anonymous callers may do.
// revocations may be nil.
func Session(jwtService *auth.JWTService, cookie auth.Cookie, revocations *auth.Revocations, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookie.TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			c.Next()
			return
		}
		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("revocation check failed", zap.Error(err))
				c.Next()
				return
			}
			if revoked {
				c.Next()
				return
			}
		}
		auth.SetClaims(c, claims)
		c.Next()
	}
}

// CurrentActor returns the authenticated actor, or nil when anonymous.
func CurrentActor(c *gin.Context) *authz.Actor {
	claims := auth.ClaimsFromContext(c)
	if claims == nil {
		return nil
	}
	return claims.Actor()
}
