package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/internal/authz"
	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/pkg/response"
)

// Allow records d and, when it denies, writes 401 for a missing identity or 403
// otherwise. Handlers return immediately when Allow reports false.
func Allow(c *gin.Context, d authz.Decision) bool {
	metrics.ObserveDecision(c, d)
	if d.Allowed {
		return true
	}
	if d.Unauthenticated() {
		response.Unauthorized(c, d.Message())
	} else {
		response.Forbidden(c, d.Message())
	}
	return false
}
