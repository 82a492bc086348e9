package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/internal/authz"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// GateOutcome is the route gate's verdict for a path.
type GateOutcome int

const (
	// GatePass lets the request through to its handler.
	GatePass GateOutcome = iota
	// GateSignIn sends an anonymous caller to sign in.
	GateSignIn
	// GateDenied rejects a signed-in caller without the required role.
	GateDenied
	// GateHome sends STAFF, who may view but not manage events, back to the event list.
	GateHome
)

var eventEditPath = regexp.MustCompile(`^/events/[^/]+/edit$`)

// EvaluateRoute applies the coarse, role-only path rules. It reads nothing but the
// actor's role; the handler's own decision remains authoritative.
func EvaluateRoute(path string, actor *authz.Actor) GateOutcome {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	switch {
	case path == "/users" || strings.HasPrefix(path, "/users/"):
		if actor == nil {
			return GateSignIn
		}
		if actor.Role != models.RoleAdmin {
			return GateDenied
		}
	case path == "/my-events" || path == "/events/create" || eventEditPath.MatchString(path):
		if actor == nil {
			return GateSignIn
		}
		if actor.Role == models.RoleStaff {
			return GateHome
		}
	}
	return GatePass
}

// RouteGate enforces EvaluateRoute. Browsers are redirected (to signInPath, or to
// homePath for GateHome); API clients get 401/403 JSON. Run after Session.
func RouteGate(signInPath, homePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := EvaluateRoute(c.Request.URL.Path, CurrentActor(c))
		if outcome == GatePass {
			c.Next()
			return
		}
		if wantsHTML(c) {
			target := signInPath
			if outcome == GateHome {
				target = homePath
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		if outcome == GateSignIn {
			response.Unauthorized(c, "Unauthorized")
		} else {
			response.Forbidden(c, "Forbidden")
		}
		c.Abort()
	}
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
