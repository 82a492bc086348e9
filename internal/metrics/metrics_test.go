package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aura-events/backend/internal/authz"
)

func TestMetrics_MiddlewareAndDecisions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/events/:id", func(c *gin.Context) {
		ObserveDecision(c, authz.Decide(nil, authz.ActionDelete, authz.Resource{Kind: authz.KindEvent}))
		c.Status(http.StatusUnauthorized)
	})
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/123", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/events/:id", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("event", "delete", "unauthenticated")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "events_authz_decisions_total")
}

func TestObserveDecision_WithoutMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotPanics(t, func() {
		ObserveDecision(c, authz.Decision{})
	})
}
