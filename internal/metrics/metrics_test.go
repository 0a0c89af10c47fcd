package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Transition(models.StatusSubmitted, models.StatusUnderReview)
	m.Created(models.StatusDraft)
	m.FeeCharged(10)
	m.CoveredBySubscription()
	m.InsufficientBalance()
	m.Swept("expire", 3)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Transition(models.StatusSubmitted, models.StatusUnderReview)
	m.Transition(models.StatusSubmitted, models.StatusUnderReview)
	m.Created(models.StatusSubmitted)
	m.FeeCharged(12.5)
	m.Swept("expire", 0)
	m.Swept("reset", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("SUBMITTED", "UNDER_REVIEW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("SUBMITTED")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.feesCharged))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sweeps.WithLabelValues("reset")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweeps))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/journals/:slug/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", m.Handler())

	for _, path := range []string{"/api/journals/a/", "/api/journals/b/", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/journals/:slug/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "journal_http_requests_total")
}
