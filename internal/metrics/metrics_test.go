package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.UnlistedMaterial.WithLabelValues("other").Inc()
	m.CacheRequests.WithLabelValues("home", "hit").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.UnlistedMaterial.WithLabelValues("other")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `recycling_unlisted_material_total{material="other"} 1`)
	assert.Contains(t, body, `recycling_cache_requests_total{result="hit",view="home"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.UnlistedMaterial.WithLabelValues("other").Inc()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.UnlistedMaterial.WithLabelValues("other")))
}
