package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersExposed(t *testing.T) {
	before := testutil.ToFloat64(RunFailuresTotal.WithLabelValues("fetch"))
	RunFailuresTotal.WithLabelValues("fetch").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RunFailuresTotal.WithLabelValues("fetch")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bordersnapper_run_failures_total")
}
