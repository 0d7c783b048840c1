package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	RecordGeneration("zai/glm-4.6", "ok", 1000, 200, 0.0123)

	assert.InDelta(t, 1, testutil.ToFloat64(GenerationsTotal.WithLabelValues("zai/glm-4.6", "ok")), 1e-9)
	assert.InDelta(t, 1000, testutil.ToFloat64(TokensTotal.WithLabelValues("zai/glm-4.6", "in")), 1e-9)
	assert.InDelta(t, 200, testutil.ToFloat64(TokensTotal.WithLabelValues("zai/glm-4.6", "out")), 1e-9)
	assert.InDelta(t, 0.0123, testutil.ToFloat64(CostBRLTotal.WithLabelValues("zai/glm-4.6")), 1e-9)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	Register()
	Register()
	CalibrationsTotal.WithLabelValues("degradado").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `roteirista_calibrations_total{result="degradado"}`))
}
