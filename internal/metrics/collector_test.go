package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector_IndependentRegistries(t *testing.T) {
	// 两个收集器使用独立 Registry，重复构建不会 panic
	c1 := NewCollector("userdata", zap.NewNop())
	c2 := NewCollector("userdata", zap.NewNop())

	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.NotSame(t, c1.Registry(), c2.Registry())
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := NewCollector("userdata", zap.NewNop())

	c.RecordHTTPRequest(http.MethodPost, "/query", 200, 5*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/query", 200, 7*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/", 404, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.httpRequestsTotal.WithLabelValues("POST", "/query", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.httpRequestsTotal.WithLabelValues("GET", "/", "404")))
}

func TestCollector_InFlight(t *testing.T) {
	c := NewCollector("userdata", zap.NewNop())

	c.IncInFlight()
	c.IncInFlight()
	assert.Equal(t, float64(2), testutil.ToFloat64(c.httpInFlight))

	c.DecInFlight()
	assert.Equal(t, float64(1), testutil.ToFloat64(c.httpInFlight))
}

func TestCollector_RecordStorageQuery(t *testing.T) {
	c := NewCollector("userdata", zap.NewNop())

	c.RecordStorageQuery("lookup", 2*time.Millisecond, nil)
	c.RecordStorageQuery("count_all", time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.storageQueriesTotal.WithLabelValues("lookup", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.storageQueriesTotal.WithLabelValues("count_all", "error")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("userdata", zap.NewNop())
	c.RecordRejected()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	c.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "userdata_http_requests_rejected_total 1")
}
