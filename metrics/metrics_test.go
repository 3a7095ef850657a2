package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m := NewMetrics("registrar")

	m.ObserveCall("register", "", time.Millisecond)
	m.ObserveCall("register", "", time.Millisecond)
	m.ObserveCall("register", "NameUnavailable", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", "NameUnavailable")))

	m.SetState(3, 1, 42)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Domains))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.LastEventSeq))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("commit", "", time.Second)
		m.SetState(1, 1, 1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	srv, err := New("registrar", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Metrics.ObserveCall("commit", "", time.Millisecond)

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `registrar_operations_total{method="commit",result="ok"} 1`))
}
