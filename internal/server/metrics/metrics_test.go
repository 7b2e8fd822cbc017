package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResult_Counts(t *testing.T) {
	m := New()

	m.AuthResult("signup", OutcomeOK)
	m.AuthResult("signup", OutcomeOK)
	m.AuthResult("signin", OutcomeUnauthorized)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authResults.WithLabelValues("signup", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authResults.WithLabelValues("signin", OutcomeUnauthorized)))
}

func TestHashStarted_TracksInFlight(t *testing.T) {
	m := New()

	done := m.HashStarted("hash")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hashInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.hashInFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.hashDuration))
}

func TestHTTPRequest_Labels(t *testing.T) {
	m := New()

	m.HTTPRequest(http.MethodPost, "/api/signin", http.StatusForbidden, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("POST", "/api/signin", "403")))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.AuthResult("signup", OutcomeOK)
	m.HashStarted("verify")()
	m.HTTPRequest("GET", "/", 200, time.Second)
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.AuthResult("signin", OutcomeOK)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chat_auth_results_total{op="signin",outcome="ok"} 1`)
}
