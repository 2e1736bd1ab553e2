package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Swaps.WithLabelValues("ETH->USDC", "success"))
	Swaps.WithLabelValues("ETH->USDC", "success").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Swaps.WithLabelValues("ETH->USDC", "success")))
}

func TestServerExposesMetrics(t *testing.T) {
	RouteAttempts.WithLabelValues("success").Inc()

	s := NewServer(":0")
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, string(body), "swapcycler_route_attempts_total")
}
