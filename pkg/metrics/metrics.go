package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EndpointChecks tracks liveness checks against the RPC endpoint
	EndpointChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapcycler_endpoint_checks_total",
			Help: "Total number of RPC liveness checks",
		},
		[]string{"network", "outcome"},
	)

	// RouteAttempts tracks calls to the routing API
	RouteAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapcycler_route_attempts_total",
			Help: "Total number of routing API attempts",
		},
		[]string{"outcome"},
	)

	// Approvals tracks allowance checks by result
	Approvals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapcycler_approvals_total",
			Help: "Total number of allowance checks",
		},
		[]string{"result"},
	)

	// Swaps tracks executed swap legs
	Swaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapcycler_swaps_total",
			Help: "Total number of swap legs by result",
		},
		[]string{"pair", "result"},
	)

	// SwapLatency tracks route + submit + confirm time of a leg
	SwapLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapcycler_swap_duration_seconds",
			Help:    "Duration of a swap leg in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"pair"},
	)
)

// Server exposes /metrics over HTTP
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start blocks serving requests until Stop is called
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
