package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"swap-cycler/pkg/metrics"
)

const (
	// DefaultAttempts is the number of liveness checks before giving up on a busy node
	DefaultAttempts = 3
	// DefaultRetryDelay is the wait between two busy checks
	DefaultRetryDelay = 2 * time.Second

	// JSON-RPC "internal error"; nodes answer with it when they are overloaded
	busyErrorCode = -32603
)

var (
	// ErrBusy marks a liveness check failure caused by an overloaded node
	ErrBusy = errors.New("endpoint busy")
	// ErrEndpointExhausted is returned when the node stayed busy for every attempt
	ErrEndpointExhausted = errors.New("endpoint still busy after retries")
)

// Client is the chain handle shared by every on-chain read and write.
// *ethclient.Client satisfies it.
type Client interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Dialer opens a Client for url
type Dialer func(ctx context.Context, url string) (Client, error)

// Guard owns the connection to the primary RPC URL and checks it is alive before handing it out
type Guard struct {
	urls    []string
	chainID int64
	network string
	client  Client

	attempts   int
	retryDelay time.Duration
	dial       Dialer
	log        *slog.Logger
}

// Option configures a Guard
type Option func(*Guard)

// WithRetry overrides the busy retry policy
func WithRetry(attempts int, delay time.Duration) Option {
	return func(g *Guard) {
		g.attempts = attempts
		g.retryDelay = delay
	}
}

// WithDialer replaces ethclient dialing, mostly for tests
func WithDialer(d Dialer) Option {
	return func(g *Guard) {
		g.dial = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		g.log = l
	}
}

func dialEthclient(ctx context.Context, url string) (Client, error) {
	return ethclient.DialContext(ctx, url)
}

// New connects to the first of urls. The remaining URLs are kept for reference only.
func New(ctx context.Context, urls []string, chainID int64, network string, opts ...Option) (*Guard, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no RPC URL configured for network %s", network)
	}

	g := &Guard{
		urls:       append([]string(nil), urls...),
		chainID:    chainID,
		network:    network,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		dial:       dialEthclient,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.attempts < 1 {
		g.attempts = 1
	}

	client, err := g.dial(ctx, g.urls[0])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	g.client = client

	return g, nil
}

// Acquire checks the node and returns the shared client once it answers.
// Busy nodes are retried; any other failure is returned at once.
func (g *Guard) Acquire(ctx context.Context) (Client, error) {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		height, err := g.client.BlockNumber(ctx)
		if err == nil {
			metrics.EndpointChecks.WithLabelValues(g.network, "ok").Inc()
			g.log.Debug("Endpoint alive", "network", g.network, "block", height)
			return g.client, nil
		}

		if !IsBusy(err) {
			metrics.EndpointChecks.WithLabelValues(g.network, "error").Inc()
			return nil, fmt.Errorf("endpoint %s unavailable: %w", g.network, err)
		}

		metrics.EndpointChecks.WithLabelValues(g.network, "busy").Inc()
		g.log.Warn("Endpoint busy, retrying",
			"network", g.network, "attempt", attempt, "max", g.attempts, "error", err)

		if attempt == g.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.retryDelay):
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrEndpointExhausted, g.network, g.attempts)
}

// VerifyChain checks the node serves the configured chain id
func (g *Guard) VerifyChain(ctx context.Context) error {
	client, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	if id.Cmp(big.NewInt(g.chainID)) != 0 {
		return fmt.Errorf("endpoint serves chain %s, expected %d", id, g.chainID)
	}
	return nil
}

// IsBusy reports whether err is the node-busy signal: a JSON-RPC internal error
func IsBusy(err error) bool {
	if errors.Is(err, ErrBusy) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == busyErrorCode
}

// ChainID returns the configured chain id
func (g *Guard) ChainID() int64 {
	return g.chainID
}

// Network returns the network label
func (g *Guard) Network() string {
	return g.network
}

// URL returns the primary endpoint URL
func (g *Guard) URL() string {
	return g.urls[0]
}

// Close closes the underlying connection
func (g *Guard) Close() {
	if g.client != nil {
		g.client.Close()
	}
}
