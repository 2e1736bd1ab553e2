package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swap-cycler/pkg/metrics"
	"swap-cycler/pkg/types"
)

const (
	// DefaultAttempts is how many times a route is requested before giving up
	DefaultAttempts = 5
	// DefaultRetryDelay is the wait between two attempts
	DefaultRetryDelay = 2 * time.Second

	deadlineWindow = 600 * time.Second
)

var (
	// ErrRoutePermanent is returned once every attempt failed
	ErrRoutePermanent = errors.New("no route after retries")
	// ErrMalformedResponse is returned for well-formed JSON that does not carry a usable quote.
	// It is not retried.
	ErrMalformedResponse = errors.New("malformed route response")

	errStatusFailed = errors.New("routing api returned status -1")
)

// Fetcher performs one GET. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Params are the fixed parts of every route query
type Params struct {
	APIURL   string
	APIKey   string
	Slippage string
	Source   string
	ChainID  int64
}

// Resolver asks the aggregator API for swap calldata
type Resolver struct {
	fetcher Fetcher
	params  Params

	attempts   int
	retryDelay time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithRetry overrides the retry policy
func WithRetry(attempts int, delay time.Duration) Option {
	return func(r *Resolver) {
		r.attempts = attempts
		r.retryDelay = delay
	}
}

// WithClock overrides time.Now for the deadline parameter
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// New creates a Resolver
func New(fetcher Fetcher, params Params, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:    fetcher,
		params:     params,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.attempts < 1 {
		r.attempts = 1
	}
	return r
}

// ResolveRoute returns the quote for swapping amount of from into to on behalf of user
func (r *Resolver) ResolveRoute(ctx context.Context, from, to types.Token, user common.Address, amount *big.Int) (*types.RouteQuote, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		// the deadline moves with every attempt
		reqURL, err := r.buildURL(from, to, user, amount)
		if err != nil {
			return nil, err
		}

		resp, err := r.attempt(ctx, reqURL)
		if errors.Is(err, ErrMalformedResponse) {
			metrics.RouteAttempts.WithLabelValues("malformed").Inc()
			return nil, err
		}
		if err == nil {
			metrics.RouteAttempts.WithLabelValues("success").Inc()
			if resp.Data == nil {
				return nil, fmt.Errorf("%w: no data", ErrMalformedResponse)
			}
			r.log.Debug("Route resolved", "from", from.Symbol, "to", to.Symbol, "attempt", attempt, "router", resp.Data.To)
			return resp.Data, nil
		}

		metrics.RouteAttempts.WithLabelValues("failure").Inc()
		lastErr = err
		r.log.Warn("Route attempt failed",
			"from", from.Symbol,
			"to", to.Symbol,
			"attempt", attempt,
			"of", r.attempts,
			"error", err,
		)

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}

	return nil, fmt.Errorf("%w: %s->%s after %d attempts: %v", ErrRoutePermanent, from.Symbol, to.Symbol, r.attempts, lastErr)
}

func (r *Resolver) attempt(ctx context.Context, reqURL string) (*types.RouteResponse, error) {
	body, err := r.fetcher.Fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp types.RouteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if resp.Failed() {
			return nil, errStatusFailed
		}
		// valid JSON of the wrong shape will not improve on retry
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) || errors.Is(err, types.ErrInvalidQuantity) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	if resp.Failed() {
		return nil, errStatusFailed
	}
	return &resp, nil
}

func (r *Resolver) buildURL(from, to types.Token, user common.Address, amount *big.Int) (string, error) {
	u, err := url.Parse(r.params.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid router url: %w", err)
	}

	q := u.Query()
	q.Set("chainId", strconv.FormatInt(r.params.ChainID, 10))
	q.Set("deadline", strconv.FormatInt(r.now().Add(deadlineWindow).Unix(), 10))
	q.Set("apikey", r.params.APIKey)
	q.Set("slippage", r.params.Slippage)
	q.Set("source", r.params.Source)
	q.Set("toTokenAddress", to.Address.Hex())
	q.Set("fromTokenAddress", from.Address.Hex())
	q.Set("userAddr", user.Hex())
	q.Set("estimateGas", "true")
	q.Set("fromAmount", amount.String())
	u.RawQuery = q.Encode()

	return u.String(), nil
}
