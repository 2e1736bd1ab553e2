package route

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"swap-cycler/pkg/fetch"
	"swap-cycler/pkg/types"
)

var (
	eth  = types.Token{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18}
	usdc = types.Token{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	user = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

type scriptedFetcher struct {
	responses []string
	errs      []error
	urls      []string
}

func (f *scriptedFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	i := len(f.urls)
	f.urls = append(f.urls, u)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return []byte(`{"status":-1}`), nil
	}
	return []byte(f.responses[i]), nil
}

func newTestResolver(f Fetcher, opts ...Option) *Resolver {
	params := Params{
		APIURL:   "https://router.example/api/v1/quote",
		APIKey:   "key",
		Slippage: "1",
		Source:   "swap-cycler",
		ChainID:  1,
	}
	opts = append([]Option{WithRetry(DefaultAttempts, time.Millisecond)}, opts...)
	return New(f, params, opts...)
}

func TestResolveRouteSuccess(t *testing.T) {
	f := &scriptedFetcher{responses: []string{
		`{"status":1,"data":{"data":"0xabcdef","to":"0x1111111254EEB25477B68fb85Ed929f73A960582","value":"0","gasLimit":"300000"}}`,
	}}

	quote, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(2450000000000000))
	require.NoError(t, err)
	require.Len(t, f.urls, 1)
	require.Equal(t, "0xabcdef", quote.Data)
	require.Equal(t, "0x1111111254EEB25477B68fb85Ed929f73A960582", quote.To)
	require.Equal(t, int64(300000), quote.GasLimit.Int.Int64())
	require.True(t, quote.Value.IsZero())
}

func TestResolveRouteQueryParameters(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := &scriptedFetcher{responses: []string{`{"status":1,"data":{"data":"0x01","to":"0x01"}}`}}

	_, err := newTestResolver(f, WithClock(func() time.Time { return now })).
		ResolveRoute(context.Background(), usdc, eth, user, big.NewInt(5000000))
	require.NoError(t, err)

	u, err := url.Parse(f.urls[0])
	require.NoError(t, err)
	require.Equal(t, "router.example", u.Host)
	require.Equal(t, "/api/v1/quote", u.Path)

	q := u.Query()
	require.Equal(t, "1", q.Get("chainId"))
	require.Equal(t, "1700000600", q.Get("deadline"))
	require.Equal(t, "key", q.Get("apikey"))
	require.Equal(t, "1", q.Get("slippage"))
	require.Equal(t, "swap-cycler", q.Get("source"))
	require.Equal(t, usdc.Address.Hex(), q.Get("fromTokenAddress"))
	require.Equal(t, "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE", q.Get("toTokenAddress"))
	require.Equal(t, user.Hex(), q.Get("userAddr"))
	require.Equal(t, "true", q.Get("estimateGas"))
	require.Equal(t, "5000000", q.Get("fromAmount"))
}

func TestResolveRouteStatusFailedExhausts(t *testing.T) {
	f := &scriptedFetcher{}

	_, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	require.ErrorIs(t, err, ErrRoutePermanent)
	require.Len(t, f.urls, DefaultAttempts)
}

func TestResolveRouteSucceedsOnLaterAttempt(t *testing.T) {
	f := &scriptedFetcher{
		responses: []string{
			`{"status":-1}`,
			``,
			`not json`,
			`{"status":"1","data":{"data":"0xdead","to":"0x02","value":"0x10"}}`,
		},
		errs: []error{nil, fetch.ErrTimeoutOrNetwork},
	}

	quote, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, f.urls, 4)
	require.Equal(t, int64(16), quote.Value.Int.Int64())
	require.True(t, quote.GasLimit.IsZero())
}

func TestResolveRouteFetchFailuresExhaust(t *testing.T) {
	f := &scriptedFetcher{errs: []error{
		fetch.ErrTimeoutOrNetwork,
		fetch.ErrTimeoutOrNetwork,
		fetch.ErrTimeoutOrNetwork,
		fetch.ErrTimeoutOrNetwork,
		fetch.ErrTimeoutOrNetwork,
	}}

	_, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	require.ErrorIs(t, err, ErrRoutePermanent)
	require.Len(t, f.urls, 5)
}

func TestResolveRouteMissingData(t *testing.T) {
	f := &scriptedFetcher{responses: []string{`{"status":1}`}}

	_, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Len(t, f.urls, 1)
}

func TestResolveRouteWrongShapeNotRetried(t *testing.T) {
	bodies := map[string]string{
		"numeric calldata":   `{"status":1,"data":{"data":12345,"to":"0x02"}}`,
		"data not an object": `{"status":1,"data":"0xabcd"}`,
		"fractional value":   `{"status":1,"data":{"data":"0xabcd","to":"0x02","value":"1.5"}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f := &scriptedFetcher{responses: []string{body}}

			_, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
			require.ErrorIs(t, err, ErrMalformedResponse)
			require.NotErrorIs(t, err, ErrRoutePermanent)
			require.Len(t, f.urls, 1)
		})
	}
}

func TestResolveRouteTruncatedBodyRetried(t *testing.T) {
	f := &scriptedFetcher{responses: []string{
		`{"status":1,"data":{"da`,
		`{"status":1,"data":{"data":"0xabcd","to":"0x02"}}`,
	}}

	quote, err := newTestResolver(f).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, "0xabcd", quote.Data)
	require.Len(t, f.urls, 2)
}

func TestResolveRouteWaitsBetweenAttempts(t *testing.T) {
	f := &scriptedFetcher{}
	delay := 20 * time.Millisecond

	start := time.Now()
	_, err := newTestResolver(f, WithRetry(3, delay)).ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(1))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrRoutePermanent)
	require.GreaterOrEqual(t, elapsed, 2*delay)
	require.Less(t, elapsed, 3*delay+time.Second)
}

func TestResolveRouteHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &scriptedFetcher{}
	_, err := newTestResolver(f, WithRetry(5, time.Hour)).ResolveRoute(ctx, eth, usdc, user, big.NewInt(1))
	require.True(t, errors.Is(err, context.Canceled))
	require.Len(t, f.urls, 1)
}

func TestResolveRouteOverHTTP(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":-1,"msg":"busy"}`))
			return
		}
		w.Write([]byte(`{"status":1,"data":{"data":"0xabc0","to":"0x1111111254EEB25477B68fb85Ed929f73A960582","value":2450000000000000,"gasLimit":210000}}`))
	}))
	defer server.Close()

	r := New(fetch.New(), Params{APIURL: server.URL, ChainID: 1}, WithRetry(5, time.Millisecond))
	quote, err := r.ResolveRoute(context.Background(), eth, usdc, user, big.NewInt(2450000000000000))
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, "2450000000000000", quote.Value.Int.String())
	require.Equal(t, uint64(210000), quote.GasLimit.Int.Uint64())
}
