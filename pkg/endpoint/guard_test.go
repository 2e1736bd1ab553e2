package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

// fakeClient answers BlockNumber from a script of errors; nil means success
type fakeClient struct {
	Client
	script  []error
	calls   int
	callAt  []time.Time
	chainID int64
	closed  bool
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	f.callAt = append(f.callAt, time.Now())
	i := f.calls
	f.calls++
	if i < len(f.script) && f.script[i] != nil {
		return 0, f.script[i]
	}
	return 100, nil
}

func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeClient) Close() { f.closed = true }

func newTestGuard(t *testing.T, fc *fakeClient, delay time.Duration) *Guard {
	t.Helper()
	g, err := New(context.Background(), []string{"http://primary", "http://secondary"}, 1, "testnet",
		WithRetry(DefaultAttempts, delay),
		WithDialer(func(ctx context.Context, url string) (Client, error) {
			require.Equal(t, "http://primary", url)
			return fc, nil
		}))
	require.NoError(t, err)
	return g
}

func busy() error { return &rpcError{code: -32603, msg: "internal error"} }

func TestAcquireSucceedsFirstTime(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGuard(t, fc, time.Millisecond)

	c, err := g.Acquire(context.Background())
	require.NoError(t, err)
	require.Same(t, fc, c)
	require.Equal(t, 1, fc.calls)
}

func TestAcquireRetriesBusyThenSucceeds(t *testing.T) {
	fc := &fakeClient{script: []error{busy(), busy(), nil}}
	g := newTestGuard(t, fc, 20*time.Millisecond)

	c, err := g.Acquire(context.Background())
	require.NoError(t, err)
	require.Same(t, fc, c)
	require.Equal(t, 3, fc.calls)
	require.GreaterOrEqual(t, fc.callAt[1].Sub(fc.callAt[0]), 20*time.Millisecond)
	require.GreaterOrEqual(t, fc.callAt[2].Sub(fc.callAt[1]), 20*time.Millisecond)
}

func TestAcquireExhaustsAfterThreeBusy(t *testing.T) {
	fc := &fakeClient{script: []error{busy(), busy(), busy(), nil}}
	g := newTestGuard(t, fc, time.Millisecond)

	_, err := g.Acquire(context.Background())
	require.ErrorIs(t, err, ErrEndpointExhausted)
	require.Equal(t, 3, fc.calls)
}

func TestAcquireNonBusyFailsImmediately(t *testing.T) {
	cause := errors.New("connection refused")
	fc := &fakeClient{script: []error{cause, nil}}
	g := newTestGuard(t, fc, time.Millisecond)

	_, err := g.Acquire(context.Background())
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrEndpointExhausted)
	require.Equal(t, 1, fc.calls)
}

func TestAcquireOtherRPCCodeIsNotBusy(t *testing.T) {
	fc := &fakeClient{script: []error{&rpcError{code: -32000, msg: "header not found"}}}
	g := newTestGuard(t, fc, time.Millisecond)

	_, err := g.Acquire(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, fc.calls)
}

func TestAcquireHonoursContext(t *testing.T) {
	fc := &fakeClient{script: []error{busy(), busy(), busy()}}
	g := newTestGuard(t, fc, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, fc.calls)
}

func TestVerifyChain(t *testing.T) {
	fc := &fakeClient{chainID: 1}
	g := newTestGuard(t, fc, time.Millisecond)
	require.NoError(t, g.VerifyChain(context.Background()))

	fc.chainID = 56
	require.ErrorContains(t, g.VerifyChain(context.Background()), "expected 1")
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), nil, 1, "testnet")
	require.Error(t, err)
}

func TestCloseClosesClient(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGuard(t, fc, time.Millisecond)
	g.Close()
	require.True(t, fc.closed)
}

// The busy signal must be recognised on errors produced by a real ethclient.
func TestIsBusyWithEthclient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"error":   map[string]any{"code": -32603, "message": "server busy"},
		})
	}))
	defer server.Close()

	g, err := New(context.Background(), []string{server.URL}, 1, "testnet", WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Acquire(context.Background())
	require.ErrorIs(t, err, ErrEndpointExhausted)
}
