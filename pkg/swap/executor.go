package swap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"swap-cycler/pkg/endpoint"
	"swap-cycler/pkg/types"
	"swap-cycler/pkg/wallet"
)

// DefaultGasLimit is used when the route carries no gas estimate
const DefaultGasLimit uint64 = 500000

var (
	// ErrApprovalFailed is returned when the router could not be cleared to spend the input token
	ErrApprovalFailed = errors.New("token approval failed")
	// ErrInvalidRoute is returned for quotes without usable calldata or target
	ErrInvalidRoute = errors.New("invalid route")
	// ErrTxReverted is returned when the swap was mined with status 0
	ErrTxReverted = errors.New("swap transaction reverted")
)

// Approver clears the router to spend a token. *allowance.Manager satisfies it.
type Approver interface {
	EnsureApproved(ctx context.Context, w *wallet.Wallet, token types.Token, amount *big.Int) bool
}

// Chain hands out a live client. *endpoint.Guard satisfies it.
type Chain interface {
	Acquire(ctx context.Context) (endpoint.Client, error)
}

// Executor signs and submits routed swap transactions
type Executor struct {
	chain       Chain
	approver    Approver
	gasFallback uint64
	dryRun      bool
	log         *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithGasFallback sets the gas limit used when the quote has none
func WithGasFallback(limit uint64) Option {
	return func(e *Executor) {
		if limit > 0 {
			e.gasFallback = limit
		}
	}
}

// WithDryRun makes the executor sign but never broadcast
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.log = l
	}
}

// New creates an Executor
func New(chain Chain, approver Approver, opts ...Option) *Executor {
	e := &Executor{
		chain:       chain,
		approver:    approver,
		gasFallback: DefaultGasLimit,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteSwap submits the quoted transaction and waits for it to be mined.
// In dry-run mode the signed transaction is logged and a synthetic successful receipt
// without block data is returned.
func (e *Executor) ExecuteSwap(ctx context.Context, w *wallet.Wallet, quote *types.RouteQuote, from types.Token, amount *big.Int) (*gethtypes.Receipt, error) {
	if !from.IsNative() && !e.approver.EnsureApproved(ctx, w, from, amount) {
		return nil, fmt.Errorf("%w: %s", ErrApprovalFailed, from.Symbol)
	}

	to, data, err := decodeQuote(quote)
	if err != nil {
		return nil, err
	}

	client, err := e.chain.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, w.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas := e.gasFallback
	if !quote.GasLimit.IsZero() && quote.GasLimit.Int.IsUint64() {
		gas = quote.GasLimit.Int.Uint64()
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    quote.Value.BigOr(common.Big0),
		Data:     data,
	})

	signed, err := w.SignTx(tx)
	if err != nil {
		return nil, err
	}

	if e.dryRun {
		e.log.Info("Dry run, not sending swap",
			"tx", signed.Hash().Hex(),
			"to", to.Hex(),
			"value", signed.Value().String(),
			"gas", gas,
			"nonce", nonce,
		)
		return &gethtypes.Receipt{
			Type:    signed.Type(),
			Status:  gethtypes.ReceiptStatusSuccessful,
			TxHash:  signed.Hash(),
			GasUsed: 0,
		}, nil
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.log.Info("Swap submitted", "tx", signed.Hash().Hex(), "from", from.Symbol, "gas", gas)

	receipt, err := bind.WaitMined(ctx, client, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, signed.Hash().Hex())
	}

	e.log.Info("Swap confirmed",
		"tx", signed.Hash().Hex(),
		"block", receipt.BlockNumber,
		"gasUsed", receipt.GasUsed,
	)
	return receipt, nil
}

func decodeQuote(quote *types.RouteQuote) (common.Address, []byte, error) {
	if quote == nil {
		return common.Address{}, nil, fmt.Errorf("%w: no quote", ErrInvalidRoute)
	}

	raw := strings.TrimSpace(quote.Data)
	if raw == "" || strings.EqualFold(raw, "0x") {
		return common.Address{}, nil, fmt.Errorf("%w: empty calldata", ErrInvalidRoute)
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	data, err := hexutil.Decode(strings.ToLower(raw))
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: calldata: %v", ErrInvalidRoute, err)
	}

	if !common.IsHexAddress(quote.To) {
		return common.Address{}, nil, fmt.Errorf("%w: target %q", ErrInvalidRoute, quote.To)
	}
	return common.HexToAddress(quote.To), data, nil
}
