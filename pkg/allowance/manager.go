package allowance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/metachris/eth-go-bindings/erc20"

	"swap-cycler/pkg/endpoint"
	"swap-cycler/pkg/metrics"
	"swap-cycler/pkg/types"
	"swap-cycler/pkg/wallet"
)

// Token is the part of the ERC20 binding the manager needs. *erc20.Erc20 satisfies it.
type Token interface {
	BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error)
	Allowance(opts *bind.CallOpts, owner common.Address, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*gethtypes.Transaction, error)
	Decimals(opts *bind.CallOpts) (uint8, error)
}

// Binder binds a token contract at address to backend
type Binder func(address common.Address, backend bind.ContractBackend) (Token, error)

// Chain hands out a live client. *endpoint.Guard satisfies it.
type Chain interface {
	Acquire(ctx context.Context) (endpoint.Client, error)
}

// State is a point-in-time view of a wallet's position in one token
type State struct {
	Token     types.Token
	Balance   *big.Int
	Allowance *big.Int // nil for the native asset
	Decimals  uint8
}

// Manager makes sure the router may spend the wallet's tokens
type Manager struct {
	chain   Chain
	spender common.Address
	bind    Binder
	dryRun  bool
	log     *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithBinder replaces the erc20 binding, mostly for tests
func WithBinder(b Binder) Option {
	return func(m *Manager) {
		m.bind = b
	}
}

// WithDryRun logs the approvals that would be sent instead of sending them
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) {
		m.dryRun = dryRun
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func bindErc20(address common.Address, backend bind.ContractBackend) (Token, error) {
	return erc20.NewErc20(address, backend)
}

// New creates a Manager approving spender
func New(chain Chain, spender common.Address, opts ...Option) *Manager {
	m := &Manager{
		chain:   chain,
		spender: spender,
		bind:    bindErc20,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Spender returns the address approvals are granted to
func (m *Manager) Spender() common.Address {
	return m.spender
}

// EnsureApproved reports whether the spender can move amount of token out of the wallet,
// sending an approval for exactly amount when the current allowance is short. Failures are
// logged and reported as false.
func (m *Manager) EnsureApproved(ctx context.Context, w *wallet.Wallet, token types.Token, amount *big.Int) bool {
	if token.IsNative() {
		return true
	}

	ok, err := m.ensure(ctx, w, token, amount)
	if err != nil {
		m.log.Error("Approval check failed", "token", token.Symbol, "error", err)
		metrics.Approvals.WithLabelValues("error").Inc()
		return false
	}
	return ok
}

func (m *Manager) ensure(ctx context.Context, w *wallet.Wallet, token types.Token, amount *big.Int) (bool, error) {
	client, err := m.chain.Acquire(ctx)
	if err != nil {
		return false, err
	}

	contract, err := m.bind(token.Address, client)
	if err != nil {
		return false, fmt.Errorf("failed to bind %s: %w", token.Symbol, err)
	}

	owner := w.Address()
	call := &bind.CallOpts{Context: ctx, From: owner}

	balance, err := contract.BalanceOf(call, owner)
	if err != nil {
		return false, fmt.Errorf("failed to read %s balance: %w", token.Symbol, err)
	}
	if balance.Cmp(amount) < 0 {
		m.log.Warn("Insufficient token balance",
			"token", token.Symbol,
			"balance", balance.String(),
			"required", amount.String(),
		)
		metrics.Approvals.WithLabelValues("insufficient").Inc()
		return false, nil
	}

	allowance, err := contract.Allowance(call, owner, m.spender)
	if err != nil {
		return false, fmt.Errorf("failed to read %s allowance: %w", token.Symbol, err)
	}
	if allowance.Cmp(amount) >= 0 {
		m.log.Debug("Allowance sufficient", "token", token.Symbol, "allowance", allowance.String())
		metrics.Approvals.WithLabelValues("sufficient").Inc()
		return true, nil
	}

	if m.dryRun {
		m.log.Info("Dry run, not sending approval",
			"token", token.Symbol,
			"spender", m.spender.Hex(),
			"amount", amount.String(),
			"allowance", allowance.String(),
		)
		metrics.Approvals.WithLabelValues("dry_run").Inc()
		return true, nil
	}

	opts, err := w.TransactOpts(ctx)
	if err != nil {
		return false, err
	}

	tx, err := contract.Approve(opts, m.spender, amount)
	if err != nil {
		return false, fmt.Errorf("failed to submit approval: %w", err)
	}
	m.log.Info("Approval submitted",
		"token", token.Symbol,
		"spender", m.spender.Hex(),
		"amount", amount.String(),
		"tx", tx.Hash().Hex(),
	)

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return false, fmt.Errorf("failed waiting for approval %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		m.log.Error("Approval reverted", "token", token.Symbol, "tx", tx.Hash().Hex())
		metrics.Approvals.WithLabelValues("reverted").Inc()
		return false, nil
	}

	metrics.Approvals.WithLabelValues("approved").Inc()
	return true, nil
}

// Inspect reads the wallet's balance of token and, for ERC20s, the allowance granted to the
// spender.
func (m *Manager) Inspect(ctx context.Context, w *wallet.Wallet, token types.Token) (*State, error) {
	client, err := m.chain.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	state := &State{Token: token, Decimals: token.Decimals}
	if token.IsNative() {
		balance, err := client.BalanceAt(ctx, w.Address(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s balance: %w", token.Symbol, err)
		}
		state.Balance = balance
		return state, nil
	}

	contract, err := m.bind(token.Address, client)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", token.Symbol, err)
	}

	call := &bind.CallOpts{Context: ctx, From: w.Address()}
	if state.Balance, err = contract.BalanceOf(call, w.Address()); err != nil {
		return nil, fmt.Errorf("failed to read %s balance: %w", token.Symbol, err)
	}
	if state.Allowance, err = contract.Allowance(call, w.Address(), m.spender); err != nil {
		return nil, fmt.Errorf("failed to read %s allowance: %w", token.Symbol, err)
	}
	if state.Decimals, err = contract.Decimals(call); err != nil {
		return nil, fmt.Errorf("failed to read %s decimals: %w", token.Symbol, err)
	}
	return state, nil
}
