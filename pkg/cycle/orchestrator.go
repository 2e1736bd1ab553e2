package cycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"swap-cycler/pkg/journal"
	"swap-cycler/pkg/metrics"
	"swap-cycler/pkg/parser"
	"swap-cycler/pkg/types"
	"swap-cycler/pkg/wallet"
)

const (
	DefaultSwapDelay  = 2 * time.Second
	DefaultCycleDelay = 24 * time.Hour
	DefaultErrorDelay = 60 * time.Second
)

// Resolver fetches a quote for one leg. *route.Resolver satisfies it.
type Resolver interface {
	ResolveRoute(ctx context.Context, from, to types.Token, user common.Address, amount *big.Int) (*types.RouteQuote, error)
}

// Executor executes a quote. *swap.Executor satisfies it.
type Executor interface {
	ExecuteSwap(ctx context.Context, w *wallet.Wallet, quote *types.RouteQuote, from types.Token, amount *big.Int) (*gethtypes.Receipt, error)
}

// Journal persists leg outcomes. *journal.Storage satisfies it.
type Journal interface {
	Record(e *journal.Entry) error
	Update(e *journal.Entry) error
}

// Prompter asks the operator how many swaps to run
type Prompter interface {
	Prompt(ctx context.Context) (string, error)
}

// Reporter is told about every finished leg and batch
type Reporter interface {
	LegDone(leg types.SwapLeg, receipt *gethtypes.Receipt, err error)
	BatchDone(result types.BatchResult)
}

// Config holds the pair and pacing of the cycle
type Config struct {
	Native       types.Token
	Token        types.Token
	NativeAmount *big.Int
	TokenAmount  *big.Int

	SwapDelay  time.Duration
	CycleDelay time.Duration
	ErrorDelay time.Duration
}

// Orchestrator runs batches of alternating swaps
type Orchestrator struct {
	cfg      Config
	wallet   *wallet.Wallet
	resolver Resolver
	executor Executor

	journal  Journal
	sleeper  Sleeper
	prompter Prompter
	reporter Reporter
	log      *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithJournal records every leg
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithSleeper replaces TimerSleeper
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleeper = s
	}
}

// WithPrompter sets the source of swap counts used by Run
func WithPrompter(p Prompter) Option {
	return func(o *Orchestrator) {
		o.prompter = p
	}
}

// WithReporter sets the progress reporter
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// New creates an Orchestrator
func New(cfg Config, w *wallet.Wallet, resolver Resolver, executor Executor, opts ...Option) *Orchestrator {
	if cfg.SwapDelay == 0 {
		cfg.SwapDelay = DefaultSwapDelay
	}
	if cfg.CycleDelay == 0 {
		cfg.CycleDelay = DefaultCycleDelay
	}
	if cfg.ErrorDelay == 0 {
		cfg.ErrorDelay = DefaultErrorDelay
	}

	o := &Orchestrator{
		cfg:      cfg,
		wallet:   w,
		resolver: resolver,
		executor: executor,
		sleeper:  TimerSleeper{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch executes n legs in order. A failed leg is logged and counted and the batch moves on.
// The batch stops early only when ctx is done.
func (o *Orchestrator) RunBatch(ctx context.Context, n int) types.BatchResult {
	result := types.BatchResult{
		BatchID:   uuid.New().String(),
		Requested: n,
	}
	legs := BuildLegs(n, o.cfg.Native, o.cfg.Token, o.cfg.NativeAmount, o.cfg.TokenAmount)

	o.log.Info("Starting batch", "batch", result.BatchID, "swaps", n, "wallet", o.wallet.Address().Hex())

	for i, leg := range legs {
		if ctx.Err() != nil {
			break
		}

		receipt, err := o.runLeg(ctx, result.BatchID, leg)
		if err != nil {
			result.Failed++
			o.log.Error("Swap failed", "leg", leg.String(), "error", err)
		} else {
			result.Succeeded++
			result.TxHashes = append(result.TxHashes, receipt.TxHash.Hex())
			o.log.Info("Swap succeeded", "leg", leg.String(), "tx", receipt.TxHash.Hex())
		}
		if o.reporter != nil {
			o.reporter.LegDone(leg, receipt, err)
		}

		if i < len(legs)-1 {
			if err := o.sleeper.Sleep(ctx, o.cfg.SwapDelay, "next swap"); err != nil {
				break
			}
		}
	}

	o.log.Info("Batch finished",
		"batch", result.BatchID,
		"requested", result.Requested,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	if o.reporter != nil {
		o.reporter.BatchDone(result)
	}
	return result
}

func (o *Orchestrator) runLeg(ctx context.Context, batchID string, leg types.SwapLeg) (*gethtypes.Receipt, error) {
	start := time.Now()
	entry := &journal.Entry{
		BatchID: batchID,
		Index:   leg.Index,
		Pair:    leg.Pair,
		From:    leg.From.Symbol,
		To:      leg.To.Symbol,
		Amount:  leg.Amount.String(),
	}
	o.record(entry)

	o.log.Info("Swapping", "leg", leg.String(), "amount", parser.FormatAmount(leg.Amount, leg.From.Decimals))

	receipt, err := o.swap(ctx, leg)

	metrics.SwapLatency.WithLabelValues(leg.Pair).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Swaps.WithLabelValues(leg.Pair, "failure").Inc()
		entry.Fail(err)
		if receipt != nil {
			entry.TxHash = receipt.TxHash.Hex()
		}
	} else {
		metrics.Swaps.WithLabelValues(leg.Pair, "success").Inc()
		entry.Complete(receipt.TxHash.Hex())
	}
	o.update(entry)

	return receipt, err
}

func (o *Orchestrator) swap(ctx context.Context, leg types.SwapLeg) (*gethtypes.Receipt, error) {
	quote, err := o.resolver.ResolveRoute(ctx, leg.From, leg.To, o.wallet.Address(), leg.Amount)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	receipt, err := o.executor.ExecuteSwap(ctx, o.wallet, quote, leg.From, leg.Amount)
	if err != nil {
		return receipt, fmt.Errorf("execute: %w", err)
	}
	return receipt, nil
}

func (o *Orchestrator) record(e *journal.Entry) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(e); err != nil {
		o.log.Warn("Failed to journal swap", "error", err)
	}
}

func (o *Orchestrator) update(e *journal.Entry) {
	if o.journal == nil || e.ID == "" {
		return
	}
	if err := o.journal.Update(e); err != nil {
		o.log.Warn("Failed to journal swap", "error", err)
	}
}

// Run prompts for a swap count, runs the batch, idles for the cycle delay and repeats until ctx
// is done. Bad input is reported and re-prompted after the error delay.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.prompter == nil {
		return errors.New("no prompter configured")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := o.promptCount(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("input closed: %w", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Error("Cycle error", "error", err, "retry_in", o.cfg.ErrorDelay)
			if err := o.sleeper.Sleep(ctx, o.cfg.ErrorDelay, "retry"); err != nil {
				return err
			}
			continue
		}

		o.RunBatch(ctx, n)

		o.log.Info("Cycle complete, idling", "next_cycle_in", o.cfg.CycleDelay)
		if err := o.sleeper.Sleep(ctx, o.cfg.CycleDelay, "next cycle"); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) promptCount(ctx context.Context) (int, error) {
	input, err := o.prompter.Prompt(ctx)
	if err != nil {
		return 0, err
	}
	return parser.ParseSwapCount(input)
}
