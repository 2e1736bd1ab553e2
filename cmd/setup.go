package cmd

import (
	"context"
	"log/slog"
	"math/big"
	"os"

	"swap-cycler/config"
	"swap-cycler/pkg/allowance"
	"swap-cycler/pkg/cycle"
	"swap-cycler/pkg/endpoint"
	"swap-cycler/pkg/fetch"
	"swap-cycler/pkg/journal"
	"swap-cycler/pkg/parser"
	"swap-cycler/pkg/route"
	"swap-cycler/pkg/swap"
	"swap-cycler/pkg/wallet"
)

// app bundles everything built once at startup
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	wallet *wallet.Wallet
	guard  *endpoint.Guard

	allowance    *allowance.Manager
	nativeAmount *big.Int
	tokenAmount  *big.Int
}

// mustLoadConfig loads configuration and installs the logger. Failures are fatal.
func mustLoadConfig() (*config.Config, *slog.Logger) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return cfg, newLogger(cfg.LogLevel)
}

// mustSetup loads configuration, the wallet and a verified chain connection. Any failure here
// is fatal: nothing can run without them.
func mustSetup(ctx context.Context) *app {
	cfg, log := mustLoadConfig()

	nativeAmount, err := parser.ParseAmount(cfg.NativeAmount, cfg.Native.Decimals)
	if err != nil {
		log.Error("Invalid native amount", "amount", cfg.NativeAmount, "error", err)
		os.Exit(1)
	}
	tokenAmount, err := parser.ParseAmount(cfg.TokenAmount, cfg.Token.Decimals)
	if err != nil {
		log.Error("Invalid token amount", "amount", cfg.TokenAmount, "error", err)
		os.Exit(1)
	}

	w, err := wallet.LoadFirst(cfg.PrivateKeys, big.NewInt(cfg.ChainID), log)
	if err != nil {
		log.Error("Failed to load wallet", "error", err)
		os.Exit(1)
	}

	guard, err := endpoint.New(ctx, cfg.RPCURLs, cfg.ChainID, cfg.Network, endpoint.WithLogger(log))
	if err != nil {
		log.Error("Failed to connect to RPC", "error", err)
		os.Exit(1)
	}
	if err := guard.VerifyChain(ctx); err != nil {
		guard.Close()
		log.Error("RPC endpoint check failed", "url", guard.URL(), "error", err)
		os.Exit(1)
	}

	log.Info("Connected",
		"network", guard.Network(),
		"chain_id", guard.ChainID(),
		"wallet", w.Address().Hex(),
	)

	approvals := allowance.New(guard, cfg.Router.Spender,
		allowance.WithDryRun(cfg.DryRun),
		allowance.WithLogger(log),
	)

	return &app{
		cfg:          cfg,
		log:          log,
		wallet:       w,
		guard:        guard,
		allowance:    approvals,
		nativeAmount: nativeAmount,
		tokenAmount:  tokenAmount,
	}
}

func (a *app) close() {
	a.guard.Close()
}

// openJournal opens the swap journal; a broken journal only disables journaling
func (a *app) openJournal() *journal.Storage {
	store, err := journal.NewStorage(a.cfg.JournalPath)
	if err != nil {
		a.log.Warn("Journal disabled", "error", err)
		return nil
	}
	return store
}

// orchestrator wires resolver, executor and journal into a cycle orchestrator
func (a *app) orchestrator(opts ...cycle.Option) *cycle.Orchestrator {
	fetcher := fetch.New(
		fetch.WithReferer(a.cfg.Router.Referer),
		fetch.WithLogger(a.log),
	)
	resolver := route.New(fetcher, route.Params{
		APIURL:   a.cfg.Router.APIURL,
		APIKey:   a.cfg.Router.APIKey,
		Slippage: a.cfg.Router.Slippage,
		Source:   a.cfg.Router.Source,
		ChainID:  a.cfg.ChainID,
	}, route.WithLogger(a.log))
	executor := swap.New(a.guard, a.allowance,
		swap.WithGasFallback(a.cfg.GasFallbackLimit),
		swap.WithDryRun(a.cfg.DryRun),
		swap.WithLogger(a.log),
	)

	base := []cycle.Option{cycle.WithLogger(a.log)}
	if store := a.openJournal(); store != nil {
		base = append(base, cycle.WithJournal(store))
	}

	return cycle.New(cycle.Config{
		Native:       a.cfg.Native,
		Token:        a.cfg.Token,
		NativeAmount: a.nativeAmount,
		TokenAmount:  a.tokenAmount,
		SwapDelay:    a.cfg.Delays.Swap,
		CycleDelay:   a.cfg.Delays.Cycle,
		ErrorDelay:   a.cfg.Delays.Error,
	}, a.wallet, resolver, executor, append(base, opts...)...)
}
