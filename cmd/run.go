package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-cycler/pkg/cycle"
	"swap-cycler/pkg/metrics"
	"swap-cycler/pkg/parser"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive swap cycle",
	Long: `Prompt for a number of swaps, run them as one batch, idle until the next
cycle and repeat. Invalid input is reported and prompted for again after the
error delay. Stop with Ctrl+C.

Examples:
  swap-cycler run
  swap-cycler run --config ./mainnet.yaml`,
	Run: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startMetrics serves /metrics when an address is configured
func (a *app) startMetrics() func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}

	srv := metrics.NewServer(a.cfg.MetricsAddr)
	go func() {
		a.log.Info("Metrics server listening", "addr", a.cfg.MetricsAddr)
		if err := srv.Start(); err != nil {
			a.log.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			a.log.Warn("Metrics server did not shut down cleanly", "error", err)
		}
	}
}

func (a *app) printIntro() {
	banner("SWAP CYCLER", 60)
	fmt.Printf("\n  Network:      %s (chain %d)\n", a.guard.Network(), a.guard.ChainID())
	fmt.Printf("  Wallet:       %s\n", color.CyanString(a.wallet.Address().Hex()))
	fmt.Printf("  Pair:         %s / %s\n", color.YellowString(a.cfg.Native.Symbol), color.YellowString(a.cfg.Token.Symbol))
	fmt.Printf("  Per leg:      %s %s  |  %s %s\n",
		parser.FormatAmount(a.nativeAmount, a.cfg.Native.Decimals), a.cfg.Native.Symbol,
		parser.FormatAmount(a.tokenAmount, a.cfg.Token.Decimals), a.cfg.Token.Symbol,
	)
	fmt.Printf("  Router:       %s\n", a.cfg.Router.Spender.Hex())
	if a.cfg.DryRun {
		color.Yellow("  Dry run:      swaps are signed but not sent, approvals are only logged")
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
}

func runCycle(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	a := mustSetup(ctx)
	defer a.close()

	stopMetrics := a.startMetrics()
	defer stopMetrics()

	opts := []cycle.Option{
		cycle.WithPrompter(newLinePrompter(os.Stdin, os.Stdout)),
		cycle.WithSleeper(countdownSleeper{quiet: jsonOutput}),
	}
	if !jsonOutput {
		a.printIntro()
		opts = append(opts, cycle.WithReporter(consoleReporter{}))
	}

	err := a.orchestrator(opts...).Run(ctx)
	if errors.Is(err, context.Canceled) {
		printSuccess("Stopped.")
		return
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}
