package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"swap-cycler/pkg/cycle"
	"swap-cycler/pkg/parser"
)

var (
	batchCount int
	batchYes   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a single batch of swaps without prompting",
	Long: `Run exactly one batch of alternating swaps and exit. Legs at even positions
swap the native asset into the token, odd positions swap back.

Examples:
  swap-cycler batch --count 4
  swap-cycler batch --count 2 --yes --json`,
	Run: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVarP(&batchCount, "count", "n", 0, "Number of swaps to run (required)")
	batchCmd.Flags().BoolVarP(&batchYes, "yes", "y", false, "Skip confirmation prompt")
	batchCmd.MarkFlagRequired("count")
}

func runBatch(cmd *cobra.Command, args []string) {
	n, err := parser.ParseSwapCount(fmt.Sprint(batchCount))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	a := mustSetup(ctx)
	defer a.close()

	stopMetrics := a.startMetrics()
	defer stopMetrics()

	var opts []cycle.Option
	if !jsonOutput {
		a.printIntro()
		if !batchYes && !confirm(fmt.Sprintf("Run %d swaps?", n)) {
			fmt.Println("\nBatch cancelled.")
			return
		}
		opts = append(opts, cycle.WithReporter(consoleReporter{}), cycle.WithSleeper(countdownSleeper{}))
	}

	result := a.orchestrator(opts...).RunBatch(ctx, n)

	if jsonOutput {
		if err := printJSON(os.Stdout, result); err != nil {
			printError(err)
		}
	}
	if result.Succeeded == 0 {
		stopMetrics()
		a.close()
		os.Exit(1)
	}
}
