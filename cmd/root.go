package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "swap-cycler",
	Short: "Cycle a wallet between the native asset and one ERC20 through a DEX aggregator",
	Long: `swap-cycler runs batches of alternating swaps (native -> token, token -> native)
through a DEX aggregator's routing API, signing and submitting each routed
transaction from a single wallet.

Configuration is read from $HOME/.swap-cycler.yaml, ./.swap-cycler.yaml or
SWAP_CYCLER_* environment variables (a .env file is loaded first).

Examples:
  swap-cycler run
  swap-cycler batch --count 4
  swap-cycler balance
  swap-cycler history --limit 20`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.swap-cycler.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
}

// newLogger installs a tint handler on stderr as the default logger
func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}
	if verbose {
		slogLevel = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
		NoColor:    jsonOutput,
	}))
	slog.SetDefault(logger)
	return logger
}

// printJSON writes v as indented JSON followed by a newline
func printJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

func printError(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "\nError: %v\n\n", err)
}

func printSuccess(message string) {
	color.Green("\n%s\n", message)
}

func banner(title string, width int) {
	line := strings.Repeat("=", width)
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Println("\n" + line)
	color.Green("%s%s", strings.Repeat(" ", pad), title)
	fmt.Println(line)
}
