package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-cycler/pkg/cycle"
	"swap-cycler/pkg/parser"
	"swap-cycler/pkg/types"
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"pair"},
	Short:   "Show the configured token pair and per-leg amounts",
	Long: `Show the native asset and ERC20 token the cycle trades, their per-leg amounts
and the order legs alternate in. No network access is needed.

Examples:
  swap-cycler tokens
  swap-cycler tokens --json`,
	Run: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

type pairEntry struct {
	Symbol    string `json:"symbol"`
	Address   string `json:"address"`
	Decimals  uint8  `json:"decimals"`
	Native    bool   `json:"native"`
	Amount    string `json:"amount"`
	BaseUnits string `json:"base_units"`
	Direction string `json:"direction"`
}

func runTokens(cmd *cobra.Command, args []string) {
	cfg, _ := mustLoadConfig()

	entries := make([]pairEntry, 0, 2)
	for _, side := range []struct {
		from, to types.Token
		amount   string
	}{
		{cfg.Native, cfg.Token, cfg.NativeAmount},
		{cfg.Token, cfg.Native, cfg.TokenAmount},
	} {
		base, err := parser.ParseAmount(side.amount, side.from.Decimals)
		if err != nil {
			printError(fmt.Errorf("%s amount: %w", side.from.Symbol, err))
			os.Exit(1)
		}
		entries = append(entries, pairEntry{
			Symbol:    side.from.Symbol,
			Address:   side.from.Address.Hex(),
			Decimals:  side.from.Decimals,
			Native:    side.from.IsNative(),
			Amount:    side.amount,
			BaseUnits: base.String(),
			Direction: cycle.PairLabel(side.from, side.to),
		})
	}

	if jsonOutput {
		if err := printJSON(os.Stdout, entries); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	banner("CONFIGURED PAIR", 100)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSYMBOL\tADDRESS\tDECIMALS\tPER LEG\tLEG DIRECTION")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		symbol := e.Symbol
		if e.Native {
			symbol += " (native)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			color.YellowString(symbol), e.Address, e.Decimals, e.Amount, e.Direction)
	}
	w.Flush()

	fmt.Printf("\n  Legs alternate %s, %s, %s, ...\n", entries[0].Direction, entries[1].Direction, entries[0].Direction)
	fmt.Println("\n" + strings.Repeat("=", 100) + "\n")
}
