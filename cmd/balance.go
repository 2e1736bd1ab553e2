package cmd

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-cycler/pkg/allowance"
	"swap-cycler/pkg/parser"
)

var balanceCmd = &cobra.Command{
	Use:     "balance",
	Aliases: []string{"status"},
	Short:   "Show wallet balances and router allowance",
	Long: `Show the wallet's native and token balances, the token allowance granted to
the router and how many legs of each direction the balances cover.

Examples:
  swap-cycler balance
  swap-cycler balance --json`,
	Run: runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

type balanceView struct {
	Wallet  string    `json:"wallet"`
	Network string    `json:"network"`
	ChainID int64     `json:"chain_id"`
	Spender string    `json:"spender"`
	Native  tokenView `json:"native"`
	Token   tokenView `json:"token"`
}

type tokenView struct {
	Symbol    string `json:"symbol"`
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance,omitempty"`
	PerLeg    string `json:"per_leg"`
	Legs      string `json:"legs_covered"`
}

func runBalance(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	a := mustSetup(ctx)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading balances..."
		s.Start()
	}

	native, err := a.allowance.Inspect(ctx, a.wallet, a.cfg.Native)
	var token *allowance.State
	if err == nil {
		token, err = a.allowance.Inspect(ctx, a.wallet, a.cfg.Token)
	}
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		a.close()
		os.Exit(1)
	}

	if token.Decimals != a.cfg.Token.Decimals {
		a.log.Warn("Configured token decimals differ from contract",
			"configured", a.cfg.Token.Decimals,
			"contract", token.Decimals,
		)
	}

	view := balanceView{
		Wallet:  a.wallet.Address().Hex(),
		Network: a.guard.Network(),
		ChainID: a.guard.ChainID(),
		Spender: a.allowance.Spender().Hex(),
		Native:  newTokenView(native, a.nativeAmount),
		Token:   newTokenView(token, a.tokenAmount),
	}

	if jsonOutput {
		if err := printJSON(os.Stdout, view); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}
	displayBalance(view)
}

// newTokenView formats state and how many legs of perLeg its balance pays for
func newTokenView(state *allowance.State, perLeg *big.Int) tokenView {
	v := tokenView{
		Symbol:  state.Token.Symbol,
		Address: state.Token.Address.Hex(),
		Balance: parser.FormatAmount(state.Balance, state.Token.Decimals),
		PerLeg:  parser.FormatAmount(perLeg, state.Token.Decimals),
		Legs:    "0",
	}
	if state.Allowance != nil {
		v.Allowance = parser.FormatAmount(state.Allowance, state.Token.Decimals)
	}
	if perLeg.Sign() > 0 && state.Balance != nil {
		v.Legs = new(big.Int).Quo(state.Balance, perLeg).String()
	}
	return v
}

func displayBalance(v balanceView) {
	banner("WALLET BALANCE", 70)

	fmt.Printf("\n  Wallet:      %s\n", color.CyanString(v.Wallet))
	fmt.Printf("  Network:     %s (chain %d)\n", v.Network, v.ChainID)
	fmt.Printf("  Router:      %s\n\n", v.Spender)

	for _, t := range []tokenView{v.Native, v.Token} {
		fmt.Printf("  %s\n", color.YellowString(t.Symbol))
		fmt.Printf("    Balance:   %s\n", t.Balance)
		if t.Allowance != "" {
			fmt.Printf("    Allowance: %s\n", t.Allowance)
		}
		fmt.Printf("    Per leg:   %s (covers %s legs)\n", t.PerLeg, t.Legs)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
