package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"

	"swap-cycler/pkg/cycle"
	"swap-cycler/pkg/types"
)

// linePrompter asks for the swap count on out and reads one line from in
type linePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{reader: bufio.NewReader(in), out: out}
}

type promptResult struct {
	line string
	err  error
}

// Prompt implements cycle.Prompter. A blocked read is abandoned when ctx is done.
func (p *linePrompter) Prompt(ctx context.Context) (string, error) {
	fmt.Fprint(p.out, "\nHow many swaps should this cycle run? ")

	done := make(chan promptResult, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		done <- promptResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		line := strings.TrimSpace(res.line)
		if res.err != nil && !(errors.Is(res.err, io.EOF) && line != "") {
			return "", res.err
		}
		return line, nil
	}
}

// confirm asks a yes/no question on stdin
func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// countdownSleeper shows a spinner with the remaining time while it waits
type countdownSleeper struct {
	quiet bool
}

// Sleep implements cycle.Sleeper
func (s countdownSleeper) Sleep(ctx context.Context, d time.Duration, reason string) error {
	if s.quiet || d < time.Second {
		return cycle.TimerSleeper{}.Sleep(ctx, d, reason)
	}

	deadline := time.Now().Add(d)
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.PreUpdate = func(sp *spinner.Spinner) {
		sp.Suffix = fmt.Sprintf(" %s in %s", reason, time.Until(deadline).Round(time.Second))
	}
	sp.Start()
	defer sp.Stop()

	return cycle.TimerSleeper{}.Sleep(ctx, d, reason)
}

// consoleReporter prints one line per leg and a summary per batch
type consoleReporter struct{}

func (consoleReporter) LegDone(leg types.SwapLeg, receipt *gethtypes.Receipt, err error) {
	if err != nil {
		fmt.Printf("  %s %-16s %s\n", color.RedString("✗"), leg.String(), color.RedString(err.Error()))
		return
	}
	fmt.Printf("  %s %-16s %s\n", color.GreenString("✓"), leg.String(), color.CyanString(receipt.TxHash.Hex()))
}

func (consoleReporter) BatchDone(result types.BatchResult) {
	banner("BATCH SUMMARY", 60)
	fmt.Printf("\n  Batch:      %s\n", color.HiBlackString(result.BatchID))
	fmt.Printf("  Requested:  %d\n", result.Requested)
	fmt.Printf("  Succeeded:  %s\n", color.GreenString("%d", result.Succeeded))
	if result.Failed > 0 {
		fmt.Printf("  Failed:     %s\n", color.RedString("%d", result.Failed))
	} else {
		fmt.Printf("  Failed:     %d\n", result.Failed)
	}
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
