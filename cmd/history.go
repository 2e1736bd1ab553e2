package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-cycler/pkg/journal"
)

var (
	historyBatch  string
	historyStatus string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled swaps",
	Long: `Show the swaps recorded in the local journal, newest last.

Examples:
  swap-cycler history
  swap-cycler history --limit 10
  swap-cycler history --status failed
  swap-cycler history --batch 3f0c...`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Only show legs of this batch")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (pending, completed, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Show at most this many entries (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, _ := mustLoadConfig()

	store, err := journal.NewStorage(cfg.JournalPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	entries := filterEntries(store.List(), historyBatch, journal.Status(strings.ToLower(historyStatus)), historyLimit)

	if jsonOutput {
		if err := printJSON(os.Stdout, entries); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	if len(entries) == 0 {
		fmt.Printf("\nNo swaps recorded in %s\n", store.FilePath())
		return
	}

	displayHistory(entries)
}

// filterEntries keeps entries matching batch and status and returns the newest limit of them
func filterEntries(entries []*journal.Entry, batch string, status journal.Status, limit int) []*journal.Entry {
	out := make([]*journal.Entry, 0, len(entries))
	for _, e := range entries {
		if batch != "" && e.BatchID != batch {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func displayHistory(entries []*journal.Entry) {
	banner("SWAP HISTORY", 110)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nTIMESTAMP\tBATCH\tLEG\tPAIR\tAMOUNT\tSTATUS\tTX")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, e := range entries {
		tx := e.TxHash
		if tx == "" {
			tx = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			shortID(e.BatchID),
			e.Index+1,
			e.Pair,
			e.Amount,
			statusColor(e.Status),
			tx,
		)
	}
	w.Flush()

	for _, e := range entries {
		if e.Status == journal.StatusFailed && e.Error != "" {
			fmt.Printf("  %s #%d: %s\n", shortID(e.BatchID), e.Index+1, color.RedString(e.Error))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 110) + "\n")
}

func statusColor(status journal.Status) string {
	s := strings.ToUpper(string(status))
	switch status {
	case journal.StatusCompleted:
		return color.GreenString(s)
	case journal.StatusPending:
		return color.YellowString(s)
	case journal.StatusFailed:
		return color.RedString(s)
	default:
		return s
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
