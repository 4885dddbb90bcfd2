// Package report renders the console dashboard and the final
// plain-text result files for the two paper accounts.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirphl/paper-trader/internal/ledger"
)

const (
	colorGreen = "\033[92m"
	colorRed   = "\033[91m"
	colorCyan  = "\033[96m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorReset = "\033[0m"
)

// AccountView is everything the reporter needs to render one account.
type AccountView struct {
	Name     string
	Snapshot ledger.Snapshot
	History  []ledger.TradeRecord
}

func formatCurrency(amount float64) string {
	color := colorGreen
	sign := ""
	if amount < 0 {
		color = colorRed
	} else if amount > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s$%s%.2f%s", color, sign, amount, colorReset)
}

func formatPercentage(pct float64) string {
	color := colorGreen
	sign := ""
	if pct < 0 {
		color = colorRed
	} else if pct > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%s%.2f%%%s", color, sign, pct, colorReset)
}

func writeAccount(w io.Writer, v AccountView) {
	s := v.Snapshot
	fmt.Fprintf(w, "%s%s (%d trades)%s\n", colorBold, v.Name, s.Trades, colorReset)
	fmt.Fprintf(w, "  Balance:     $%.2f\n", s.Balance)
	fmt.Fprintf(w, "  P&L:         %s (%s)\n", formatCurrency(s.PnL()), formatPercentage(s.PnLPct()))
	fmt.Fprintf(w, "  Trades:      %d (W:%s%d%s / L:%s%d%s)\n", s.Trades, colorGreen, s.Wins, colorReset, colorRed, s.Losses, colorReset)
	fmt.Fprintf(w, "  Win Rate:    %s\n", formatPercentage(s.WinRate()))
	fmt.Fprintf(w, "  Max DD:      %s\n\n", formatCurrency(-s.MaxDrawdown))
}

// WriteDashboard renders the periodic comparison dashboard.
func WriteDashboard(w io.Writer, alwaysOn, scheduled AccountView, price float64, now time.Time) {
	fmt.Fprintf(w, "\n%s%s%s%s\n", colorBold, colorCyan, strings.Repeat("=", 70), colorReset)
	fmt.Fprintf(w, "%s%s  PAPER TRADING DASHBOARD - %s%s\n", colorBold, colorCyan, now.Format("2006-01-02 15:04:05"), colorReset)
	fmt.Fprintf(w, "%s%s%s%s\n\n", colorBold, colorCyan, strings.Repeat("=", 70), colorReset)
	fmt.Fprintf(w, "%sCurrent price: $%.2f%s\n\n", colorDim, price, colorReset)

	writeAccount(w, alwaysOn)
	writeAccount(w, scheduled)

	winner, diff := compare(alwaysOn, scheduled)
	fmt.Fprintf(w, "%sCOMPARISON:%s\n", colorBold, colorReset)
	fmt.Fprintf(w, "  Leader: %s%s%s (+$%.2f)\n", colorGreen, winner, colorReset, diff)
}

// WriteFinalResults renders the shutdown summary for both accounts.
func WriteFinalResults(w io.Writer, alwaysOn, scheduled AccountView, runtime time.Duration) {
	fmt.Fprintf(w, "\n%s%s  PAPER TRADING FINAL RESULTS%s\n", colorBold, colorCyan, colorReset)
	fmt.Fprintf(w, "Runtime: %.1f hours\n\n", runtime.Hours())

	writeAccount(w, alwaysOn)
	writeAccount(w, scheduled)

	winner, diff := compare(alwaysOn, scheduled)
	if diff == 0 {
		fmt.Fprintf(w, "%sTIE%s\n", colorBold, colorReset)
		return
	}
	fmt.Fprintf(w, "%s%s%s WINS%s (advantage +$%.2f)\n", colorBold, colorGreen, winner, colorReset, diff)
}

func compare(a, b AccountView) (string, float64) {
	diff := a.Snapshot.PnL() - b.Snapshot.PnL()
	switch {
	case diff > 0:
		return a.Name, diff
	case diff < 0:
		return b.Name, -diff
	default:
		return "Tied", 0
	}
}

// SaveResults writes a single account's summary and trade history to a
// plain-text file in dir. It returns the file path.
func SaveResults(dir string, v AccountView, runtime time.Duration) (string, error) {
	name := strings.ToLower(strings.NewReplacer("/", "_", " ", "_").Replace(v.Name))
	path := filepath.Join(dir, fmt.Sprintf("paper_results_%s.txt", name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	WriteResults(f, v, runtime)
	return path, nil
}

// WriteResults renders one account's plain-text report.
func WriteResults(w io.Writer, v AccountView, runtime time.Duration) {
	s := v.Snapshot
	line := strings.Repeat("=", 60)

	fmt.Fprintf(w, "%s\nPAPER TRADING RESULTS - %s\n%s\n\n", line, strings.ToUpper(v.Name), line)
	fmt.Fprintf(w, "Runtime: %.2f hours\n", runtime.Hours())
	fmt.Fprintf(w, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "ACCOUNT SUMMARY\n%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Starting Balance:  $%.2f\n", s.StartingBalance)
	fmt.Fprintf(w, "Ending Balance:    $%.2f\n", s.Balance)
	fmt.Fprintf(w, "Total P&L:         $%+.2f (%+.2f%%)\n", s.PnL(), s.PnLPct())
	fmt.Fprintf(w, "Total Trades:      %d\n", s.Trades)
	fmt.Fprintf(w, "Winning Trades:    %d\n", s.Wins)
	fmt.Fprintf(w, "Losing Trades:     %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:          %.2f%%\n", s.WinRate())
	fmt.Fprintf(w, "Max Drawdown:      $%.2f\n\n", s.MaxDrawdown)

	fmt.Fprintf(w, "TRADE HISTORY\n%s\n", strings.Repeat("-", 40))
	if len(v.History) == 0 {
		fmt.Fprintln(w, "No trades executed.")
	} else {
		fmt.Fprintf(w, "%-4s %-20s %-6s %12s %12s %12s %-6s\n", "#", "Time", "Dir", "Entry", "Exit", "P&L", "Reason")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for i, t := range v.History {
			fmt.Fprintf(w, "%-4d %-20s %-6s %12.2f %12.2f %+12.2f %-6s\n",
				i+1, t.Timestamp.Format("2006-01-02 15:04"), t.Direction, t.EntryPrice, t.ExitPrice, t.PnL, t.Reason)
		}
	}
	fmt.Fprintf(w, "\n%s\n", line)
}
