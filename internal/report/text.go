// Package report renders backtest results for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"trendBot/internal/domain"
	"trendBot/internal/strategy/analytics"
)

const width = 40

// WriteText writes the summary block followed by the trade list.
func WriteText(w io.Writer, m *analytics.PerformanceMetrics, trades []domain.Trade) error {
	r := m.Rounded()
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", width) + "\n")
	sb.WriteString("        BACKTEST REPORT        \n")
	sb.WriteString(strings.Repeat("=", width) + "\n")
	fmt.Fprintf(&sb, "Period Start    : %s\n", formatTime(r.Start))
	fmt.Fprintf(&sb, "Period End      : %s\n", formatTime(r.End))
	fmt.Fprintf(&sb, "Duration        : %s\n", formatDuration(r.Duration))
	sb.WriteString(strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&sb, "Initial Capital : %s\n", FormatMoney(r.InitialCapital))
	fmt.Fprintf(&sb, "Final Capital   : %s\n", FormatMoney(r.FinalCapital))
	fmt.Fprintf(&sb, "Net Profit      : %s\n", FormatMoney(r.NetProfit))
	sb.WriteString(strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&sb, "Total Return    : %.2f%%\n", r.TotalReturnPct)
	fmt.Fprintf(&sb, "Max Drawdown    : %.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(&sb, "Win Rate        : %.2f%%\n", r.WinRatePct)
	fmt.Fprintf(&sb, "Sharpe Ratio    : %.2f\n", r.SharpeRatio)
	fmt.Fprintf(&sb, "Total Trades    : %d\n", r.TotalTrades)
	sb.WriteString(strings.Repeat("=", width) + "\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write report summary: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	if _, err := io.WriteString(w, "\n=== TRADES LIST ===\n"); err != nil {
		return fmt.Errorf("failed to write trade list: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Symbol\tEntry Time\tExit Time\tEntry\tExit\tSize\tPnL\tPnL %\tReason\t")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%.6f\t%.2f\t%.2f\t%s\t\n",
			t.Symbol,
			formatTime(t.EntryTime),
			formatTime(t.ExitTime),
			t.EntryPrice,
			t.ExitPrice,
			t.Size,
			t.PNL,
			t.PNLPercent,
			t.CloseReason,
		)
	}
	return tw.Flush()
}

// SaveText writes the report to dir/backtest_<runID>.txt and returns the path.
func SaveText(dir, runID string, m *analytics.PerformanceMetrics, trades []domain.Trade) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("backtest_%s.txt", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := WriteText(f, m, trades); err != nil {
		return "", err
	}
	return path, nil
}

// FormatMoney renders v as $1,234.57 with the sign in front.
func FormatMoney(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	return sign + "$" + grouped.String() + "." + frac
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "N/A"
	}
	days := d / (24 * time.Hour)
	rest := d - days*24*time.Hour
	h := rest / time.Hour
	rest -= h * time.Hour
	m := rest / time.Minute
	rest -= m * time.Minute
	s := rest / time.Second
	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
