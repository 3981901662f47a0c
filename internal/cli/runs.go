package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trendBot/internal/adapters/sqlite"
	"trendBot/internal/domain"
	"trendBot/internal/report"
	"trendBot/internal/strategy/analytics"
)

func newRunsCmd(s *session) *cobra.Command {
	var (
		limit int
		show  string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled backtest runs, or re-print one with --show",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := sqlite.NewRepository(sqlite.Config{DBPath: s.cfg.DBPath, Logger: s.logger})
			if err != nil {
				return err
			}
			defer repo.Close()

			if show != "" {
				run, err := repo.GetRun(ctx, show)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found in %s", show, s.cfg.DBPath)
				}
				trades, err := repo.GetRunTrades(ctx, run.ID)
				if err != nil {
					return err
				}
				equity, err := repo.GetRunEquity(ctx, run.ID)
				if err != nil {
					return err
				}
				metrics := analytics.CalculateMetrics(trades, equity, run.InitialCapital,
					run.PeriodStart, run.PeriodEnd, s.cfg.SharpeAnnualization)
				fmt.Fprintf(s.out, "Run %s (%s) on %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), strings.Join(run.Symbols, ", "))
				if err := report.WriteText(s.out, metrics, trades); err != nil {
					return err
				}
				return writeExitBreakdown(s, trades)
			}

			runs, err := repo.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(s.out, "No backtest runs journaled yet. Run `trendbot backtest` first.")
				return nil
			}
			w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tStarted\tSymbols\tTrades\tReturn %\tMax DD %\tWin %\tSharpe")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04"), strings.Join(r.Symbols, ","),
					r.TradeCount, r.TotalReturnPct, r.MaxDrawdownPct, r.WinRatePct, r.SharpeRatio)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs listed, newest first (0 for all)")
	cmd.Flags().StringVar(&show, "show", "", "print the full report of one run")
	return cmd
}

// writeExitBreakdown prints count and PnL per close reason.
func writeExitBreakdown(s *session, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	counts := make(map[domain.CloseReason]int)
	pnl := make(map[domain.CloseReason]float64)
	for _, t := range trades {
		counts[t.CloseReason]++
		pnl[t.CloseReason] += t.PNL
	}
	reasons := make([]domain.CloseReason, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	fmt.Fprintln(s.out, "\n=== EXITS BY REASON ===")
	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Reason\tCount\tTotal PnL\tAvg PnL")
	for _, r := range reasons {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r, counts[r], report.FormatMoney(pnl[r]), report.FormatMoney(pnl[r]/float64(counts[r])))
	}
	return w.Flush()
}

// writeAccount prints a paper account summary.
func writeAccount(s *session, state domain.AccountState) error {
	fmt.Fprintf(s.out, "Capital: %s\n", report.FormatMoney(state.Capital))
	symbols := make([]string, 0, len(state.Positions))
	for sym := range state.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Symbol\tSize\tEntry\tStop\tTarget\tSince")
	for _, sym := range symbols {
		p := state.Positions[sym]
		fmt.Fprintf(w, "%s\t%.6f\t%.4f\t%.4f\t%.4f\t%s\n", sym, p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit, p.EntryTime.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Closed trades: %d\n", len(state.History))
	return nil
}
