package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trendBot/config"
	"trendBot/internal/adapters/sqlite"
	"trendBot/internal/domain"
	"trendBot/internal/portfolio"
	"trendBot/internal/ports"
	"trendBot/internal/report"
	"trendBot/internal/strategy/analytics"
	"trendBot/internal/strategy/backtesting"
	"trendBot/internal/strategy/optimization"
	"trendBot/internal/utils"
)

func newBacktestCmd(s *session) *cobra.Command {
	var (
		sweep     bool
		top       int
		noJournal bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored klines through the strategy and report performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assets, err := s.Assets()
			if err != nil {
				return err
			}
			series, err := s.loadSeries(ctx, assets)
			if err != nil {
				return err
			}
			strategy, err := s.newStrategy()
			if err != nil {
				return err
			}
			gate, err := s.backtestGate(ctx)
			if err != nil {
				return err
			}

			if sweep {
				return s.runSweep(ctx, assets, series, strategy, gate, top)
			}

			engine, err := backtesting.NewEngine(s.backtestConfig(), strategy, gate,
				portfolio.NewLedger(s.cfg.InitialCapital, config.Weights(assets)), s.logger)
			if err != nil {
				return err
			}
			startedAt := time.Now().UTC()
			result, err := engine.Run(ctx, series)
			if err != nil {
				return err
			}
			return s.reportBacktest(ctx, startedAt, result, noJournal)
		},
	}
	cmd.Flags().BoolVar(&sweep, "sweep", false, "grid-search stop/target ATR multipliers instead of a single run")
	cmd.Flags().IntVar(&top, "top", 10, "rows shown for --sweep")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record the run in the SQLite journal")
	return cmd
}

// reportBacktest prints the text report and writes the artifacts. Artifact and journal
// failures are logged; the printed report is still produced.
func (s *session) reportBacktest(ctx context.Context, startedAt time.Time, result *backtesting.BacktestResult, noJournal bool) error {
	metrics := analytics.CalculateMetrics(result.Trades, result.EquityCurve, result.InitialCapital,
		result.Start, result.End, s.cfg.SharpeAnnualization)
	runID := sqlite.NewRunID()

	if err := report.WriteText(s.out, metrics, result.Trades); err != nil {
		return err
	}
	if len(result.OpenPositions) > 0 {
		fmt.Fprintln(s.out, "\n=== OPEN POSITIONS ===")
		symbols := make([]string, 0, len(result.OpenPositions))
		for sym := range result.OpenPositions {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			p := result.OpenPositions[sym]
			fmt.Fprintf(s.out, "%s size=%.6f entry=%.4f stop=%.4f target=%.4f since %s\n",
				sym, p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit, p.EntryTime.Format("2006-01-02 15:04"))
		}
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintln(s.out, "\n=== SKIPPED SYMBOLS ===")
		symbols := make([]string, 0, len(result.Skipped))
		for sym := range result.Skipped {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			fmt.Fprintf(s.out, "%s: %v\n", sym, result.Skipped[sym])
		}
	}

	if path, err := report.SaveText(s.cfg.ReportDir, runID, metrics, result.Trades); err != nil {
		s.logger.Error(ctx, err, "Failed to save text report")
	} else {
		fmt.Fprintf(s.out, "\nReport: %s\n", path)
	}
	if path, err := report.SaveEquityChart(s.cfg.ReportDir, runID, result.EquityCurve, result.Trades); err != nil {
		s.logger.Error(ctx, err, "Failed to save equity chart")
	} else {
		fmt.Fprintf(s.out, "Equity chart: %s\n", path)
	}
	tradesPath := filepath.Join(s.cfg.ReportDir, "trades_"+runID+".csv")
	if err := utils.WriteTradesToCSV(result.Trades, tradesPath); err != nil {
		s.logger.Error(ctx, err, "Failed to export trades")
	} else {
		fmt.Fprintf(s.out, "Trades: %s\n", tradesPath)
	}

	if noJournal {
		return nil
	}
	run := &domain.BacktestRun{
		ID:             runID,
		StartedAt:      startedAt,
		PeriodStart:    result.Start,
		PeriodEnd:      result.End,
		Symbols:        framedSymbols(result),
		InitialCapital: metrics.InitialCapital,
		FinalCapital:   metrics.FinalCapital,
		TotalReturnPct: metrics.TotalReturnPct,
		MaxDrawdownPct: metrics.MaxDrawdownPct,
		WinRatePct:     metrics.WinRatePct,
		SharpeRatio:    metrics.SharpeRatio,
		TradeCount:     metrics.TotalTrades,
	}
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: s.cfg.DBPath, Logger: s.logger})
	if err != nil {
		s.logger.Error(ctx, err, "Run journal unavailable")
		return nil
	}
	defer repo.Close()
	if err := repo.SaveRun(ctx, run, result.Trades, result.EquityCurve); err != nil {
		s.logger.Error(ctx, err, "Failed to journal backtest run", map[string]interface{}{"runID": runID})
		return nil
	}
	fmt.Fprintf(s.out, "Run ID: %s\n", runID)
	return nil
}

func (s *session) runSweep(ctx context.Context, assets []config.Asset, series []backtesting.SymbolSeries,
	strategy ports.SignalGenerator, gate ports.Classifier, top int) error {
	opt, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		ParameterRanges: optimization.DefaultRanges(),
		Base:            s.backtestConfig(),
		InitialCapital:  s.cfg.InitialCapital,
		Weights:         config.Weights(assets),
		Annualization:   s.cfg.SharpeAnnualization,
	}, s.logger)
	if err != nil {
		return err
	}
	results, err := opt.Optimize(ctx, strategy, gate, series)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no sweep combination completed")
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Rank\tStop x ATR\tTarget x ATR\tTrades\tReturn %\tMax DD %\tWin %\tSharpe\tScore\t")
	for i, r := range results {
		if top > 0 && i >= top {
			break
		}
		m := r.Metrics.Rounded()
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t\n", i+1,
			r.Parameters[optimization.ParamStopMultiplier], r.Parameters[optimization.ParamTargetMultiplier],
			m.TotalTrades, m.TotalReturnPct, m.MaxDrawdownPct, m.WinRatePct, m.SharpeRatio, r.Score)
	}
	return w.Flush()
}

func framedSymbols(result *backtesting.BacktestResult) []string {
	symbols := make([]string, 0, len(result.Frames))
	for sym := range result.Frames {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
