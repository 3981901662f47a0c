package cli

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trendBot/config"
	"trendBot/internal/ports"
	"trendBot/internal/utils"
)

func newDownloadCmd(s *session) *cobra.Command {
	var (
		symbols  []string
		endDate  string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical klines for the configured assets into DATA_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assets, err := s.Assets()
			if err != nil {
				return err
			}
			assets = filterAssets(assets, symbols)
			if len(assets) == 0 {
				return fmt.Errorf("none of %v is listed in %s", symbols, s.cfg.AssetsFile)
			}

			end := time.Now().UTC()
			if endDate != "" {
				if end, err = time.Parse("2006-01-02", endDate); err != nil {
					return fmt.Errorf("invalid --end %q, want YYYY-MM-DD: %w", endDate, err)
				}
			}

			market, err := s.newMarket(s)
			if err != nil {
				return err
			}

			// The client's limiter paces requests across all workers.
			var failed atomic.Int32
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(parallel, 1))
			for _, a := range assets {
				a := a
				g.Go(func() error {
					if err := s.downloadAsset(gctx, market, a, end); err != nil {
						failed.Add(1)
						s.logger.Error(gctx, err, "Download failed", map[string]interface{}{"symbol": a.Symbol})
					}
					return nil
				})
			}
			_ = g.Wait()
			if err := ctx.Err(); err != nil {
				return err
			}
			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d of %d downloads failed", n, len(assets))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "only download these symbols")
	cmd.Flags().StringVar(&endDate, "end", "", "last day to download, YYYY-MM-DD (default now)")
	cmd.Flags().IntVar(&parallel, "parallel", 2, "assets downloaded concurrently")
	return cmd
}

func (s *session) downloadAsset(ctx context.Context, market ports.MarketData, a config.Asset, end time.Time) error {
	start, err := a.Start()
	if a.StartDate == "" || err != nil {
		return fmt.Errorf("asset %s has no usable start_date", a.Symbol)
	}
	klines, err := market.GetKlinesRange(ctx, a.Symbol, a.Timeframe, start, end)
	if err != nil {
		return err
	}
	if len(klines) == 0 {
		return fmt.Errorf("exchange returned no klines for %s %s", a.Symbol, a.Timeframe)
	}
	path := s.klinesPath(a)
	if err := utils.WriteKlinesToCSV(klines, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.logger.Info(ctx, "Klines saved", map[string]interface{}{
		"symbol": a.Symbol,
		"rows":   len(klines),
		"first":  klines[0].OpenTime.Format(time.RFC3339),
		"last":   klines[len(klines)-1].OpenTime.Format(time.RFC3339),
		"path":   path,
	})
	return nil
}

func filterAssets(assets []config.Asset, symbols []string) []config.Asset {
	if len(symbols) == 0 {
		return assets
	}
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[strings.ToUpper(strings.TrimSpace(sym))] = true
	}
	var out []config.Asset
	for _, a := range assets {
		if want[a.Symbol] {
			out = append(out, a)
		}
	}
	return out
}
