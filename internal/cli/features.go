package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trendBot/internal/strategy/features"
)

func newFeaturesCmd(s *session) *cobra.Command {
	var (
		outPath   string
		horizon   int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Build the labeled feature dataset from stored klines",
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

			var rows []features.Row
			for _, sr := range series {
				frame, err := strategy.Prepare(sr.Symbol, sr.Klines)
				if err != nil {
					s.logger.Warn(ctx, "Skipping symbol", map[string]interface{}{"symbol": sr.Symbol, "reason": err.Error()})
					continue
				}
				symRows := features.BuildDataset(frame, s.cfg.WarmupBars, horizon, threshold)
				s.logger.Info(ctx, "Dataset rows built", map[string]interface{}{"symbol": sr.Symbol, "rows": len(symRows)})
				rows = append(rows, symRows...)
			}
			if len(rows) == 0 {
				return fmt.Errorf("no labeled rows produced; check warm-up and data length")
			}

			if outPath == "" {
				outPath = s.datasetPath()
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := features.WriteCSV(f, rows); err != nil {
				return fmt.Errorf("failed to write dataset: %w", err)
			}

			positives := 0
			for _, r := range rows {
				positives += r.Label
			}
			fmt.Fprintf(s.out, "Wrote %d rows (%d positive) to %s\n", len(rows), positives, outPath)
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "dataset CSV path (default DATA_DIR/dataset.csv)")
	cmd.Flags().IntVar(&horizon, "horizon", features.DefaultHorizon, "bars ahead used for the label")
	cmd.Flags().Float64Var(&threshold, "threshold", features.DefaultThreshold, "forward return needed for a positive label")
	return cmd
}
