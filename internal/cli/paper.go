package cli

import (
	"github.com/spf13/cobra"

	"trendBot/config"
	"trendBot/internal/adapters/jsonstore"
	"trendBot/internal/app"
	"trendBot/internal/portfolio"
	"trendBot/internal/strategy/backtesting"
)

func newPaperCmd(s *session) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Paper-trade the configured assets on live exchange klines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assets, err := s.Assets()
			if err != nil {
				return err
			}
			strategy, err := s.newStrategy()
			if err != nil {
				return err
			}
			gate, err := s.paperGate(ctx)
			if err != nil {
				return err
			}
			market, err := s.newMarket(s)
			if err != nil {
				return err
			}

			ledger := portfolio.NewLedger(s.cfg.InitialCapital, config.Weights(assets))
			engine, err := backtesting.NewEngine(s.backtestConfig(), strategy, gate, ledger, s.logger)
			if err != nil {
				return err
			}

			svc, err := app.NewPaperService(app.PaperConfig{
				Symbols:      config.Symbols(assets),
				Interval:     s.cfg.PaperInterval,
				HistoryLimit: s.cfg.PaperHistoryLimit,
				PollInterval: s.cfg.PaperPollInterval,
			}, s.logger, market, strategy, engine, jsonstore.NewAccountStore(s.cfg.PaperStateFile))
			if err != nil {
				return err
			}

			if once {
				if err := svc.Restore(ctx); err != nil {
					return err
				}
				svc.RunCycle(ctx)
				return writeAccount(s, svc.Snapshot())
			}
			return svc.Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single polling cycle and print the account")
	return cmd
}
