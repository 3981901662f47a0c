// Package cli wires configuration, adapters and services into the trendbot commands.
package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"trendBot/config"
	"trendBot/internal/adapters/binanceclient"
	"trendBot/internal/adapters/logger"
	"trendBot/internal/ports"
)

// session carries what every subcommand needs once flags are parsed.
type session struct {
	cfg    *config.Config
	logger ports.Logger
	out    io.Writer

	assetsOverride string
	assets         []config.Asset

	// newMarket builds the exchange client; replaced in tests.
	newMarket func(s *session) (ports.MarketData, error)
}

// NewRootCmd builds the trendbot command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&session{newMarket: binanceMarket})
}

func newRootCmd(s *session) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "trendbot",
		Short:         "Dual-Supertrend backtester, paper trader and data tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd, envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load before reading the environment (default .env)")
	root.PersistentFlags().StringVar(&s.assetsOverride, "assets", "", "assets YAML file (overrides ASSETS_FILE)")

	root.AddCommand(
		newDownloadCmd(s),
		newFeaturesCmd(s),
		newTrainCmd(s),
		newBacktestCmd(s),
		newPaperCmd(s),
		newRunsCmd(s),
	)
	return root
}

func (s *session) load(cmd *cobra.Command, envFile string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.LoadConfig(files...)
	if err != nil {
		return err
	}
	if s.assetsOverride != "" {
		cfg.AssetsFile = s.assetsOverride
	}
	s.cfg = cfg
	s.out = cmd.OutOrStdout()
	s.logger = logger.NewWriterLogger(cmd.ErrOrStderr(), cfg.LogLevel, log.LstdFlags)
	return nil
}

func binanceMarket(s *session) (ports.MarketData, error) {
	return binanceclient.New(binanceclient.Config{
		APIKey:            s.cfg.APIKey,
		SecretKey:         s.cfg.SecretKey,
		UseTestnet:        s.cfg.IsTestnet,
		Logger:            s.logger,
		RequestsPerSecond: s.cfg.DownloadRequestsPerSecond,
	})
}

// Assets loads the asset list on first use; not every command needs it.
func (s *session) Assets() ([]config.Asset, error) {
	if s.assets != nil {
		return s.assets, nil
	}
	assets, err := config.LoadAssets(s.cfg.AssetsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	s.assets = assets
	return assets, nil
}
