package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"trendBot/config"
	"trendBot/internal/classifier"
	"trendBot/internal/ports"
	"trendBot/internal/risk"
	"trendBot/internal/strategy/backtesting"
	"trendBot/internal/strategy/strategies"
	"trendBot/internal/utils"
)

const (
	modelFileName   = "classifier.json"
	datasetFileName = "dataset.csv"
)

func (s *session) modelPath() string   { return filepath.Join(s.cfg.ModelDir, modelFileName) }
func (s *session) datasetPath() string { return filepath.Join(s.cfg.DataDir, datasetFileName) }

func (s *session) klinesPath(a config.Asset) string {
	return filepath.Join(s.cfg.DataDir, utils.KlinesFileName(a.Symbol, a.Timeframe))
}

func (s *session) newStrategy() (*strategies.DualSupertrend, error) {
	c := s.cfg
	return strategies.NewDualSupertrend(strategies.DualSupertrendConfig{
		EMAPeriod:          c.EMAPeriod,
		SupertrendPeriod:   c.STPeriod,
		SupertrendMult:     c.STMultiplier,
		FastSupertrendPer:  c.STFastPeriod,
		FastSupertrendMult: c.STFastMultiplier,
		ATRPeriod:          c.ATRPeriod,
		RSIPeriod:          c.RSIPeriod,
		ADXPeriod:          c.ADXPeriod,
	}, s.logger)
}

func (s *session) backtestConfig() backtesting.BacktestConfig {
	return backtesting.BacktestConfig{
		WarmupBars:         s.cfg.WarmupBars,
		SizeFromAllocation: s.cfg.SizeFromAllocation,
		Risk: risk.RiskConfig{
			RiskPerTrade:     s.cfg.RiskPerTrade,
			StopMultiplier:   s.cfg.StopATRMultiplier,
			TargetMultiplier: s.cfg.TargetATRMultiplier,
		},
	}
}

// loadModel returns the trained classifier when USE_CLASSIFIER is set, or nil.
func (s *session) loadModel() (*classifier.Logistic, error) {
	if !s.cfg.UseClassifier {
		return nil, nil
	}
	model, err := classifier.Load(s.modelPath())
	if err != nil {
		return nil, fmt.Errorf("USE_CLASSIFIER is set but the model could not be loaded (run `trendbot train`): %w", err)
	}
	return model, nil
}

// backtestGate vetoes entries the model labels 0, i.e. a score below 0.5.
// It is nil, so every signal trades, when the classifier is disabled.
func (s *session) backtestGate(ctx context.Context) (ports.Classifier, error) {
	model, err := s.loadModel()
	if err != nil || model == nil {
		return nil, err
	}
	s.logger.Info(ctx, "Classifier gate enabled", map[string]interface{}{"model": s.modelPath()})
	return model, nil
}

// paperGate confirms live entries only when the score reaches CLASSIFIER_THRESHOLD.
func (s *session) paperGate(ctx context.Context) (ports.Classifier, error) {
	model, err := s.loadModel()
	if err != nil || model == nil {
		return nil, err
	}
	gate, err := classifier.NewThreshold(model, s.cfg.ClassifierThreshold)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Classifier gate enabled", map[string]interface{}{"model": s.modelPath(), "threshold": s.cfg.ClassifierThreshold})
	return gate, nil
}

// loadSeries reads the stored klines of every asset. Missing or malformed files are
// logged and left out; the error is non-nil only when nothing could be loaded.
func (s *session) loadSeries(ctx context.Context, assets []config.Asset) ([]backtesting.SymbolSeries, error) {
	series := make([]backtesting.SymbolSeries, 0, len(assets))
	var errs []error
	for _, a := range assets {
		path := s.klinesPath(a)
		klines, err := utils.ReadKlinesFromCSV(path, a.Symbol, a.Timeframe)
		if err != nil {
			s.logger.Warn(ctx, "Skipping asset without usable data", map[string]interface{}{"symbol": a.Symbol, "path": path, "reason": err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", a.Symbol, err))
			continue
		}
		series = append(series, backtesting.SymbolSeries{Symbol: a.Symbol, Klines: klines})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no price data loaded from %s (run `trendbot download`): %w", s.cfg.DataDir, errors.Join(errs...))
	}
	return series, nil
}
