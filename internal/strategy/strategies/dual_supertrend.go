package strategies

import (
	"context"
	"fmt"
	"math"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/strategy/indicators"
)

// Rolling window used by the return-volatility and volume z-score features.
const featureWindow = 20

// DualSupertrendConfig holds configuration for the DualSupertrend strategy
type DualSupertrendConfig struct {
	EMAPeriod          int     // Trend filter (e.g., 200)
	SupertrendPeriod   int     // Main band ATR period (e.g., 10)
	SupertrendMult     float64 // Main band width (e.g., 3.0)
	FastSupertrendPer  int     // Fast band ATR period (e.g., 7)
	FastSupertrendMult float64 // Fast band width (e.g., 2.0)
	ATRPeriod          int     // Volatility used for stops (e.g., 14)
	RSIPeriod          int     // Feature only
	ADXPeriod          int     // Feature only
}

// DefaultDualSupertrendConfig returns EMA 200, Supertrend 10/3 and 7/2, ATR/RSI/ADX 14.
func DefaultDualSupertrendConfig() DualSupertrendConfig {
	return DualSupertrendConfig{
		EMAPeriod:          200,
		SupertrendPeriod:   10,
		SupertrendMult:     3.0,
		FastSupertrendPer:  7,
		FastSupertrendMult: 2.0,
		ATRPeriod:          14,
		RSIPeriod:          14,
		ADXPeriod:          14,
	}
}

// DualSupertrend signals long while both Supertrend bands point up and price is above the EMA.
type DualSupertrend struct {
	*BaseStrategy
	config DualSupertrendConfig
	ema    *indicators.MovingAverage
	atr    *indicators.ATRIndicator
	rsi    *indicators.RSIIndicator
	adx    *indicators.ADXIndicator
	stMain *indicators.SupertrendIndicator
	stFast *indicators.SupertrendIndicator
}

// NewDualSupertrend creates a new DualSupertrend strategy instance
func NewDualSupertrend(config DualSupertrendConfig, logger ports.Logger) (*DualSupertrend, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if config.EMAPeriod <= 0 || config.SupertrendPeriod <= 0 || config.FastSupertrendPer <= 0 ||
		config.ATRPeriod <= 0 || config.RSIPeriod <= 0 || config.ADXPeriod <= 0 {
		return nil, fmt.Errorf("strategy periods must be positive: %w", ports.ErrConfigurationError)
	}
	if config.SupertrendMult <= 0 || config.FastSupertrendMult <= 0 {
		return nil, fmt.Errorf("supertrend multipliers must be positive: %w", ports.ErrConfigurationError)
	}

	return &DualSupertrend{
		BaseStrategy: NewBaseStrategy(logger),
		config:       config,
		ema: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.EMAPeriod},
			Type:            indicators.ExponentialMovingAverage,
		}),
		atr: indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod}}),
		rsi: indicators.NewRSI(indicators.RSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.RSIPeriod}}),
		adx: indicators.NewADX(indicators.ADXConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.ADXPeriod}}),
		stMain: indicators.NewSupertrend(indicators.SupertrendConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.SupertrendPeriod},
			Multiplier:      config.SupertrendMult,
		}),
		stFast: indicators.NewSupertrend(indicators.SupertrendConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.FastSupertrendPer},
			Multiplier:      config.FastSupertrendMult,
		}),
	}, nil
}

// Name returns the name of the strategy
func (s *DualSupertrend) Name() string {
	return "DualSupertrend"
}

// RequiredDataPoints returns the longest indicator warm-up.
func (s *DualSupertrend) RequiredDataPoints() int {
	required := featureWindow + 1
	for _, n := range []int{
		s.ema.RequiredDataPoints(),
		s.atr.RequiredDataPoints(),
		s.rsi.RequiredDataPoints(),
		s.adx.RequiredDataPoints(),
		s.stMain.RequiredDataPoints(),
		s.stFast.RequiredDataPoints(),
	} {
		if n > required {
			required = n
		}
	}
	return required
}

// Prepare validates the series and attaches indicator columns and the buy signal.
func (s *DualSupertrend) Prepare(symbol string, klines []*domain.Kline) (*domain.Frame, error) {
	if err := ValidateKlines(klines); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	frame := domain.NewFrame(symbol, klines)
	cls, vols := frame.Closes(), frame.Volumes()

	ema := s.ema.Compute(klines)
	atr := s.atr.Compute(klines)

	atrPct := make([]float64, len(cls))
	for i := range cls {
		atrPct[i] = atr[i] / cls[i]
	}

	frame.Set(domain.ColEMA, ema)
	frame.Set(domain.ColATR, atr)
	frame.Set(domain.ColRSI, s.rsi.Compute(klines))
	frame.Set(domain.ColADX, s.adx.Compute(klines))
	frame.Set(domain.ColSTMain, s.stMain.Compute(klines))
	frame.Set(domain.ColSTFast, s.stFast.Compute(klines))
	frame.Set(domain.ColATRPct, atrPct)
	frame.Set(domain.ColReturnStd, indicators.RollingStd(indicators.PctChange(cls), featureWindow))
	frame.Set(domain.ColVolumeZ, indicators.ZScore(vols, featureWindow))

	frame.Signals = make([]bool, len(cls))
	for i := range cls {
		frame.Signals[i] = s.signalAt(frame, i)
	}

	s.logger.Debug(context.Background(), "Prepared frame", map[string]interface{}{
		"symbol": symbol,
		"bars":   len(klines),
	})
	return frame, nil
}

func (s *DualSupertrend) signalAt(frame *domain.Frame, i int) bool {
	ema := frame.Value(domain.ColEMA, i)
	if math.IsNaN(ema) {
		return false
	}
	return frame.Value(domain.ColSTMain, i) == 1 &&
		frame.Value(domain.ColSTFast, i) == 1 &&
		frame.Klines[i].Close > ema
}
