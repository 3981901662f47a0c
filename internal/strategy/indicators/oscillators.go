package indicators

import "trendBot/internal/domain"

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATRIndicator implements the Average True Range indicator
type ATRIndicator struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATRIndicator {
	return &ATRIndicator{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATRIndicator) Name() string { return "ATR" }

// Compute returns the ATR series.
func (a *ATRIndicator) Compute(klines []*domain.Kline) []float64 {
	h, l, c := hlc(klines)
	return ATR(h, l, c, a.Config.Period)
}

// RSIConfig holds configuration for the Relative Strength Index indicator
type RSIConfig struct {
	IndicatorConfig
}

// RSIIndicator implements the Relative Strength Index indicator
type RSIIndicator struct {
	BaseIndicator
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) *RSIIndicator {
	return &RSIIndicator{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (r *RSIIndicator) Name() string { return "RSI" }

// RequiredDataPoints needs one extra bar for the first price change.
func (r *RSIIndicator) RequiredDataPoints() int { return r.Config.Period + 1 }

// Compute returns the RSI series.
func (r *RSIIndicator) Compute(klines []*domain.Kline) []float64 {
	return RSI(closes(klines), r.Config.Period)
}

// ADXConfig holds configuration for the Average Directional Index indicator
type ADXConfig struct {
	IndicatorConfig
}

// ADXIndicator implements the Average Directional Index indicator
type ADXIndicator struct {
	BaseIndicator
}

// NewADX creates a new ADX indicator instance
func NewADX(config ADXConfig) *ADXIndicator {
	return &ADXIndicator{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ADXIndicator) Name() string { return "ADX" }

// RequiredDataPoints is twice the period: one smoothing pass for DI, one for DX.
func (a *ADXIndicator) RequiredDataPoints() int { return 2 * a.Config.Period }

// Compute returns the ADX series.
func (a *ADXIndicator) Compute(klines []*domain.Kline) []float64 {
	h, l, c := hlc(klines)
	return ADX(h, l, c, a.Config.Period)
}

// SupertrendConfig holds configuration for the Supertrend indicator
type SupertrendConfig struct {
	IndicatorConfig
	Multiplier float64
}

// SupertrendIndicator exposes the Supertrend direction as an Indicator.
type SupertrendIndicator struct {
	BaseIndicator
	multiplier float64
}

// NewSupertrend creates a new Supertrend indicator instance
func NewSupertrend(config SupertrendConfig) *SupertrendIndicator {
	return &SupertrendIndicator{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		multiplier:    config.Multiplier,
	}
}

// Name returns the name of the indicator
func (s *SupertrendIndicator) Name() string { return "Supertrend" }

// Compute returns the direction series (+1/-1).
func (s *SupertrendIndicator) Compute(klines []*domain.Kline) []float64 {
	h, l, c := hlc(klines)
	trend, _ := Supertrend(h, l, c, s.Config.Period, s.multiplier)
	return trend
}
