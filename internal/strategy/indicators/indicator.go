package indicators

import (
	"math"

	"trendBot/internal/domain"
)

// Indicator computes a derived column over a whole bar series.
// The result has the same length as the input with NaN until the window is filled.
type Indicator interface {
	// Compute returns the indicator series for the given klines
	Compute(klines []*domain.Kline) []float64

	// RequiredDataPoints returns the minimum number of klines before values are defined
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// maskLeading replaces the first lookback values (zero-filled by talib) with NaN.
func maskLeading(series []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func closes(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

func hlc(klines []*domain.Kline) (highs, lows, cls []float64) {
	highs = make([]float64, len(klines))
	lows = make([]float64, len(klines))
	cls = make([]float64, len(klines))
	for i, k := range klines {
		highs[i] = k.High
		lows[i] = k.Low
		cls[i] = k.Close
	}
	return highs, lows, cls
}
