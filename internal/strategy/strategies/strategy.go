package strategies

import (
	"fmt"
	"math"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

// BaseStrategy provides common functionality for strategies
type BaseStrategy struct {
	logger ports.Logger
}

// NewBaseStrategy creates a new base strategy instance
func NewBaseStrategy(logger ports.Logger) *BaseStrategy {
	return &BaseStrategy{
		logger: logger,
	}
}

// ValidateKlines checks that a series is usable: non-empty, no nil bars, finite positive
// prices, high >= low, and strictly increasing open times.
func ValidateKlines(klines []*domain.Kline) error {
	if len(klines) == 0 {
		return ports.ErrMissingData
	}
	for i, k := range klines {
		if k == nil {
			return fmt.Errorf("bar %d is nil: %w", i, ports.ErrMalformedSeries)
		}
		for _, v := range []float64{k.Open, k.High, k.Low, k.Close, k.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d has a non-finite value: %w", i, ports.ErrMalformedSeries)
			}
		}
		if k.Close <= 0 || k.Low <= 0 {
			return fmt.Errorf("bar %d has a non-positive price: %w", i, ports.ErrMalformedSeries)
		}
		if k.High < k.Low {
			return fmt.Errorf("bar %d has high %.8f below low %.8f: %w", i, k.High, k.Low, ports.ErrMalformedSeries)
		}
		if i > 0 && !k.OpenTime.After(klines[i-1].OpenTime) {
			return fmt.Errorf("bar %d is not after bar %d: %w", i, i-1, ports.ErrMalformedSeries)
		}
	}
	return nil
}
