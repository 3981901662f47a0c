package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// EMA returns the exponential moving average of values with alpha 2/(period+1), seeded with
// the first value rather than an SMA so that values after the warm-up do not depend on where
// the window starts being reported. The first period-1 values are NaN.
func EMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nanSeries(len(values))
	}
	alpha := 2 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return maskLeading(out, period-1)
}

// SMA returns the simple moving average of values.
func SMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nanSeries(len(values))
	}
	return maskLeading(talib.Sma(values, period), period-1)
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and uses high-low.
func TrueRange(highs, lows, cls []float64) []float64 {
	if len(highs) == 0 {
		return nil
	}
	if len(highs) < 2 {
		return []float64{highs[0] - lows[0]}
	}
	tr := talib.TRange(highs, lows, cls)
	tr[0] = highs[0] - lows[0]
	return tr
}

// ATR is the simple rolling mean of the true range.
func ATR(highs, lows, cls []float64, period int) []float64 {
	return SMA(TrueRange(highs, lows, cls), period)
}

// RSI returns Wilder's relative strength index.
func RSI(cls []float64, period int) []float64 {
	if period < 1 || len(cls) <= period {
		return nanSeries(len(cls))
	}
	return maskLeading(talib.Rsi(cls, period), period)
}

// ADX returns the average directional index.
func ADX(highs, lows, cls []float64, period int) []float64 {
	lookback := 2*period - 1
	if period < 1 || len(cls) <= lookback {
		return nanSeries(len(cls))
	}
	return maskLeading(talib.Adx(highs, lows, cls, period), lookback)
}

// PctChange returns values[i]/values[i-1]-1; the first element is NaN.
func PctChange(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			out[i] = values[i]/values[i-1] - 1
		}
	}
	return out
}

// RollingStd returns the sample standard deviation over a trailing window.
// Windows that contain NaN yield NaN.
func RollingStd(values []float64, period int) []float64 {
	if period < 2 || len(values) < period {
		return nanSeries(len(values))
	}
	// talib's running sums are poisoned by NaN, so feed zeros and mask affected windows.
	clean := make([]float64, len(values))
	lastNaN := -1
	for i, v := range values {
		if math.IsNaN(v) {
			lastNaN = i
			continue
		}
		clean[i] = v
	}
	std := talib.StdDev(clean, period, 1)
	scale := math.Sqrt(float64(period) / float64(period-1))
	for i := range std {
		std[i] *= scale
	}
	maskLeading(std, period-1)
	if lastNaN >= 0 {
		for i := 0; i < len(values); i++ {
			if windowHasNaN(values, i, period) {
				std[i] = math.NaN()
			}
		}
	}
	return std
}

func windowHasNaN(values []float64, end, period int) bool {
	start := end - period + 1
	if start < 0 {
		return true
	}
	for j := start; j <= end; j++ {
		if math.IsNaN(values[j]) {
			return true
		}
	}
	return false
}

// ZScore returns (v - rolling mean) / (rolling sample std + 1e-9).
func ZScore(values []float64, period int) []float64 {
	mean := SMA(values, period)
	std := RollingStd(values, period)
	out := nanSeries(len(values))
	for i := range values {
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) {
			continue
		}
		out[i] = (values[i] - mean[i]) / (std[i] + 1e-9)
	}
	return out
}
