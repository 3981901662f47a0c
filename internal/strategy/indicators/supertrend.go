package indicators

import "math"

// Supertrend returns the trend direction (+1 up, -1 down) and the active band.
// ATR values that are not yet defined count as zero, so the direction starts at +1
// and is only meaningful once the ATR window is filled.
func Supertrend(highs, lows, cls []float64, period int, multiplier float64) (trend, band []float64) {
	n := len(cls)
	trend = make([]float64, n)
	band = make([]float64, n)
	if n == 0 {
		return trend, band
	}

	atr := ATR(highs, lows, cls, period)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		a := atr[i]
		if math.IsNaN(a) {
			a = 0
		}
		hl2 := (highs[i] + lows[i]) / 2
		upper[i] = hl2 + multiplier*a
		lower[i] = hl2 - multiplier*a
	}

	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)
	finalUpper[0], finalLower[0] = upper[0], lower[0]
	trend[0] = 1
	band[0] = finalLower[0]

	for i := 1; i < n; i++ {
		if upper[i] < finalUpper[i-1] || cls[i-1] > finalUpper[i-1] {
			finalUpper[i] = upper[i]
		} else {
			finalUpper[i] = finalUpper[i-1]
		}
		if lower[i] > finalLower[i-1] || cls[i-1] < finalLower[i-1] {
			finalLower[i] = lower[i]
		} else {
			finalLower[i] = finalLower[i-1]
		}

		switch {
		case trend[i-1] == 1 && cls[i] < finalLower[i-1]:
			trend[i] = -1
		case trend[i-1] == 1:
			trend[i] = 1
		case cls[i] > finalUpper[i-1]:
			trend[i] = 1
		default:
			trend[i] = -1
		}

		if trend[i] == 1 {
			band[i] = finalLower[i]
		} else {
			band[i] = finalUpper[i]
		}
	}
	return trend, band
}
