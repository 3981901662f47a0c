package domain

import "math"

// FeatureOrder is the column order shared by dataset building, training and inference.
var FeatureOrder = [5]string{"atr_pct", "return_std", "rsi", "adx", "volume_z"}

// Features is the classifier input for a single bar.
type Features struct {
	ATRPct    float64 // ATR divided by close
	ReturnStd float64 // Rolling stddev of bar returns
	RSI       float64
	ADX       float64
	VolumeZ   float64 // Volume z-score against its rolling window
}

// Vector returns the features in FeatureOrder.
func (f Features) Vector() [5]float64 {
	return [5]float64{f.ATRPct, f.ReturnStd, f.RSI, f.ADX, f.VolumeZ}
}

// FeaturesFromVector is the inverse of Vector.
func FeaturesFromVector(v [5]float64) Features {
	return Features{ATRPct: v[0], ReturnStd: v[1], RSI: v[2], ADX: v[3], VolumeZ: v[4]}
}

// Valid reports whether every feature is a finite number.
func (f Features) Valid() bool {
	for _, v := range f.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
