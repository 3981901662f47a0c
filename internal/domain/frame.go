package domain

import "math"

// Column names attached to a Frame by the indicator and strategy layers.
const (
	ColEMA       = "ema"
	ColATR       = "atr"
	ColRSI       = "rsi"
	ColADX       = "adx"
	ColSTMain    = "st_main"
	ColSTFast    = "st_fast"
	ColATRPct    = "atr_pct"
	ColReturnStd = "return_std"
	ColVolumeZ   = "volume_z"
)

// Frame is one symbol's bar series enriched with indicator columns and a buy signal.
type Frame struct {
	Symbol  string
	Klines  []*Kline
	Columns map[string][]float64
	Signals []bool
}

// NewFrame wraps klines into a frame with no derived columns.
func NewFrame(symbol string, klines []*Kline) *Frame {
	return &Frame{
		Symbol:  symbol,
		Klines:  klines,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of bars.
func (f *Frame) Len() int {
	return len(f.Klines)
}

// Set attaches a derived column. Its length must match the bar count.
func (f *Frame) Set(name string, values []float64) {
	f.Columns[name] = values
}

// Value returns column[name][i], or NaN if the column or index is missing.
func (f *Frame) Value(name string, i int) float64 {
	col, ok := f.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Signal reports the buy signal at bar i.
func (f *Frame) Signal(i int) bool {
	return i >= 0 && i < len(f.Signals) && f.Signals[i]
}

// Closes extracts the close price series.
func (f *Frame) Closes() []float64 {
	out := make([]float64, len(f.Klines))
	for i, k := range f.Klines {
		out[i] = k.Close
	}
	return out
}

// Volumes extracts the volume series.
func (f *Frame) Volumes() []float64 {
	out := make([]float64, len(f.Klines))
	for i, k := range f.Klines {
		out[i] = k.Volume
	}
	return out
}
