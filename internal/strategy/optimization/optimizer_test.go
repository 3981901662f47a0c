package optimization

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/internal/adapters/logger"
	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/risk"
	"trendBot/internal/strategy/analytics"
	"trendBot/internal/strategy/backtesting"
)

// MockStrategy signals on the first bar only, with a constant ATR of 2.
type MockStrategy struct{}

func (m *MockStrategy) Name() string            { return "MockStrategy" }
func (m *MockStrategy) RequiredDataPoints() int { return 1 }

func (m *MockStrategy) Prepare(symbol string, klines []*domain.Kline) (*domain.Frame, error) {
	frame := domain.NewFrame(symbol, klines)
	atr := make([]float64, len(klines))
	frame.Signals = make([]bool, len(klines))
	for i := range klines {
		atr[i] = 2
	}
	frame.Signals[0] = true
	frame.Set(domain.ColATR, atr)
	return frame, nil
}

func testSeries() []backtesting.SymbolSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := []*domain.Kline{
		{OpenTime: t0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{OpenTime: t0.Add(time.Hour), Open: 100, High: 105, Low: 96.5, Close: 100, Volume: 1},
	}
	return []backtesting.SymbolSeries{{Symbol: "BTCUSDT", Klines: klines}}
}

func TestGenerateParameterCombinations(t *testing.T) {
	tests := []struct {
		name   string
		ranges []ParameterRange
		want   []map[string]float64
	}{
		{
			name:   "float drift keeps the last value",
			ranges: []ParameterRange{{Name: ParamRiskPerTrade, Min: 0.01, Max: 0.03, Step: 0.01}},
			want:   []map[string]float64{{ParamRiskPerTrade: 0.01}, {ParamRiskPerTrade: 0.02}, {ParamRiskPerTrade: 0.03}},
		},
		{
			name: "grid order is outer parameter first",
			ranges: []ParameterRange{
				{Name: ParamStopMultiplier, Min: 1, Max: 2, Step: 1, IsInt: true},
				{Name: ParamTargetMultiplier, Min: 2, Max: 3, Step: 1},
			},
			want: []map[string]float64{
				{ParamStopMultiplier: 1, ParamTargetMultiplier: 2},
				{ParamStopMultiplier: 1, ParamTargetMultiplier: 3},
				{ParamStopMultiplier: 2, ParamTargetMultiplier: 2},
				{ParamStopMultiplier: 2, ParamTargetMultiplier: 3},
			},
		},
		{name: "no ranges is one empty combination", want: []map[string]float64{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOptimizer(OptimizerConfig{ParameterRanges: tt.ranges, InitialCapital: 1000}, logger.Nop{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.generateParameterCombinations())
		})
	}

	o, err := NewOptimizer(OptimizerConfig{ParameterRanges: DefaultRanges(), InitialCapital: 1000}, logger.Nop{})
	require.NoError(t, err)
	assert.Len(t, o.generateParameterCombinations(), 4*5)
}

func TestNewOptimizer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config OptimizerConfig
	}{
		{"unknown parameter", OptimizerConfig{InitialCapital: 1000, ParameterRanges: []ParameterRange{{Name: "leverage", Min: 1, Max: 2, Step: 1}}}},
		{"zero step", OptimizerConfig{InitialCapital: 1000, ParameterRanges: []ParameterRange{{Name: ParamStopMultiplier, Min: 1, Max: 2}}}},
		{"inverted range", OptimizerConfig{InitialCapital: 1000, ParameterRanges: []ParameterRange{{Name: ParamStopMultiplier, Min: 2, Max: 1, Step: 1}}}},
		{"no capital", OptimizerConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOptimizer(tt.config, logger.Nop{})
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}

func TestOptimize_RanksCombinations(t *testing.T) {
	o, err := NewOptimizer(OptimizerConfig{
		ParameterRanges: []ParameterRange{
			{Name: ParamStopMultiplier, Min: 1, Max: 2, Step: 1},
			{Name: ParamTargetMultiplier, Min: 2, Max: 3, Step: 1},
		},
		Base:           backtesting.BacktestConfig{Risk: risk.DefaultRiskConfig()},
		InitialCapital: 1000,
		Concurrency:    2,
	}, logger.Nop{})
	require.NoError(t, err)

	results, err := o.Optimize(context.Background(), &MockStrategy{}, nil, testSeries())
	require.NoError(t, err)
	require.Len(t, results, 4)

	// stop 96 survives the 96.5 low and target 104 is reached.
	best := results[0]
	assert.Equal(t, map[string]float64{ParamStopMultiplier: 2, ParamTargetMultiplier: 2}, best.Parameters)
	assert.Equal(t, 1, best.Metrics.TotalTrades)
	assert.InDelta(t, 1.0, best.Metrics.TotalReturnPct, 1e-9)

	// Tight stops lose; ties keep grid order.
	assert.Equal(t, 1.0, results[1].Parameters[ParamStopMultiplier])
	assert.Equal(t, 2.0, results[1].Parameters[ParamTargetMultiplier])
	assert.Less(t, results[1].Metrics.TotalReturnPct, 0.0)

	// Wide stop and far target never closes.
	last := results[3]
	assert.Equal(t, map[string]float64{ParamStopMultiplier: 2, ParamTargetMultiplier: 3}, last.Parameters)
	assert.Equal(t, 0.0, last.Score)
}

func TestOptimize_Cancelled(t *testing.T) {
	o, err := NewOptimizer(OptimizerConfig{
		ParameterRanges: DefaultRanges(),
		Base:            backtesting.BacktestConfig{Risk: risk.DefaultRiskConfig()},
		InitialCapital:  1000,
	}, logger.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Optimize(ctx, &MockStrategy{}, nil, testSeries())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultScoreFunction(t *testing.T) {
	assert.Equal(t, 0.0, DefaultScoreFunction(nil))
	assert.Equal(t, 0.0, DefaultScoreFunction(&analytics.PerformanceMetrics{}))

	good := &analytics.PerformanceMetrics{TotalTrades: 10, TotalReturnPct: 20, WinRatePct: 60, MaxDrawdownPct: 5, SharpeRatio: 1.5}
	bad := &analytics.PerformanceMetrics{TotalTrades: 10, TotalReturnPct: -10, WinRatePct: 30, MaxDrawdownPct: 15, SharpeRatio: -1}
	assert.Greater(t, DefaultScoreFunction(good), DefaultScoreFunction(bad))
	assert.InDelta(t, 0.08+0.12+0.19+0.1, DefaultScoreFunction(good), 1e-9)
}
