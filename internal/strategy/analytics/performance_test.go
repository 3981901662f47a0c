package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/internal/domain"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func trade(pnl float64, exit time.Time) domain.Trade {
	return domain.Trade{
		Symbol:      "BTCUSDT",
		EntryPrice:  100,
		ExitPrice:   100 + pnl,
		Size:        1,
		PNL:         pnl,
		EntryTime:   exit.Add(-2 * time.Hour),
		ExitTime:    exit,
		CloseReason: domain.CloseReasonTakeProfit,
	}
}

func TestCalculateMetrics_Degenerate(t *testing.T) {
	end := start.Add(48 * time.Hour)
	tests := []struct {
		name   string
		trades []domain.Trade
		equity []float64
	}{
		{"no trades", nil, []float64{1000}},
		{"single equity point", []domain.Trade{trade(10, start)}, []float64{1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CalculateMetrics(tt.trades, tt.equity, 1000, start, end, DefaultAnnualization)
			assert.Equal(t, 1000.0, m.InitialCapital)
			assert.Equal(t, 1000.0, m.FinalCapital)
			assert.Equal(t, 0.0, m.NetProfit)
			assert.Equal(t, 0.0, m.TotalReturnPct)
			assert.Equal(t, 0.0, m.MaxDrawdownPct)
			assert.Equal(t, 0.0, m.WinRatePct)
			assert.Equal(t, 0.0, m.SharpeRatio)
			assert.Equal(t, 0, m.TotalTrades)
			assert.Equal(t, 48*time.Hour, m.Duration)
		})
	}
}

func TestCalculateMetrics(t *testing.T) {
	trades := []domain.Trade{
		trade(20, start.Add(1*time.Hour)),
		trade(-30, start.Add(2*time.Hour)),
		trade(40, start.Add(3*time.Hour)),
		trade(-5, start.Add(24*31*time.Hour)),
	}
	equity := []float64{100, 120, 90, 130, 125}

	m := CalculateMetrics(trades, equity, 100, start, start.Add(24*40*time.Hour), DefaultAnnualization)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.Equal(t, 50.0, m.WinRatePct)
	assert.Equal(t, 125.0, m.FinalCapital)
	assert.Equal(t, 25.0, m.NetProfit)
	assert.Equal(t, 25.0, m.TotalReturnPct)
	assert.InDelta(t, 25.0, m.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 60.0/35.0, m.ProfitFactor, 1e-12)
	assert.Equal(t, 30.0, m.AverageWin)
	assert.Equal(t, -17.5, m.AverageLoss)
	assert.Equal(t, 40.0, m.BestTrade)
	assert.Equal(t, -30.0, m.WorstTrade)
	assert.Equal(t, 1, m.MaxConsecutiveWins)
	assert.Equal(t, 1, m.MaxConsecutiveLosses)
	assert.Equal(t, 2*time.Hour, m.AverageTradeDuration)
	assert.Equal(t, 30.0, m.MonthlyReturns["2024-01"])
	assert.Equal(t, -5.0, m.MonthlyReturns["2024-02"])
	assert.Greater(t, m.SharpeRatio, 0.0)

	monthly := m.GetMonthlyReturns()
	require.Len(t, monthly, 2)
	assert.Equal(t, 30.0, monthly[0].Return)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"strictly increasing", []float64{100, 110, 120, 130}, 0},
		{"dip and recovery", []float64{100, 120, 90, 130}, 0.25},
		{"deepest of two dips", []float64{100, 80, 120, 60}, 0.5},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.equity), 1e-12)
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	// Returns 0.1 and -0.1 average to 0.
	assert.InDelta(t, 0.0, SharpeRatio([]float64{100, 110, 99}, DefaultAnnualization), 1e-12)

	// Constant returns have zero variance.
	assert.Equal(t, 0.0, SharpeRatio([]float64{100, 110, 121}, DefaultAnnualization))

	// A single return is not enough.
	assert.Equal(t, 0.0, SharpeRatio([]float64{100, 110}, DefaultAnnualization))

	// Returns 0.1 and 0.05: mean 0.075, population std 0.025.
	got := SharpeRatio([]float64{100, 110, 115.5}, 1)
	assert.InDelta(t, 3.0, got, 1e-9)
	assert.InDelta(t, 3.0*math.Sqrt(DefaultAnnualization), SharpeRatio([]float64{100, 110, 115.5}, DefaultAnnualization), 1e-6)
}

func TestRounded(t *testing.T) {
	m := &PerformanceMetrics{
		InitialCapital: 1000,
		FinalCapital:   1234.5678,
		WinRatePct:     66.666666,
		SharpeRatio:    1.005,
		MonthlyReturns: map[string]float64{"2024-01": 12.345},
	}
	r := m.Rounded()
	assert.Equal(t, 1234.57, r.FinalCapital)
	assert.Equal(t, 66.67, r.WinRatePct)
	assert.Equal(t, 1.01, r.SharpeRatio)
	assert.Equal(t, 12.35, r.MonthlyReturns["2024-01"])
	assert.Equal(t, 1234.5678, m.FinalCapital, "original untouched")
}
