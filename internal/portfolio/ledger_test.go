package portfolio

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/config"
	"trendBot/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLedger_OpenClose(t *testing.T) {
	l := NewLedger(1000, nil)

	outcome := l.Open("BTCUSDT", 100, 2, 95, 110, t0)
	require.Equal(t, domain.OutcomeOpened, outcome)
	assert.InDelta(t, 800.0, l.Capital(), 1e-9)

	pos, ok := l.Position("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 2.0, pos.Size)
	assert.Equal(t, "BTCUSDT", pos.Symbol)

	pnl := l.Close("BTCUSDT", 110, t0.Add(time.Hour), domain.CloseReasonTakeProfit)
	assert.InDelta(t, 20.0, pnl, 1e-9)
	assert.InDelta(t, 1020.0, l.Capital(), 1e-9)
	assert.False(t, l.HasPosition("BTCUSDT"))

	trades := l.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.CloseReasonTakeProfit, trades[0].CloseReason)
	last, ok := l.LastTrade()
	require.True(t, ok)
	assert.Equal(t, trades[0], last)
	assert.InDelta(t, 10.0, trades[0].PNLPercent, 1e-9)
	assert.Equal(t, t0, trades[0].EntryTime)
	assert.Equal(t, []float64{1000, 1020}, l.EquityCurve())
}

func TestLedger_OpenRejectsSecondPosition(t *testing.T) {
	l := NewLedger(1000, nil)
	require.Equal(t, domain.OutcomeOpened, l.Open("ETHUSDT", 10, 1, 9, 12, t0))

	outcome := l.Open("ETHUSDT", 11, 1, 10, 13, t0)
	assert.Equal(t, domain.OutcomeAlreadyOpen, outcome)
	assert.InDelta(t, 990.0, l.Capital(), 1e-9)
	assert.Len(t, l.Positions(), 1)
}

func TestLedger_OpenClampsToCapital(t *testing.T) {
	l := NewLedger(50, nil)

	outcome := l.Open("BTCUSDT", 100, 1, 95, 110, t0)
	require.Equal(t, domain.OutcomeOpened, outcome)

	pos, _ := l.Position("BTCUSDT")
	assert.InDelta(t, 0.5, pos.Size, 1e-12)
	assert.Equal(t, 0.0, l.Capital())
}

func TestLedger_OpenWithNoCapital(t *testing.T) {
	l := NewLedger(100, nil)
	require.Equal(t, domain.OutcomeOpened, l.Open("A", 10, 10, 9, 12, t0))
	require.Equal(t, 0.0, l.Capital())

	assert.Equal(t, domain.OutcomeSkippedInsufficientCapital, l.Open("B", 10, 1, 9, 12, t0))
	assert.False(t, l.HasPosition("B"))
}

func TestLedger_OpenZeroSize(t *testing.T) {
	l := NewLedger(100, nil)
	assert.Equal(t, domain.OutcomeSkippedZeroSize, l.Open("A", 10, 0, 9, 12, t0))
	assert.Equal(t, 100.0, l.Capital())
}

func TestLedger_CloseWithoutPositionIsNoop(t *testing.T) {
	l := NewLedger(1000, nil)

	pnl := l.Close("BTCUSDT", 123, t0, domain.CloseReasonStopLoss)

	assert.Equal(t, 0.0, pnl)
	assert.Equal(t, 1000.0, l.Capital())
	assert.Empty(t, l.Trades())
	_, ok := l.LastTrade()
	assert.False(t, ok)
	assert.Equal(t, []float64{1000}, l.EquityCurve())
}

func TestLedger_Allocate(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		symbol  string
		want    float64
	}{
		{"configured weight", map[string]float64{"BTCUSDT": 0.6, "ETHUSDT": 0.4}, "BTCUSDT", 600},
		{"unconfigured gets 1/N", map[string]float64{"BTCUSDT": 0.6, "ETHUSDT": 0.4}, "SOLUSDT", 500},
		{"zero weight gets 1/N", map[string]float64{"BTCUSDT": 0.5, "ETHUSDT": 0.25, "SOLUSDT": 0, "BNBUSDT": 0}, "SOLUSDT", 250},
		{"all unweighted", map[string]float64{"A": 0, "B": 0, "C": 0, "D": 0}, "A", 250},
		{"no symbols configured", nil, "BTCUSDT", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(1000, tt.weights)
			assert.InDelta(t, tt.want, l.Allocate(tt.symbol), 1e-9)
		})
	}
}

func TestLedger_AllocateFromAssetsFile(t *testing.T) {
	assets := []config.Asset{
		{Symbol: "BTCUSDT", Weight: 0.5},
		{Symbol: "ETHUSDT", Weight: 0.25},
		{Symbol: "SOLUSDT"},
		{Symbol: "BNBUSDT"},
	}
	l := NewLedger(1000, config.Weights(assets))
	assert.InDelta(t, 500.0, l.Allocate("BTCUSDT"), 1e-9)
	assert.InDelta(t, 250.0, l.Allocate("SOLUSDT"), 1e-9)

	for i := range assets {
		assets[i].Weight = 0
	}
	l = NewLedger(1000, config.Weights(assets))
	assert.InDelta(t, 250.0, l.Allocate("BTCUSDT"), 1e-9)
}

func TestLedger_OpenRejectsNonFiniteInput(t *testing.T) {
	tests := []struct {
		name  string
		entry float64
		size  float64
	}{
		{"NaN size", 100, math.NaN()},
		{"Inf size", 100, math.Inf(1)},
		{"NaN entry", math.NaN(), 1},
		{"Inf entry", math.Inf(1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(1000, nil)
			assert.Equal(t, domain.OutcomeSkippedZeroSize, l.Open("X", tt.entry, tt.size, 90, 120, t0))
			assert.False(t, l.HasPosition("X"))
			assert.Equal(t, 1000.0, l.Capital())
		})
	}
}

func TestLedger_EquityCurveGrowsOnlyOnClose(t *testing.T) {
	l := NewLedger(1000, nil)
	l.Open("A", 10, 5, 9, 12, t0)
	l.Open("B", 20, 5, 18, 25, t0)
	assert.Len(t, l.EquityCurve(), 1)

	l.Close("A", 9, t0, domain.CloseReasonStopLoss)
	l.Close("B", 25, t0, domain.CloseReasonTakeProfit)
	l.Close("B", 25, t0, domain.CloseReasonTakeProfit)

	equity := l.EquityCurve()
	assert.Len(t, equity, 1+len(l.Trades()))
	assert.Equal(t, 1000.0, equity[0])
	assert.InDelta(t, 1000-5+25, equity[2], 1e-9)
}

func TestLedger_SnapshotRestore(t *testing.T) {
	l := NewLedger(1000, nil)
	l.Open("A", 10, 5, 9, 12, t0)
	l.Close("A", 12, t0.Add(time.Hour), domain.CloseReasonTakeProfit)
	l.Open("B", 20, 2, 18, 25, t0)

	restored := NewLedger(0, nil)
	restored.Restore(l.Snapshot())

	assert.Equal(t, l.Capital(), restored.Capital())
	assert.Equal(t, l.Trades(), restored.Trades())
	assert.Equal(t, l.EquityCurve(), restored.EquityCurve())
	assert.Equal(t, 1000.0, restored.InitialCapital())
	pos, ok := restored.Position("B")
	require.True(t, ok)
	assert.Equal(t, "B", pos.Symbol)
}

func TestLedger_ConcurrentOpensKeepCapitalConsistent(t *testing.T) {
	l := NewLedger(1000, nil)
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	var wg sync.WaitGroup
	for _, s := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			l.Open(symbol, 100, 3, 90, 120, t0)
		}(s)
	}
	wg.Wait()

	committed := 0.0
	for _, pos := range l.Positions() {
		committed += pos.Cost()
	}
	assert.InDelta(t, 1000.0, committed+l.Capital(), 1e-9)
	assert.GreaterOrEqual(t, l.Capital(), 0.0)
}
