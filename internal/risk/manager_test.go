package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trendBot/internal/domain"
)

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name    string
		capital float64
		risk    float64
		entry   float64
		stop    float64
		want    float64
	}{
		{"one percent of 1000 over 5 distance", 1000, 0.01, 100, 95, 2.0},
		{"stop above entry uses absolute distance", 1000, 0.01, 100, 105, 2.0},
		{"entry equals stop", 1000, 0.01, 100, 100, 0},
		{"zero capital", 0, 0.01, 100, 95, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PositionSize(tt.capital, tt.risk, tt.entry, tt.stop), 1e-12)
		})
	}
}

func TestStopAndTarget(t *testing.T) {
	assert.InDelta(t, 85.0, StopLoss(100, 10, 1.5), 1e-12)
	assert.InDelta(t, 130.0, TakeProfit(100, 10, 3.0), 1e-12)
}

func TestCheckExit(t *testing.T) {
	pos := &domain.Position{
		Symbol:     "BTCUSDT",
		EntryPrice: 100,
		Size:       1,
		StopLoss:   95,
		TakeProfit: 110,
		EntryTime:  time.Unix(0, 0),
	}

	tests := []struct {
		name       string
		low, high  float64
		wantPrice  float64
		wantReason domain.CloseReason
		wantHit    bool
	}{
		{"inside range", 96, 109, 0, "", false},
		{"stop touched", 95, 101, 95, domain.CloseReasonStopLoss, true},
		{"target touched", 99, 110, 110, domain.CloseReasonTakeProfit, true},
		{"both breached, stop wins", 90, 120, 95, domain.CloseReasonStopLoss, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, reason, hit := CheckExit(pos, tt.low, tt.high)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, tt.wantPrice, price)
		})
	}

	_, _, hit := CheckExit(nil, 0, 1e9)
	assert.False(t, hit, "nil position never exits")
}

func TestRiskManagerPlan(t *testing.T) {
	manager := NewRiskManager(DefaultRiskConfig())
	ctx := context.Background()

	plan, ok := manager.Plan(ctx, 1000, 100, 2)
	if !ok {
		t.Fatal("Expected valid plan")
	}
	if plan.StopLoss != 97 {
		t.Errorf("Expected stop loss %f, got %f", 97.0, plan.StopLoss)
	}
	if plan.TakeProfit != 106 {
		t.Errorf("Expected take profit %f, got %f", 106.0, plan.TakeProfit)
	}
	assert.InDelta(t, 1000*0.01/3, plan.Size, 1e-12)

	// A negative volatility puts the stop above entry.
	_, ok = manager.Plan(ctx, 1000, 100, -2)
	assert.False(t, ok)

	_, ok = manager.Plan(ctx, 1000, 100, math.NaN())
	assert.False(t, ok, "NaN volatility is not a valid stop")
}
