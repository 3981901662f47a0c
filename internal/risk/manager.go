package risk

import (
	"context"
	"math"
)

// RiskConfig holds configuration for risk management
type RiskConfig struct {
	RiskPerTrade     float64 // Fraction of capital risked per trade (0.01 = 1%)
	StopMultiplier   float64 // Stop distance in units of volatility
	TargetMultiplier float64 // Target distance in units of volatility
}

// DefaultRiskConfig returns the 1% risk, 1.5/3.0 ATR configuration.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RiskPerTrade:     0.01,
		StopMultiplier:   1.5,
		TargetMultiplier: 3.0,
	}
}

// EntryPlan is the sized order the risk manager proposes for a long entry.
type EntryPlan struct {
	StopLoss   float64
	TakeProfit float64
	Size       float64
}

// RiskManager applies a RiskConfig to concrete prices.
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{config: config}
}

// Config returns the configuration in use.
func (r *RiskManager) Config() RiskConfig {
	return r.config
}

// GetStopLoss calculates the stop loss price for a long entry.
func (r *RiskManager) GetStopLoss(ctx context.Context, entryPrice, volatility float64) float64 {
	return StopLoss(entryPrice, volatility, r.config.StopMultiplier)
}

// GetTakeProfit calculates the take profit price for a long entry.
func (r *RiskManager) GetTakeProfit(ctx context.Context, entryPrice, volatility float64) float64 {
	return TakeProfit(entryPrice, volatility, r.config.TargetMultiplier)
}

// GetPositionSize sizes a position so that hitting stopPrice loses RiskPerTrade of capital.
func (r *RiskManager) GetPositionSize(ctx context.Context, capital, entryPrice, stopPrice float64) float64 {
	return PositionSize(capital, r.config.RiskPerTrade, entryPrice, stopPrice)
}

// ValidStop reports whether stop is a usable long stop for entry.
func ValidStop(entryPrice, stopPrice float64) bool {
	if math.IsNaN(stopPrice) || math.IsNaN(entryPrice) {
		return false
	}
	return stopPrice < entryPrice
}

// Plan computes stop, target and size for a long entry at entryPrice.
// ok is false when the stop is not strictly below entry.
func (r *RiskManager) Plan(ctx context.Context, capital, entryPrice, volatility float64) (EntryPlan, bool) {
	stop := r.GetStopLoss(ctx, entryPrice, volatility)
	if !ValidStop(entryPrice, stop) {
		return EntryPlan{}, false
	}
	return EntryPlan{
		StopLoss:   stop,
		TakeProfit: r.GetTakeProfit(ctx, entryPrice, volatility),
		Size:       r.GetPositionSize(ctx, capital, entryPrice, stop),
	}, true
}
