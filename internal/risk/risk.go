package risk

import (
	"math"

	"trendBot/internal/domain"
)

// PositionSize returns the number of units whose stop distance risks capital*riskFraction.
// It returns 0 when entry equals stop.
func PositionSize(capital, riskFraction, entryPrice, stopPrice float64) float64 {
	distance := math.Abs(entryPrice - stopPrice)
	if distance == 0 {
		return 0
	}
	return capital * riskFraction / distance
}

// StopLoss returns the long stop level multiplier*volatility below entry.
func StopLoss(entryPrice, volatility, multiplier float64) float64 {
	return entryPrice - multiplier*volatility
}

// TakeProfit returns the long target level multiplier*volatility above entry.
func TakeProfit(entryPrice, volatility, multiplier float64) float64 {
	return entryPrice + multiplier*volatility
}

// CheckExit decides whether a bar's range closes an open long position.
// The stop is evaluated first: when a bar spans both levels it is treated as a stop-out,
// which is the pessimistic reading of an unknown intrabar path.
// The returned price is exactly the level that was hit.
func CheckExit(pos *domain.Position, low, high float64) (float64, domain.CloseReason, bool) {
	if pos == nil {
		return 0, "", false
	}
	if low <= pos.StopLoss {
		return pos.StopLoss, domain.CloseReasonStopLoss, true
	}
	if high >= pos.TakeProfit {
		return pos.TakeProfit, domain.CloseReasonTakeProfit, true
	}
	return 0, "", false
}
