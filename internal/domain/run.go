package domain

import "time"

// BacktestRun is the journaled summary of one backtest execution.
type BacktestRun struct {
	ID             string    // ULID, sortable by creation time
	StartedAt      time.Time // Wall-clock time the run was started
	PeriodStart    time.Time // First bar time across all symbols
	PeriodEnd      time.Time // Last bar time across all symbols
	Symbols        []string
	InitialCapital float64
	FinalCapital   float64
	TotalReturnPct float64
	MaxDrawdownPct float64
	WinRatePct     float64
	SharpeRatio    float64
	TradeCount     int
}
