package ports

import (
	"context"

	"trendBot/internal/domain"
)

// RunRepository journals backtest runs with their trade logs and equity curves.
type RunRepository interface {
	// SaveRun stores the run summary together with its trades and equity curve in one transaction.
	SaveRun(ctx context.Context, run *domain.BacktestRun, trades []domain.Trade, equity []float64) error
	// GetRun retrieves a run by ID. Returns nil, nil if not found.
	GetRun(ctx context.Context, id string) (*domain.BacktestRun, error)
	// ListRuns returns the most recent runs first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error)
	// GetRunTrades returns the trade log of a run in close order.
	GetRunTrades(ctx context.Context, id string) ([]domain.Trade, error)
	// GetRunEquity returns the equity curve of a run.
	GetRunEquity(ctx context.Context, id string) ([]float64, error)
}

// AccountStore persists the paper-trading account between restarts.
type AccountStore interface {
	// Load returns the stored state, or ok=false if nothing has been stored yet.
	Load() (state domain.AccountState, ok bool, err error)
	// Save replaces the stored state.
	Save(state domain.AccountState) error
}
