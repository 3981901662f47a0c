package ports

import (
	"context"
	"time"

	"trendBot/internal/domain"
)

// MarketData is the read-only exchange surface used by the downloader and the paper loop.
type MarketData interface {
	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetTickerPrice retrieves the last traded price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetKlines retrieves the most recent `limit` klines for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetKlinesRange retrieves all klines between start and end, paging as needed.
	GetKlinesRange(ctx context.Context, symbol string, interval string, start, end time.Time) ([]*domain.Kline, error)
}
