package ports

import "trendBot/internal/domain"

// SignalGenerator turns a price series into a frame with indicator columns and buy signals.
type SignalGenerator interface {
	// Name identifies the rule in logs and reports.
	Name() string
	// RequiredDataPoints returns the minimum number of bars before signals are meaningful.
	RequiredDataPoints() int
	// Prepare computes indicator columns and the signal column for the whole series.
	Prepare(symbol string, klines []*domain.Kline) (*domain.Frame, error)
}

// Classifier confirms or vetoes entries.
type Classifier interface {
	// Classify returns 1 to confirm an entry, 0 to veto it.
	Classify(f domain.Features) (int, error)
	// Score returns the probability of the positive class.
	Score(f domain.Features) (float64, error)
}
