package domain

import "time"

// Trade represents a completed round trip. Records are never mutated once created.
type Trade struct {
	Symbol      string      `json:"symbol"`
	EntryPrice  float64     `json:"entry_price"`
	ExitPrice   float64     `json:"exit_price"`
	Size        float64     `json:"size"`
	PNL         float64     `json:"pnl"`     // size * (exit - entry)
	PNLPercent  float64     `json:"pnl_pct"` // pnl / cost * 100
	EntryTime   time.Time   `json:"entry_time"`
	ExitTime    time.Time   `json:"exit_time"`
	CloseReason CloseReason `json:"reason"`
}
