package domain

import "time"

// Position is an open long exposure on one symbol.
type Position struct {
	Symbol     string    `json:"-"`           // Key of the position in the ledger
	EntryPrice float64   `json:"entry_price"` // Price at which the position was entered
	Size       float64   `json:"size"`        // Units held, always > 0
	StopLoss   float64   `json:"stop"`        // Stop-loss level
	TakeProfit float64   `json:"target"`      // Take-profit level
	EntryTime  time.Time `json:"entry_time"`  // Bar time of the entry
}

// Cost returns the capital committed when the position was opened.
func (p *Position) Cost() float64 {
	return p.Size * p.EntryPrice
}
