package domain

// AccountState is the persisted form of a ledger: free capital, open positions and history.
type AccountState struct {
	Capital   float64              `json:"capital"`
	Positions map[string]*Position `json:"positions"`
	History   []Trade              `json:"history"`
	Equity    []float64            `json:"equity,omitempty"`
}
