// Package portfolio holds the shared capital pool used by backtests and paper trading.
package portfolio

import (
	"math"
	"sync"
	"time"

	"trendBot/internal/domain"
)

// Ledger owns free capital, the open position per symbol, the trade log and the equity curve.
// All methods are safe for concurrent use; mutations are serialized by one mutex.
type Ledger struct {
	mu             sync.Mutex
	initialCapital float64
	capital        float64
	weights        map[string]float64
	positions      map[string]*domain.Position
	trades         []domain.Trade
	equity         []float64
}

// NewLedger creates a ledger funded with initialCapital.
// weights holds every configured symbol; a weight of 0 (or an unlisted symbol) gets 1/N where
// N is the number of configured symbols. weights may be nil.
func NewLedger(initialCapital float64, weights map[string]float64) *Ledger {
	w := make(map[string]float64, len(weights))
	for symbol, weight := range weights {
		w[symbol] = weight
	}
	return &Ledger{
		initialCapital: initialCapital,
		capital:        initialCapital,
		weights:        w,
		positions:      make(map[string]*domain.Position),
		equity:         []float64{initialCapital},
	}
}

// Allocate returns the notional offered to a new position in symbol.
// Symbols without a positive weight get an equal share across configured symbols.
func (l *Ledger) Allocate(symbol string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital * l.weightLocked(symbol)
}

func (l *Ledger) weightLocked(symbol string) float64 {
	if w, ok := l.weights[symbol]; ok && w > 0 {
		return w
	}
	if len(l.weights) == 0 {
		return 1
	}
	return 1 / float64(len(l.weights))
}

// Open records a long position. When the requested cost exceeds free capital the size is
// clamped so that all remaining capital is committed.
func (l *Ledger) Open(symbol string, entryPrice, requestedSize, stop, target float64, ts time.Time) domain.EntryOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[symbol]; ok {
		return domain.OutcomeAlreadyOpen
	}
	if !(requestedSize > 0) || !(entryPrice > 0) || math.IsInf(requestedSize, 0) || math.IsInf(entryPrice, 0) {
		return domain.OutcomeSkippedZeroSize
	}

	size := requestedSize
	if size*entryPrice > l.capital {
		size = l.capital / entryPrice
	}
	if size <= 0 {
		return domain.OutcomeSkippedInsufficientCapital
	}

	cost := size * entryPrice
	l.capital -= cost
	// Guard against -1e-13 style residue after a full-capital clamp.
	if l.capital < 0 {
		l.capital = 0
	}
	l.positions[symbol] = &domain.Position{
		Symbol:     symbol,
		EntryPrice: entryPrice,
		Size:       size,
		StopLoss:   stop,
		TakeProfit: target,
		EntryTime:  ts,
	}
	return domain.OutcomeOpened
}

// Close exits the open position in symbol at exitPrice and returns its pnl.
// It is a no-op returning 0 when nothing is open for symbol.
func (l *Ledger) Close(symbol string, exitPrice float64, ts time.Time, reason domain.CloseReason) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return 0
	}

	pnl := pos.Size * (exitPrice - pos.EntryPrice)
	pnlPct := 0.0
	if cost := pos.Cost(); cost > 0 {
		pnlPct = pnl / cost * 100
	}

	l.capital += pos.Size * exitPrice
	l.trades = append(l.trades, domain.Trade{
		Symbol:      symbol,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Size:        pos.Size,
		PNL:         pnl,
		PNLPercent:  pnlPct,
		EntryTime:   pos.EntryTime,
		ExitTime:    ts,
		CloseReason: reason,
	})
	l.equity = append(l.equity, l.capital)
	delete(l.positions, symbol)
	return pnl
}

// InitialCapital returns the capital the ledger was funded with.
func (l *Ledger) InitialCapital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialCapital
}

// Capital returns free capital.
func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital
}

// Position returns a copy of the open position in symbol.
func (l *Ledger) Position(symbol string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// HasPosition reports whether symbol has an open position.
func (l *Ledger) HasPosition(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.positions[symbol]
	return ok
}

// Positions returns copies of all open positions keyed by symbol.
func (l *Ledger) Positions() map[string]domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.Position, len(l.positions))
	for symbol, pos := range l.positions {
		out[symbol] = *pos
	}
	return out
}

// Trades returns a copy of the trade log in close order.
func (l *Ledger) Trades() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// LastTrade returns the most recent closed trade.
func (l *Ledger) LastTrade() (domain.Trade, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.trades) == 0 {
		return domain.Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// EquityCurve returns a copy of the equity curve.
func (l *Ledger) EquityCurve() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.equity))
	copy(out, l.equity)
	return out
}

// Snapshot exports the ledger state for persistence.
func (l *Ledger) Snapshot() domain.AccountState {
	l.mu.Lock()
	defer l.mu.Unlock()
	positions := make(map[string]*domain.Position, len(l.positions))
	for symbol, pos := range l.positions {
		p := *pos
		positions[symbol] = &p
	}
	history := make([]domain.Trade, len(l.trades))
	copy(history, l.trades)
	equity := make([]float64, len(l.equity))
	copy(equity, l.equity)
	return domain.AccountState{
		Capital:   l.capital,
		Positions: positions,
		History:   history,
		Equity:    equity,
	}
}

// Restore replaces the ledger state with a previously saved snapshot.
// A snapshot without an equity curve starts a new curve at its capital.
func (l *Ledger) Restore(state domain.AccountState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capital = state.Capital
	l.positions = make(map[string]*domain.Position, len(state.Positions))
	for symbol, pos := range state.Positions {
		if pos == nil {
			continue
		}
		p := *pos
		p.Symbol = symbol
		l.positions[symbol] = &p
	}
	l.trades = append([]domain.Trade(nil), state.History...)
	if len(state.Equity) > 0 {
		l.equity = append([]float64(nil), state.Equity...)
	} else {
		l.equity = []float64{state.Capital}
	}
	l.initialCapital = l.equity[0]
}
