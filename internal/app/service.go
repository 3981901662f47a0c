package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/risk"
	"trendBot/internal/strategy/backtesting"
)

// PaperConfig controls the polling loop.
type PaperConfig struct {
	Symbols      []string
	Interval     string        // Kline interval requested from the exchange, e.g. "1h"
	HistoryLimit int           // Bars fetched per poll; must cover the strategy warm-up
	PollInterval time.Duration // Time between polling cycles
}

// PaperService replays live bars through the same engine and ledger logic used by
// backtests, without placing real orders.
type PaperService struct {
	cfg      PaperConfig
	logger   ports.Logger
	market   ports.MarketData
	strategy ports.SignalGenerator
	engine   *backtesting.Engine
	store    ports.AccountStore
	now      func() time.Time

	mu      sync.Mutex           // Protects lastBar
	lastBar map[string]time.Time // Open time of the last bar stepped per symbol
}

// NewPaperService creates a new paper-trading service instance.
func NewPaperService(
	cfg PaperConfig,
	logger ports.Logger,
	market ports.MarketData,
	strategy ports.SignalGenerator,
	engine *backtesting.Engine,
	store ports.AccountStore,
) (*PaperService, error) {
	if logger == nil || market == nil || strategy == nil || engine == nil || store == nil {
		return nil, fmt.Errorf("missing required dependencies for PaperService")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required: %w", ports.ErrConfigurationError)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive: %w", ports.ErrConfigurationError)
	}
	if cfg.HistoryLimit < strategy.RequiredDataPoints() {
		return nil, fmt.Errorf("history limit %d below strategy requirement %d: %w",
			cfg.HistoryLimit, strategy.RequiredDataPoints(), ports.ErrConfigurationError)
	}
	if cfg.Interval == "" {
		cfg.Interval = "1h"
	}

	return &PaperService{
		cfg:      cfg,
		logger:   logger,
		market:   market,
		strategy: strategy,
		engine:   engine,
		store:    store,
		now:      time.Now,
		lastBar:  make(map[string]time.Time),
	}, nil
}

// Restore loads the persisted account into the engine's ledger. A missing state file
// leaves the fresh ledger untouched.
func (s *PaperService) Restore(ctx context.Context) error {
	state, ok, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load paper account: %w", err)
	}
	if !ok {
		s.logger.Info(ctx, "No saved paper account, starting fresh", map[string]interface{}{"capital": s.engine.Ledger().Capital()})
		return nil
	}
	s.engine.Ledger().Restore(state)

	s.mu.Lock()
	for symbol, pos := range state.Positions {
		if pos == nil {
			continue
		}
		// The entry bar was already stepped before the restart.
		s.lastBar[symbol] = pos.EntryTime
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "Paper account restored", map[string]interface{}{
		"capital":   state.Capital,
		"positions": len(state.Positions),
		"trades":    len(state.History),
	})
	return nil
}

// Start restores the account and polls until ctx is cancelled or SIGINT/SIGTERM arrives.
func (s *PaperService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Paper Trading Service...", map[string]interface{}{
		"symbols":  s.cfg.Symbols,
		"interval": s.cfg.Interval,
		"poll":     s.cfg.PollInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Restore(ctx); err != nil {
		return err
	}
	if err := s.market.Ping(ctx); err != nil {
		// Not fatal; the next cycle retries.
		s.logger.Warn(ctx, "Exchange ping failed", map[string]interface{}{"error": err.Error()})
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Paper Trading Service stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle processes every symbol once. Per-symbol failures are logged and the cycle moves on.
func (s *PaperService) RunCycle(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		outcome, err := s.processSymbol(ctx, symbol)
		if err != nil {
			s.logger.Error(ctx, err, "Paper cycle failed for symbol", map[string]interface{}{"symbol": symbol})
			continue
		}
		if outcome == domain.OutcomeOpened || outcome == domain.OutcomeExited {
			s.persist(ctx)
		}
	}
}

// processSymbol steps the engine on the newest closed bar of symbol, once per bar. Between
// bars an open position is checked against the ticker price.
func (s *PaperService) processSymbol(ctx context.Context, symbol string) (domain.EntryOutcome, error) {
	klines, err := s.market.GetKlines(ctx, symbol, s.cfg.Interval, s.cfg.HistoryLimit)
	if err != nil {
		return domain.OutcomeNoSignal, fmt.Errorf("failed to fetch klines: %w", err)
	}
	klines = closedOnly(klines, s.now())
	if len(klines) < s.strategy.RequiredDataPoints() || len(klines) == 0 {
		return domain.OutcomeNoSignal, fmt.Errorf("%d closed bars for %s: %w", len(klines), symbol, ports.ErrInsufficientData)
	}

	frame, err := s.strategy.Prepare(symbol, klines)
	if err != nil {
		return domain.OutcomeNoSignal, fmt.Errorf("failed to prepare frame: %w", err)
	}
	i := frame.Len() - 1
	barTime := frame.Klines[i].OpenTime

	s.mu.Lock()
	seen := !barTime.After(s.lastBar[symbol])
	if !seen {
		s.lastBar[symbol] = barTime
	}
	s.mu.Unlock()
	if seen {
		if pos, open := s.engine.Ledger().Position(symbol); open {
			return s.checkTicker(ctx, symbol, pos)
		}
		s.logger.Debug(ctx, "No new closed bar", map[string]interface{}{"symbol": symbol, "bar": barTime})
		return domain.OutcomeNoSignal, nil
	}

	outcome := s.engine.Step(ctx, frame, i)
	fields := map[string]interface{}{"symbol": symbol, "bar": barTime, "close": frame.Klines[i].Close, "outcome": outcome.String()}
	switch outcome {
	case domain.OutcomeOpened, domain.OutcomeExited:
		s.logger.Info(ctx, "Paper position changed", fields)
	case domain.OutcomeSkippedVetoed, domain.OutcomeSkippedInsufficientCapital,
		domain.OutcomeSkippedInvalidStop, domain.OutcomeSkippedZeroSize:
		s.logger.Info(ctx, "Paper entry skipped", fields)
	default:
		s.logger.Debug(ctx, "Paper bar processed", fields)
	}
	return outcome, nil
}

// checkTicker closes an open position between bars when the last traded price reaches its
// stop or target. The fill is taken at the level, as in the bar-driven exit.
func (s *PaperService) checkTicker(ctx context.Context, symbol string, pos domain.Position) (domain.EntryOutcome, error) {
	price, err := s.market.GetTickerPrice(ctx, symbol)
	if err != nil {
		return domain.OutcomeAlreadyOpen, fmt.Errorf("failed to fetch ticker: %w", err)
	}
	exit, reason, hit := risk.CheckExit(&pos, price, price)
	if !hit {
		s.logger.Debug(ctx, "Position held", map[string]interface{}{"symbol": symbol, "price": price})
		return domain.OutcomeAlreadyOpen, nil
	}
	pnl := s.engine.Ledger().Close(symbol, exit, s.now().UTC(), reason)
	s.logger.Info(ctx, "Paper position changed", map[string]interface{}{
		"symbol":  symbol,
		"price":   price,
		"exit":    exit,
		"reason":  string(reason),
		"pnl":     pnl,
		"outcome": domain.OutcomeExited.String(),
	})
	return domain.OutcomeExited, nil
}

// persist writes the ledger snapshot; failures are logged and trading continues.
func (s *PaperService) persist(ctx context.Context) {
	if err := s.store.Save(s.engine.Ledger().Snapshot()); err != nil {
		s.logger.Error(ctx, err, "Failed to persist paper account")
	}
}

// Snapshot returns the current account state.
func (s *PaperService) Snapshot() domain.AccountState {
	return s.engine.Ledger().Snapshot()
}

// closedOnly drops a trailing bar that is still forming at now.
func closedOnly(klines []*domain.Kline, now time.Time) []*domain.Kline {
	n := len(klines)
	if n > 0 && !klines[n-1].CloseTime.IsZero() && klines[n-1].CloseTime.After(now) {
		return klines[:n-1]
	}
	return klines
}
