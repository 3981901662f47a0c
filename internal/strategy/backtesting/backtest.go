package backtesting

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"trendBot/internal/domain"
	"trendBot/internal/portfolio"
	"trendBot/internal/ports"
	"trendBot/internal/risk"
	"trendBot/internal/strategy/features"
)

// DefaultWarmupBars is the number of leading bars skipped so every rolling window is populated.
const DefaultWarmupBars = 200

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	WarmupBars         int             // Bars skipped before the first decision
	Risk               risk.RiskConfig // Risk fraction and ATR multipliers
	SizeFromAllocation bool            // Size from the symbol's allocated notional instead of all free capital
}

// SymbolSeries is the raw input for one symbol.
type SymbolSeries struct {
	Symbol string
	Klines []*domain.Kline
}

// SymbolStats counts what happened on each processed bar of a symbol.
type SymbolStats struct {
	Bars     int
	Outcomes map[domain.EntryOutcome]int
	Exits    map[domain.CloseReason]int
}

func newSymbolStats() *SymbolStats {
	return &SymbolStats{
		Outcomes: make(map[domain.EntryOutcome]int),
		Exits:    make(map[domain.CloseReason]int),
	}
}

// BacktestResult holds the results of a backtest
type BacktestResult struct {
	Frames         map[string]*domain.Frame   // Enriched series per processed symbol
	Stats          map[string]*SymbolStats    // Per-symbol outcome counters
	Skipped        map[string]error           // Symbols that could not be processed
	Trades         []domain.Trade             // Shared trade log in close order
	EquityCurve    []float64                  // One point per close, first is initial capital
	OpenPositions  map[string]domain.Position // Positions still open after the last bar
	InitialCapital float64
	FinalCapital   float64 // Free capital, excluding open positions
	Start          time.Time
	End            time.Time
}

// Engine replays bar series against a shared ledger.
type Engine struct {
	config     BacktestConfig
	strategy   ports.SignalGenerator
	classifier ports.Classifier // Optional entry gate
	risk       *risk.RiskManager
	ledger     *portfolio.Ledger
	logger     ports.Logger
}

// NewEngine creates an engine. classifier may be nil to trade every signal.
func NewEngine(config BacktestConfig, strategy ports.SignalGenerator, classifier ports.Classifier, ledger *portfolio.Ledger, logger ports.Logger) (*Engine, error) {
	if strategy == nil || ledger == nil || logger == nil {
		return nil, fmt.Errorf("strategy, ledger and logger are required: %w", ports.ErrInvalidRequest)
	}
	if config.WarmupBars < 0 {
		return nil, fmt.Errorf("warm-up bars must not be negative: %w", ports.ErrConfigurationError)
	}
	if config.Risk.RiskPerTrade <= 0 || config.Risk.StopMultiplier <= 0 || config.Risk.TargetMultiplier <= 0 {
		return nil, fmt.Errorf("risk fraction and multipliers must be positive: %w", ports.ErrConfigurationError)
	}
	return &Engine{
		config:     config,
		strategy:   strategy,
		classifier: classifier,
		risk:       risk.NewRiskManager(config.Risk),
		ledger:     ledger,
		logger:     logger,
	}, nil
}

// Ledger returns the ledger the engine trades against.
func (e *Engine) Ledger() *portfolio.Ledger {
	return e.ledger
}

// Run prepares every series concurrently, then steps symbols one after another in input order.
// Per-symbol data problems are logged and recorded in Skipped; they never fail the run.
// The returned error is non-nil only when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, series []SymbolSeries) (*BacktestResult, error) {
	frames := make([]*domain.Frame, len(series))
	prepErrs := make([]error, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for idx := range series {
		idx := idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frames[idx], prepErrs[idx] = e.strategy.Prepare(series[idx].Symbol, series[idx].Klines)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("backtest preparation aborted: %w", err)
	}

	result := &BacktestResult{
		Frames:         make(map[string]*domain.Frame),
		Stats:          make(map[string]*SymbolStats),
		Skipped:        make(map[string]error),
		InitialCapital: e.ledger.InitialCapital(),
	}

	// The first series of a symbol decides its fate; later copies are only logged, so
	// Skipped and Stats never share a symbol.
	seen := make(map[string]bool, len(series))
	for idx, s := range series {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest aborted: %w", err)
		}
		if seen[s.Symbol] {
			e.logger.Warn(ctx, "Ignoring duplicate series", map[string]interface{}{"symbol": s.Symbol, "index": idx})
			continue
		}
		seen[s.Symbol] = true
		if prepErrs[idx] != nil {
			e.skip(ctx, result, s.Symbol, prepErrs[idx])
			continue
		}
		frame := frames[idx]
		if frame.Len() <= e.config.WarmupBars {
			e.skip(ctx, result, s.Symbol, fmt.Errorf("%s has %d bars, warm-up needs more than %d: %w",
				s.Symbol, frame.Len(), e.config.WarmupBars, ports.ErrInsufficientData))
			continue
		}

		stats := newSymbolStats()
		for i := e.config.WarmupBars; i < frame.Len(); i++ {
			outcome := e.Step(ctx, frame, i)
			stats.Bars++
			stats.Outcomes[outcome]++
			if outcome == domain.OutcomeExited {
				if last, ok := e.ledger.LastTrade(); ok {
					stats.Exits[last.CloseReason]++
				}
			}
		}

		result.Frames[s.Symbol] = frame
		result.Stats[s.Symbol] = stats
		e.widenPeriod(result, frame)

		e.logger.Info(ctx, "Symbol replayed", map[string]interface{}{
			"symbol":  s.Symbol,
			"bars":    stats.Bars,
			"opened":  stats.Outcomes[domain.OutcomeOpened],
			"exits":   stats.Outcomes[domain.OutcomeExited],
			"vetoed":  stats.Outcomes[domain.OutcomeSkippedVetoed],
			"capital": e.ledger.Capital(),
		})
	}

	result.Trades = e.ledger.Trades()
	result.EquityCurve = e.ledger.EquityCurve()
	result.OpenPositions = e.ledger.Positions()
	result.FinalCapital = e.ledger.Capital()
	return result, nil
}

func (e *Engine) skip(ctx context.Context, result *BacktestResult, symbol string, err error) {
	result.Skipped[symbol] = err
	e.logger.Warn(ctx, "Skipping symbol", map[string]interface{}{"symbol": symbol, "reason": err.Error()})
}

func (e *Engine) widenPeriod(result *BacktestResult, frame *domain.Frame) {
	first := frame.Klines[0].OpenTime
	last := frame.Klines[frame.Len()-1].OpenTime
	if result.Start.IsZero() || first.Before(result.Start) {
		result.Start = first
	}
	if last.After(result.End) {
		result.End = last
	}
}

// Step applies one bar to the ledger: exit check for an open position, otherwise entry check.
// A bar that closes a position never opens one.
func (e *Engine) Step(ctx context.Context, frame *domain.Frame, i int) domain.EntryOutcome {
	symbol := frame.Symbol
	bar := frame.Klines[i]

	if pos, open := e.ledger.Position(symbol); open {
		price, reason, hit := risk.CheckExit(&pos, bar.Low, bar.High)
		if !hit {
			if frame.Signal(i) {
				return domain.OutcomeAlreadyOpen
			}
			return domain.OutcomeNoSignal
		}
		pnl := e.ledger.Close(symbol, price, bar.OpenTime, reason)
		e.logger.Debug(ctx, "Position closed", map[string]interface{}{
			"symbol": symbol,
			"reason": reason,
			"price":  price,
			"pnl":    pnl,
			"time":   bar.OpenTime,
		})
		return domain.OutcomeExited
	}

	if !frame.Signal(i) {
		return domain.OutcomeNoSignal
	}

	if e.classifier != nil && !e.confirmed(ctx, frame, i) {
		return domain.OutcomeSkippedVetoed
	}

	capital := e.ledger.Capital()
	if e.config.SizeFromAllocation {
		capital = e.ledger.Allocate(symbol)
	}
	if capital <= 0 {
		return domain.OutcomeSkippedInsufficientCapital
	}

	plan, ok := e.risk.Plan(ctx, capital, bar.Close, frame.Value(domain.ColATR, i))
	if !ok {
		return domain.OutcomeSkippedInvalidStop
	}
	if !(plan.Size > 0) {
		return domain.OutcomeSkippedZeroSize
	}

	outcome := e.ledger.Open(symbol, bar.Close, plan.Size, plan.StopLoss, plan.TakeProfit, bar.OpenTime)
	if outcome == domain.OutcomeOpened {
		e.logger.Debug(ctx, "Position opened", map[string]interface{}{
			"symbol": symbol,
			"price":  bar.Close,
			"size":   plan.Size,
			"stop":   plan.StopLoss,
			"target": plan.TakeProfit,
			"time":   bar.OpenTime,
		})
	}
	return outcome
}

// confirmed asks the classifier about bar i. Undefined features or model errors count as a veto.
func (e *Engine) confirmed(ctx context.Context, frame *domain.Frame, i int) bool {
	f, ok := features.FromFrame(frame, i)
	if !ok {
		return false
	}
	label, err := e.classifier.Classify(f)
	if err != nil {
		e.logger.Warn(ctx, "Classifier failed, treating as veto", map[string]interface{}{
			"symbol": frame.Symbol,
			"error":  err.Error(),
		})
		return false
	}
	return label == 1
}
