package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"trendBot/internal/ports"
	"trendBot/internal/portfolio"
	"trendBot/internal/strategy/analytics"
	"trendBot/internal/strategy/backtesting"
)

// Names of the parameters the sweep knows how to apply.
const (
	ParamStopMultiplier   = "stop_multiplier"
	ParamTargetMultiplier = "target_multiplier"
	ParamRiskPerTrade     = "risk_per_trade"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the results of one parameter combination
type OptimizationResult struct {
	Parameters map[string]float64
	Metrics    *analytics.PerformanceMetrics
	Score      float64

	order int // Position of the combination in the grid, breaks score ties
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Base            backtesting.BacktestConfig // Parameters not swept keep these values
	InitialCapital  float64
	Weights         map[string]float64
	Annualization   float64
	Concurrency     int // Parallel backtests, defaults to NumCPU
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
}

// Optimizer runs one independent backtest per parameter combination.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// DefaultRanges sweeps the stop and target multipliers around their defaults.
func DefaultRanges() []ParameterRange {
	return []ParameterRange{
		{Name: ParamStopMultiplier, Min: 1.0, Max: 2.5, Step: 0.5},
		{Name: ParamTargetMultiplier, Min: 2.0, Max: 4.0, Step: 0.5},
	}
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required: %w", ports.ErrInvalidRequest)
	}
	if config.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive: %w", ports.ErrConfigurationError)
	}
	for _, r := range config.ParameterRanges {
		switch r.Name {
		case ParamStopMultiplier, ParamTargetMultiplier, ParamRiskPerTrade:
		default:
			return nil, fmt.Errorf("unknown parameter %q: %w", r.Name, ports.ErrConfigurationError)
		}
		if r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("invalid range for %s: %w", r.Name, ports.ErrConfigurationError)
		}
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	if config.Annualization <= 0 {
		config.Annualization = analytics.DefaultAnnualization
	}
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.NumCPU()
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Optimize backtests every combination on its own ledger and returns the results best first.
// Combinations whose backtest fails are logged and left out.
func (o *Optimizer) Optimize(ctx context.Context, strategy ports.SignalGenerator, classifier ports.Classifier, series []backtesting.SymbolSeries) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()
	results := make([]OptimizationResult, 0, len(combinations))

	resultChan := make(chan OptimizationResult, len(combinations))
	sem := make(chan struct{}, o.config.Concurrency)
	var wg sync.WaitGroup

	for idx, params := range combinations {
		idx, params := idx, params
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			result, err := o.evaluate(ctx, strategy, classifier, series, params)
			if err != nil {
				o.logger.Warn(ctx, "Sweep combination failed", map[string]interface{}{"params": params, "error": err.Error()})
				return
			}
			result.order = idx
			resultChan <- result
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		results = append(results, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parameter sweep aborted: %w", err)
	}

	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, strategy ports.SignalGenerator, classifier ports.Classifier, series []backtesting.SymbolSeries, params map[string]float64) (OptimizationResult, error) {
	cfg := o.config.Base
	for name, v := range params {
		switch name {
		case ParamStopMultiplier:
			cfg.Risk.StopMultiplier = v
		case ParamTargetMultiplier:
			cfg.Risk.TargetMultiplier = v
		case ParamRiskPerTrade:
			cfg.Risk.RiskPerTrade = v
		}
	}

	ledger := portfolio.NewLedger(o.config.InitialCapital, o.config.Weights)
	engine, err := backtesting.NewEngine(cfg, strategy, classifier, ledger, quiet{o.logger})
	if err != nil {
		return OptimizationResult{}, err
	}
	res, err := engine.Run(ctx, series)
	if err != nil {
		return OptimizationResult{}, err
	}

	metrics := analytics.CalculateMetrics(res.Trades, res.EquityCurve, res.InitialCapital, res.Start, res.End, o.config.Annualization)
	return OptimizationResult{
		Parameters: params,
		Metrics:    metrics,
		Score:      o.config.ScoreFunction(metrics),
	}, nil
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	currentCombination := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		// Stepping by index keeps float drift from adding or dropping the last value.
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for i := 0; i <= steps; i++ {
			value := param.Min + float64(i)*param.Step
			if param.IsInt {
				value = math.Round(value)
			} else {
				value = math.Round(value*1e9) / 1e9
			}
			currentCombination[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts optimization results by score in descending order,
// keeping grid order among equal scores.
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].order < results[j].order
	})
}

// DefaultScoreFunction blends return, win rate, drawdown and Sharpe into one number.
// A combination that never trades scores zero.
func DefaultScoreFunction(metrics *analytics.PerformanceMetrics) float64 {
	if metrics == nil || metrics.TotalTrades == 0 {
		return 0
	}
	score := 0.0
	score += metrics.TotalReturnPct / 100 * 0.4
	score += metrics.WinRatePct / 100 * 0.2
	score += (1 - metrics.MaxDrawdownPct/100) * 0.2
	score += math.Max(-3, math.Min(3, metrics.SharpeRatio)) / 3 * 0.2
	return score
}

// quiet drops the per-symbol Info lines of the many sweep backtests.
type quiet struct{ ports.Logger }

func (q quiet) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	q.Logger.Debug(ctx, msg, fields...)
}
