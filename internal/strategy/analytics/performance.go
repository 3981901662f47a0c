package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trendBot/internal/domain"
)

// DefaultAnnualization assumes one equity sample per hourly bar.
// Equity is sampled per close, not per bar, so the resulting Sharpe is only a rough scale.
const DefaultAnnualization = 24 * 365

// PerformanceMetrics holds performance statistics for a backtest or paper account
type PerformanceMetrics struct {
	// Period
	Start    time.Time
	End      time.Time
	Duration time.Duration

	// Capital
	InitialCapital float64
	FinalCapital   float64
	NetProfit      float64
	TotalReturnPct float64
	MaxDrawdownPct float64

	// Trades
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRatePct    float64
	SharpeRatio   float64

	// Advanced Metrics
	ProfitFactor         float64 // Gross profit / gross loss, 0 without losses
	AverageWin           float64
	AverageLoss          float64 // Negative or zero
	BestTrade            float64
	WorstTrade           float64
	Expectancy           float64 // Mean pnl per trade
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	MonthlyReturns       map[string]float64 // Pnl by exit month, "2006-01"
}

// CalculateMetrics computes statistics from a trade log and its equity curve.
// With no trades or fewer than two equity points it returns a zero record whose capital
// fields equal initialCapital.
func CalculateMetrics(trades []domain.Trade, equity []float64, initialCapital float64, start, end time.Time, annualization float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		Start:          start,
		End:            end,
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		MonthlyReturns: make(map[string]float64),
	}
	if !start.IsZero() && !end.IsZero() {
		metrics.Duration = end.Sub(start)
	}
	if len(trades) == 0 || len(equity) < 2 {
		return metrics
	}

	metrics.FinalCapital = equity[len(equity)-1]
	metrics.NetProfit = metrics.FinalCapital - initialCapital
	if initialCapital != 0 {
		metrics.TotalReturnPct = metrics.NetProfit / initialCapital * 100
	}
	metrics.MaxDrawdownPct = MaxDrawdown(equity) * 100
	metrics.SharpeRatio = SharpeRatio(equity, annualization)

	var grossProfit, grossLoss, totalPNL float64
	var consecutiveWins, consecutiveLosses int
	var totalDuration time.Duration
	metrics.BestTrade = math.Inf(-1)
	metrics.WorstTrade = math.Inf(1)

	for _, trade := range trades {
		metrics.TotalTrades++
		totalPNL += trade.PNL
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
		metrics.MonthlyReturns[trade.ExitTime.Format("2006-01")] += trade.PNL
		metrics.BestTrade = math.Max(metrics.BestTrade, trade.PNL)
		metrics.WorstTrade = math.Min(metrics.WorstTrade, trade.PNL)

		if trade.PNL > 0 {
			metrics.WinningTrades++
			grossProfit += trade.PNL
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			metrics.LosingTrades++
			grossLoss += trade.PNL
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = consecutiveLosses
		}
	}

	n := float64(metrics.TotalTrades)
	metrics.WinRatePct = float64(metrics.WinningTrades) / n * 100
	metrics.Expectancy = totalPNL / n
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossProfit / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = grossLoss / float64(metrics.LosingTrades)
	}
	if grossLoss < 0 {
		metrics.ProfitFactor = grossProfit / -grossLoss
	}
	return metrics
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the running peak.
// The peak starts at the first point.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio is mean/stdev of simple returns between equity points, scaled by
// sqrt(annualization). The standard deviation is the population one. It is 0 with fewer
// than two returns or zero variance.
func SharpeRatio(equity []float64, annualization float64) float64 {
	if len(equity) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualization)
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Rounded returns a copy with money, percentage and ratio fields rounded to 2 decimals.
func (m *PerformanceMetrics) Rounded() *PerformanceMetrics {
	out := *m
	for _, f := range []*float64{
		&out.InitialCapital, &out.FinalCapital, &out.NetProfit, &out.TotalReturnPct,
		&out.MaxDrawdownPct, &out.WinRatePct, &out.SharpeRatio, &out.ProfitFactor,
		&out.AverageWin, &out.AverageLoss, &out.BestTrade, &out.WorstTrade, &out.Expectancy,
	} {
		*f = round2(*f)
	}
	out.MonthlyReturns = make(map[string]float64, len(m.MonthlyReturns))
	for k, v := range m.MonthlyReturns {
		out.MonthlyReturns[k] = round2(v)
	}
	return &out
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
