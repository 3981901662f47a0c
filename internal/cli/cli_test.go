package cli

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/config"
	"trendBot/internal/adapters/logger"
	"trendBot/internal/classifier"
	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/utils"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// synthetic returns n hourly bars of a rising sine wave.
func synthetic(symbol string, n int) []*domain.Kline {
	out := make([]*domain.Kline, n)
	prev := 100.0
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/15) + 0.05*float64(i)
		open := seriesStart.Add(time.Duration(i) * time.Hour)
		out[i] = &domain.Kline{
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Symbol:    symbol,
			Interval:  "1h",
			Open:      prev,
			High:      math.Max(prev, c) + 0.5,
			Low:       math.Min(prev, c) - 0.5,
			Close:     c,
			Volume:    100 + float64(10*(i%7)),
		}
		prev = c
	}
	return out
}

type fakeMarket struct {
	klines map[string][]*domain.Kline
}

func (f *fakeMarket) Ping(ctx context.Context) error { return nil }

func (f *fakeMarket) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	k := f.klines[symbol]
	if len(k) == 0 {
		return 0, ports.ErrInvalidSymbol
	}
	return k[len(k)-1].Close, nil
}

func (f *fakeMarket) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	k := f.klines[symbol]
	if len(k) == 0 {
		return nil, ports.ErrInvalidSymbol
	}
	if limit < len(k) {
		k = k[len(k)-limit:]
	}
	return k, nil
}

func (f *fakeMarket) GetKlinesRange(ctx context.Context, symbol, interval string, from, to time.Time) ([]*domain.Kline, error) {
	var out []*domain.Kline
	for _, k := range f.klines[symbol] {
		if !k.OpenTime.Before(from) && k.OpenTime.Before(to) {
			out = append(out, k)
		}
	}
	if out == nil {
		return nil, ports.ErrInvalidSymbol
	}
	return out, nil
}

type testEnv struct {
	dir    string
	market *fakeMarket
}

// setupEnv points every path setting at a temp dir and shortens the indicator warm-up.
func setupEnv(t *testing.T, withData bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("MODEL_DIR", filepath.Join(dir, "models"))
	t.Setenv("REPORT_DIR", filepath.Join(dir, "reports"))
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "trendbot.db"))
	t.Setenv("PAPER_STATE_FILE", filepath.Join(dir, "data", "paper.json"))
	t.Setenv("ASSETS_FILE", filepath.Join(dir, "assets.yaml"))
	t.Setenv("EMA_PERIOD", "50")
	t.Setenv("WARMUP_BARS", "60")
	t.Setenv("PAPER_HISTORY_LIMIT", "200")
	t.Setenv("LOG_LEVEL", "ERROR")

	assets := "assets:\n  - symbol: BTCUSDT\n    timeframe: 1h\n    start_date: \"2024-01-01\"\n    weight: 0.5\n" +
		"  - symbol: ETHUSDT\n    timeframe: 1h\n    start_date: \"2024-01-01\"\n    weight: 0.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.yaml"), []byte(assets), 0o644))

	market := &fakeMarket{klines: map[string][]*domain.Kline{
		"BTCUSDT": synthetic("BTCUSDT", 400),
		"ETHUSDT": synthetic("ETHUSDT", 400),
	}}
	if withData {
		for sym, k := range market.klines {
			require.NoError(t, utils.WriteKlinesToCSV(k, filepath.Join(dir, "data", utils.KlinesFileName(sym, "1h"))))
		}
	}
	return &testEnv{dir: dir, market: market}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	s := &session{newMarket: func(*session) (ports.MarketData, error) { return e.market, nil }}
	root := newRootCmd(s)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env", filepath.Join(e.dir, "none.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var runIDPattern = regexp.MustCompile(`Run ID: (\w+)`)

func TestBacktestCommand_ReportsAndJournals(t *testing.T) {
	env := setupEnv(t, true)

	out, err := env.run(t, "backtest")
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST REPORT")
	assert.Contains(t, out, "=== TRADES LIST ===")

	m := runIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "run id printed")
	runID := m[1]

	for _, name := range []string{"backtest_" + runID + ".txt", "equity_" + runID + ".html", "trades_" + runID + ".csv"} {
		assert.FileExists(t, filepath.Join(env.dir, "reports", name))
	}

	out, err = env.run(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "BTCUSDT,ETHUSDT")

	out, err = env.run(t, "runs", "--show", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST REPORT")

	_, err = env.run(t, "runs", "--show", "NOPE")
	assert.Error(t, err)
}

func TestBacktestCommand_SkipsMissingAsset(t *testing.T) {
	env := setupEnv(t, true)
	require.NoError(t, os.Remove(filepath.Join(env.dir, "data", utils.KlinesFileName("ETHUSDT", "1h"))))

	out, err := env.run(t, "backtest", "--no-journal")
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST REPORT")
	assert.NotContains(t, out, "Run ID:")
}

func TestBacktestCommand_NoData(t *testing.T) {
	env := setupEnv(t, false)
	_, err := env.run(t, "backtest")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrMissingData)
}

func TestBacktestCommand_Sweep(t *testing.T) {
	env := setupEnv(t, true)
	out, err := env.run(t, "backtest", "--sweep", "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Stop x ATR")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4, "header plus top 3")
}

func TestDownloadCommand(t *testing.T) {
	env := setupEnv(t, false)
	out, err := env.run(t, "download", "--end", "2024-01-05", "--symbols", "btcusdt")
	require.NoError(t, err)
	assert.Empty(t, out)

	klines, err := utils.ReadKlinesFromCSV(filepath.Join(env.dir, "data", "BTCUSDT_1h.csv"), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Len(t, klines, 96)
	assert.NoFileExists(t, filepath.Join(env.dir, "data", "ETHUSDT_1h.csv"))

	_, err = env.run(t, "download", "--symbols", "DOGEUSDT")
	assert.Error(t, err)
}

func TestFeaturesTrainAndGatedBacktest(t *testing.T) {
	env := setupEnv(t, true)

	out, err := env.run(t, "features")
	require.NoError(t, err)
	assert.Contains(t, out, "dataset.csv")
	data, err := os.ReadFile(filepath.Join(env.dir, "data", "dataset.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "symbol,time,atr_pct,return_std,rsi,adx,volume_z,label\n"))

	out, err = env.run(t, "train", "--epochs", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Model saved")
	assert.FileExists(t, filepath.Join(env.dir, "models", "classifier.json"))

	t.Setenv("USE_CLASSIFIER", "true")
	t.Setenv("CLASSIFIER_THRESHOLD", "0.5")
	out, err = env.run(t, "backtest", "--no-journal")
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST REPORT")
}

func TestBacktestCommand_ClassifierWithoutModel(t *testing.T) {
	env := setupEnv(t, true)
	t.Setenv("USE_CLASSIFIER", "true")
	_, err := env.run(t, "backtest")
	assert.Error(t, err)
}

func TestPaperCommand_Once(t *testing.T) {
	env := setupEnv(t, false)
	out, err := env.run(t, "paper", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Capital:")
	assert.Contains(t, out, "Closed trades: 0")
}

func TestClassifierGates_BacktestUsesLabelPaperUsesThreshold(t *testing.T) {
	env := setupEnv(t, false)
	t.Setenv("USE_CLASSIFIER", "true")
	t.Setenv("CLASSIFIER_THRESHOLD", "0.6")

	// Zero weights leave a constant score of 0.55.
	model := &classifier.Logistic{Features: domain.FeatureOrder[:], Bias: math.Log(0.55 / 0.45)}
	for k := range model.Std {
		model.Std[k] = 1
	}
	require.NoError(t, model.Save(filepath.Join(env.dir, "models", "classifier.json")))

	cfg, err := config.LoadConfig(filepath.Join(env.dir, "none.env"))
	require.NoError(t, err)
	s := &session{cfg: cfg, logger: logger.Nop{}, out: io.Discard}
	f := domain.Features{ATRPct: 0.01, ReturnStd: 0.01, RSI: 55, ADX: 25}

	gate, err := s.backtestGate(context.Background())
	require.NoError(t, err)
	score, err := gate.Score(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, score, 1e-9)
	label, err := gate.Classify(f)
	require.NoError(t, err)
	assert.Equal(t, 1, label, "backtest confirms any score >= 0.5")

	gate, err = s.paperGate(context.Background())
	require.NoError(t, err)
	label, err = gate.Classify(f)
	require.NoError(t, err)
	assert.Equal(t, 0, label, "paper trading needs CLASSIFIER_THRESHOLD")

	t.Setenv("USE_CLASSIFIER", "false")
	cfg, err = config.LoadConfig(filepath.Join(env.dir, "none.env"))
	require.NoError(t, err)
	s.cfg = cfg
	gate, err = s.backtestGate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, gate)
}
