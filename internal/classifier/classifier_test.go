package classifier

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/strategy/features"
)

// separable rows: label is 1 exactly when ADX is high.
func separableRows(n int) []features.Row {
	rows := make([]features.Row, n)
	for i := 0; i < n; i++ {
		adx := 10.0 + float64(i%10)
		label := 0
		if i%2 == 0 {
			adx += 30
			label = 1
		}
		rows[i] = features.Row{
			Symbol:   "BTCUSDT",
			Features: domain.Features{ATRPct: 0.02, ReturnStd: 0.01, RSI: 50, ADX: adx, VolumeZ: float64(i%3) - 1},
			Label:    label,
		}
	}
	return rows
}

func TestTrain_LearnsSeparableData(t *testing.T) {
	m, report, err := Train(separableRows(200), DefaultTrainOptions())
	require.NoError(t, err)

	assert.Equal(t, 160, report.TrainRows)
	assert.Equal(t, 40, report.TestRows)
	assert.InDelta(t, 0.5, report.PositiveRate, 1e-12)
	assert.GreaterOrEqual(t, report.TestAccuracy, 0.95)

	high, err := m.Score(domain.Features{ATRPct: 0.02, ReturnStd: 0.01, RSI: 50, ADX: 45, VolumeZ: 0})
	require.NoError(t, err)
	low, err := m.Score(domain.Features{ATRPct: 0.02, ReturnStd: 0.01, RSI: 50, ADX: 12, VolumeZ: 0})
	require.NoError(t, err)
	assert.Greater(t, high, 0.5)
	assert.Less(t, low, 0.5)

	label, err := m.Classify(domain.Features{ADX: 45, ATRPct: 0.02, ReturnStd: 0.01, RSI: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestTrain_IsDeterministicForSeed(t *testing.T) {
	a, _, err := Train(separableRows(50), DefaultTrainOptions())
	require.NoError(t, err)
	b, _, err := Train(separableRows(50), DefaultTrainOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Weights, b.Weights)
}

func TestTrain_Errors(t *testing.T) {
	_, _, err := Train(nil, DefaultTrainOptions())
	assert.ErrorIs(t, err, ports.ErrEmptyDataset)

	opts := DefaultTrainOptions()
	opts.Epochs = 0
	_, _, err = Train(separableRows(10), opts)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestLogistic_UntrainedAndInvalid(t *testing.T) {
	var m Logistic
	_, err := m.Score(domain.Features{})
	assert.ErrorIs(t, err, ports.ErrModelNotTrained)

	trained, _, err := Train(separableRows(20), DefaultTrainOptions())
	require.NoError(t, err)
	_, err = trained.Classify(domain.Features{RSI: math.NaN()})
	assert.ErrorIs(t, err, ports.ErrInvalidFeatures)
}

func TestSaveLoad(t *testing.T) {
	m, _, err := Train(separableRows(40), DefaultTrainOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "classifier.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	require.NoError(t, os.WriteFile(path, []byte(`{"features":["rsi","adx"]}`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ports.ErrModelFileCorrupt)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ports.ErrModelFileCorrupt)
}

func TestThreshold(t *testing.T) {
	_, err := NewThreshold(nil, 0.6)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	_, err = NewThreshold(Always(true), 0)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	strict, err := NewThreshold(fixedScore(0.55), 0.6)
	require.NoError(t, err)
	label, err := strict.Classify(domain.Features{})
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	loose, err := NewThreshold(fixedScore(0.55), 0.5)
	require.NoError(t, err)
	label, err = loose.Classify(domain.Features{})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestRule(t *testing.T) {
	veto := Always(false)
	label, _ := veto.Classify(domain.Features{})
	assert.Equal(t, 0, label)

	p, _ := Rule{}.Score(domain.Features{})
	assert.Equal(t, 1.0, p)

	adxGate := Rule{Predicate: func(f domain.Features) bool { return f.ADX > 25 }}
	label, _ = adxGate.Classify(domain.Features{ADX: 30})
	assert.Equal(t, 1, label)
}

type fixedScore float64

func (f fixedScore) Score(domain.Features) (float64, error) { return float64(f), nil }
func (f fixedScore) Classify(domain.Features) (int, error) { return 0, nil }
