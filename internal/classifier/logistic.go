// Package classifier provides entry-confirmation models.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
	"trendBot/internal/strategy/features"
)

const nFeatures = len(domain.FeatureOrder)

// Logistic is a standardized logistic regression over the fixed feature vector.
type Logistic struct {
	Features []string           `json:"features"` // Must equal FeatureOrder
	Mean     [nFeatures]float64 `json:"mean"`
	Std      [nFeatures]float64 `json:"std"`
	Weights  [nFeatures]float64 `json:"weights"`
	Bias     float64            `json:"bias"`
}

// TrainOptions controls gradient descent and the hold-out split.
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64 // Ridge penalty on weights
	TestFraction float64 // Share of rows held out for evaluation
	Seed         int64
}

// DefaultTrainOptions returns 500 epochs, lr 0.1, an 80/20 split and seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:       500,
		LearningRate: 0.1,
		L2:           0.001,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// TrainReport summarizes a training run.
type TrainReport struct {
	TrainRows     int
	TestRows      int
	PositiveRate  float64 // Share of label 1 in the full dataset
	TrainAccuracy float64
	TestAccuracy  float64
}

// Train fits a Logistic model on rows.
func Train(rows []features.Row, opts TrainOptions) (*Logistic, TrainReport, error) {
	var report TrainReport
	if len(rows) == 0 {
		return nil, report, ports.ErrEmptyDataset
	}
	for i, r := range rows {
		if !r.Features.Valid() {
			return nil, report, fmt.Errorf("row %d: %w", i, ports.ErrInvalidFeatures)
		}
	}
	if opts.Epochs <= 0 || opts.LearningRate <= 0 {
		return nil, report, fmt.Errorf("epochs and learning rate must be positive: %w", ports.ErrInvalidRequest)
	}

	shuffled := make([]features.Row, len(rows))
	copy(shuffled, rows)
	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nTest := int(float64(len(shuffled)) * opts.TestFraction)
	if nTest >= len(shuffled) {
		nTest = len(shuffled) - 1
	}
	train, test := shuffled[:len(shuffled)-nTest], shuffled[len(shuffled)-nTest:]

	m := &Logistic{Features: append([]string(nil), domain.FeatureOrder[:]...)}
	m.fitScaler(train)

	xs := make([][nFeatures]float64, len(train))
	for i, r := range train {
		xs[i] = m.standardize(r.Features)
	}

	n := float64(len(train))
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		var gradW [nFeatures]float64
		gradB := 0.0
		for i, r := range train {
			p := sigmoid(m.linear(xs[i]))
			diff := p - float64(r.Label)
			for k := 0; k < nFeatures; k++ {
				gradW[k] += diff * xs[i][k]
			}
			gradB += diff
		}
		for k := 0; k < nFeatures; k++ {
			m.Weights[k] -= opts.LearningRate * (gradW[k]/n + opts.L2*m.Weights[k])
		}
		m.Bias -= opts.LearningRate * gradB / n
	}

	positives := 0
	for _, r := range rows {
		positives += r.Label
	}
	report = TrainReport{
		TrainRows:     len(train),
		TestRows:      len(test),
		PositiveRate:  float64(positives) / float64(len(rows)),
		TrainAccuracy: m.accuracy(train),
		TestAccuracy:  m.accuracy(test),
	}
	return m, report, nil
}

func (m *Logistic) fitScaler(rows []features.Row) {
	n := float64(len(rows))
	for _, r := range rows {
		v := r.Features.Vector()
		for k := range v {
			m.Mean[k] += v[k] / n
		}
	}
	for _, r := range rows {
		v := r.Features.Vector()
		for k := range v {
			d := v[k] - m.Mean[k]
			m.Std[k] += d * d / n
		}
	}
	for k := range m.Std {
		m.Std[k] = math.Sqrt(m.Std[k])
		if m.Std[k] == 0 {
			m.Std[k] = 1
		}
	}
}

func (m *Logistic) standardize(f domain.Features) [nFeatures]float64 {
	v := f.Vector()
	for k := range v {
		v[k] = (v[k] - m.Mean[k]) / m.Std[k]
	}
	return v
}

func (m *Logistic) linear(x [nFeatures]float64) float64 {
	z := m.Bias
	for k := range x {
		z += m.Weights[k] * x[k]
	}
	return z
}

func (m *Logistic) accuracy(rows []features.Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	correct := 0
	for _, r := range rows {
		label, _ := m.Classify(r.Features)
		if label == r.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(rows))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Score returns the probability that the entry is followed by a qualifying move.
func (m *Logistic) Score(f domain.Features) (float64, error) {
	if len(m.Features) == 0 {
		return 0, ports.ErrModelNotTrained
	}
	if !f.Valid() {
		return 0, ports.ErrInvalidFeatures
	}
	return sigmoid(m.linear(m.standardize(f))), nil
}

// Classify returns 1 when Score is at least 0.5.
func (m *Logistic) Classify(f domain.Features) (int, error) {
	p, err := m.Score(f)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Save writes the model as JSON, creating the directory if needed.
func (m *Logistic) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model %s: %w", path, err)
	}
	return nil
}

// Load reads a model saved by Save and checks its feature order.
func Load(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	var m Logistic
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ports.ErrModelFileCorrupt)
	}
	if len(m.Features) != nFeatures {
		return nil, fmt.Errorf("%s: expected %d features, got %d: %w", path, nFeatures, len(m.Features), ports.ErrModelFileCorrupt)
	}
	for k, name := range domain.FeatureOrder {
		if m.Features[k] != name {
			return nil, fmt.Errorf("%s: feature %d is %q, want %q: %w", path, k, m.Features[k], name, ports.ErrModelFileCorrupt)
		}
	}
	return &m, nil
}
