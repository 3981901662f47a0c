package classifier

import (
	"fmt"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

// Threshold confirms entries when the wrapped model's score reaches Cutoff.
type Threshold struct {
	Model  ports.Classifier
	Cutoff float64
}

// NewThreshold wraps model with a probability cut-off in (0, 1].
func NewThreshold(model ports.Classifier, cutoff float64) (*Threshold, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required: %w", ports.ErrInvalidRequest)
	}
	if cutoff <= 0 || cutoff > 1 {
		return nil, fmt.Errorf("cutoff %.3f outside (0, 1]: %w", cutoff, ports.ErrInvalidRequest)
	}
	return &Threshold{Model: model, Cutoff: cutoff}, nil
}

// Score delegates to the wrapped model.
func (t *Threshold) Score(f domain.Features) (float64, error) {
	return t.Model.Score(f)
}

// Classify returns 1 when Score >= Cutoff.
func (t *Threshold) Classify(f domain.Features) (int, error) {
	p, err := t.Model.Score(f)
	if err != nil {
		return 0, err
	}
	if p >= t.Cutoff {
		return 1, nil
	}
	return 0, nil
}

// Rule is a classifier driven by a predicate; a nil predicate always confirms.
type Rule struct {
	Predicate func(domain.Features) bool
}

// Always returns a Rule with a fixed answer.
func Always(confirm bool) Rule {
	return Rule{Predicate: func(domain.Features) bool { return confirm }}
}

// Classify returns 1 when the predicate holds.
func (r Rule) Classify(f domain.Features) (int, error) {
	if r.Predicate == nil || r.Predicate(f) {
		return 1, nil
	}
	return 0, nil
}

// Score returns 1 or 0.
func (r Rule) Score(f domain.Features) (float64, error) {
	label, err := r.Classify(f)
	return float64(label), err
}
