package level

import (
	"math"

	"github.com/drakos74/level-trader/internal/model"
	"gonum.org/v1/gonum/stat"
)

const minWeight = 0.01

// Weights are the feature weights of the level score. They always sum to 1.
type Weights map[string]float64

// DefaultWeights returns the initial feature weights.
func DefaultWeights() Weights {
	return Weights{
		model.VolumeDensity:       0.20,
		model.TouchBounceCount:    0.25,
		model.BounceMagnitude:     0.15,
		model.FailedBreakoutCount: 0.15,
		model.Duration:            0.10,
		model.MultiTFConfirm:      0.15,
	}
}

// Normalize fills in missing features with their defaults and scales the weights to sum to 1.
// Negative or non-finite weights are reset to their default.
func (w Weights) Normalize() Weights {
	defaults := DefaultWeights()
	n := make(Weights, len(defaults))
	total := 0.0
	for _, k := range model.FeatureNames {
		d := defaults[k]
		v, ok := w[k]
		if !ok || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = d
		}
		n[k] = v
		total += v
	}
	if total <= 0 {
		return defaults
	}
	for k := range n {
		n[k] = n[k] / total
	}
	return n
}

func (w Weights) copy() Weights {
	c := make(Weights, len(w))
	for k, v := range w {
		c[k] = v
	}
	return c
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	s := 0.0
	for _, k := range model.FeatureNames {
		s += w[k]
	}
	return s
}

// Sample is the outcome of a trade taken against a level.
type Sample struct {
	Features   model.Features `json:"features"`
	Effective  bool           `json:"effective"`
	PnLPercent float64        `json:"pnl_percent"`
}

// WeightPolicy decides how the weights move given the sample history.
// It returns false if the weights should stay as they are.
type WeightPolicy interface {
	Update(current Weights, history []Sample, samples int) (Weights, bool)
}

// CorrelationPolicy scales each weight by the correlation of its feature with the level effectiveness.
type CorrelationPolicy struct {
	LearningRate float64 `json:"learning_rate"`
	MinSamples   int     `json:"min_samples"`
	Every        int     `json:"every"`
	Threshold    float64 `json:"threshold"`
}

// DefaultCorrelationPolicy returns the default weight learning policy.
func DefaultCorrelationPolicy() CorrelationPolicy {
	return CorrelationPolicy{
		LearningRate: 0.1,
		MinSamples:   20,
		Every:        10,
		Threshold:    0.3,
	}
}

func (p CorrelationPolicy) Update(current Weights, history []Sample, samples int) (Weights, bool) {
	if len(history) < p.MinSamples || len(history) < 2 {
		return current, false
	}
	if p.Every > 1 && samples%p.Every != 0 {
		return current, false
	}

	outcome := make([]float64, len(history))
	for i, s := range history {
		if s.Effective {
			outcome[i] = 1
		}
	}
	if stat.Variance(outcome, nil) == 0 {
		return current, false
	}

	next := make(Weights, len(current))
	changed := false
	for _, name := range model.FeatureNames {
		w := current[name]
		values := make([]float64, len(history))
		for i, s := range history {
			values[i] = s.Features[name]
		}
		if stat.Variance(values, nil) > 0 {
			corr := stat.Correlation(values, outcome, nil)
			if math.Abs(corr) >= p.Threshold {
				w = w * (1 + p.LearningRate*corr)
				changed = true
			}
		}
		next[name] = math.Max(w, minWeight)
	}
	if !changed {
		return current, false
	}
	return next.Normalize(), true
}
