package level

import (
	"math"

	"github.com/drakos74/level-trader/internal/model"
)

const (
	volumeDensityScale  = 3.0
	touchBounceScale    = 5.0
	bounceMagnitudePct  = 1.0
	failedBreakoutScale = 3.0
)

// FeatureConfig tunes how bars are matched against a level.
type FeatureConfig struct {
	// TouchTolerance is the fraction of the level price counted as touching it, when there is no ATR.
	TouchTolerance float64 `json:"touch_tolerance"`
	// ATRTolerance is the multiple of the ATR counted as touching the level.
	ATRTolerance float64 `json:"atr_tolerance"`
	// BounceLookahead is the number of bars after a touch inspected for the bounce magnitude.
	BounceLookahead int `json:"bounce_lookahead"`
}

// DefaultFeatureConfig returns the default feature configuration.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		TouchTolerance:  0.002,
		ATRTolerance:    0.5,
		BounceLookahead: 5,
	}
}

// FeatureCalculator extracts the normalized features of a level from a bar series.
type FeatureCalculator struct {
	config FeatureConfig
}

// NewFeatureCalculator creates a new feature calculator.
func NewFeatureCalculator(config FeatureConfig) *FeatureCalculator {
	return &FeatureCalculator{config: config}
}

func (f *FeatureCalculator) tolerance(level, atr float64) float64 {
	if atr > 0 && f.config.ATRTolerance > 0 {
		return f.config.ATRTolerance * atr
	}
	return f.config.TouchTolerance * level
}

// Calculate returns all single-timeframe features of the level, each within [0,1].
func (f *FeatureCalculator) Calculate(level float64, kk model.Klines, atr float64) model.Features {
	features := model.Features{
		model.VolumeDensity:       0,
		model.TouchBounceCount:    0,
		model.BounceMagnitude:     0,
		model.FailedBreakoutCount: 0,
		model.Duration:            0,
	}
	if len(kk) == 0 || level <= 0 {
		return features
	}

	tol := f.tolerance(level, atr)
	upper := level + tol
	lower := level - tol

	totalVolume := 0.0
	nearVolume := 0.0
	bounces := 0
	magnitude := 0.0
	failed := 0
	first, last := -1, -1

	for i, k := range kk {
		totalVolume += k.Volume
		touched := k.Low <= upper && k.High >= lower
		if !touched {
			continue
		}
		nearVolume += k.Volume
		if first < 0 {
			first = i
		}
		last = i

		if k.High > upper && k.Close <= level || k.Low < lower && k.Close >= level {
			failed++
		}

		if k.Close > upper || k.Close < lower {
			bounces++
			magnitude += f.bounce(level, kk, i)
		}
	}

	if totalVolume > 0 {
		features[model.VolumeDensity] = math.Min(1, nearVolume/totalVolume*volumeDensityScale)
	}
	features[model.TouchBounceCount] = math.Min(1, float64(bounces)/touchBounceScale)
	if bounces > 0 {
		features[model.BounceMagnitude] = math.Min(1, magnitude/float64(bounces)/bounceMagnitudePct)
	}
	features[model.FailedBreakoutCount] = math.Min(1, float64(failed)/failedBreakoutScale)
	if len(kk) > 1 && last > first {
		features[model.Duration] = float64(last-first) / float64(len(kk)-1)
	}
	return features
}

// bounce is the largest percentage move away from the level within the lookahead after bar i.
func (f *FeatureCalculator) bounce(level float64, kk model.Klines, i int) float64 {
	end := i + f.config.BounceLookahead
	if end >= len(kk) {
		end = len(kk) - 1
	}
	m := math.Abs(kk[i].Close-level) / level * 100
	for j := i + 1; j <= end; j++ {
		m = math.Max(m, math.Abs(kk[j].Close-level)/level*100)
	}
	return m
}

// MultiTimeframeConfirm is the weighted share of timeframes on which the level was touched.
func (f *FeatureCalculator) MultiTimeframeConfirm(level float64, snapshot model.Snapshot, weights map[model.Timeframe]float64) float64 {
	total := 0.0
	confirmed := 0.0
	tol := f.config.TouchTolerance * level
	for tf, w := range weights {
		kk, ok := snapshot[tf]
		if !ok || len(kk) == 0 || w <= 0 {
			continue
		}
		total += w
		for _, k := range kk {
			if k.Low <= level+tol && k.High >= level-tol {
				confirmed += w
				break
			}
		}
	}
	if total == 0 {
		return 0
	}
	return confirmed / total
}
