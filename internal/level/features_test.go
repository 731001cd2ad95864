package level

import (
	"testing"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFeatureCalculator_Calculate(t *testing.T) {

	type test struct {
		level  float64
		klines model.Klines
		atr    float64
		verify func(t *testing.T, f model.Features)
	}

	bounce := model.Klines{
		{Open: 101, High: 101.5, Low: 100.9, Close: 101, Volume: 1},
		// wick into the level and close above it
		{Open: 101, High: 101.2, Low: 99.9, Close: 100.8, Volume: 5},
		{Open: 100.8, High: 101.6, Low: 100.7, Close: 101.5, Volume: 1},
		{Open: 101.5, High: 101.7, Low: 101.2, Close: 101.6, Volume: 1},
		// break below and close back above
		{Open: 101, High: 101.1, Low: 99.5, Close: 100.1, Volume: 5},
		{Open: 100.1, High: 101.2, Low: 100.1, Close: 101.1, Volume: 1},
	}

	tests := map[string]test{
		"far-level": {
			level:  200,
			klines: bounce,
			verify: func(t *testing.T, f model.Features) {
				for _, v := range f {
					assert.Equal(t, 0.0, v)
				}
			},
		},
		"bounced-level": {
			level:  100,
			klines: bounce,
			verify: func(t *testing.T, f model.Features) {
				assert.InDelta(t, 1.0, f[model.VolumeDensity], 1e-9)
				assert.InDelta(t, 0.4, f[model.TouchBounceCount], 1e-9)
				assert.Greater(t, f[model.BounceMagnitude], 0.0)
				assert.InDelta(t, 1.0/3.0, f[model.FailedBreakoutCount], 1e-9)
				assert.InDelta(t, 4.0/5.0, f[model.Duration], 1e-9)
			},
		},
		"atr-tolerance-widens-touches": {
			level:  100,
			klines: bounce,
			atr:    3,
			verify: func(t *testing.T, f model.Features) {
				assert.InDelta(t, 1.0, f[model.Duration], 1e-9)
			},
		},
		"empty": {
			level:  100,
			klines: model.Klines{},
			verify: func(t *testing.T, f model.Features) {
				assert.Len(t, f, 5)
			},
		},
	}

	calc := NewFeatureCalculator(DefaultFeatureConfig())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := calc.Calculate(tt.level, tt.klines, tt.atr)
			for _, v := range f {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			tt.verify(t, f)
		})
	}
}

func TestFeatureCalculator_MultiTimeframeConfirm(t *testing.T) {
	calc := NewFeatureCalculator(DefaultFeatureConfig())
	snapshot := model.Snapshot{
		model.M1:  model.Klines{{High: 101, Low: 99.9, Close: 100.5}},
		model.M15: model.Klines{{High: 105, Low: 102, Close: 104}},
		model.H8:  model.Klines{{High: 110, Low: 90, Close: 100}},
	}
	weights := map[model.Timeframe]float64{
		model.M1:  0.5,
		model.M15: 0.3,
		model.H8:  0.15,
		model.W1:  0.05,
	}
	assert.InDelta(t, 0.65/0.95, calc.MultiTimeframeConfirm(100, snapshot, weights), 1e-9)
	assert.Equal(t, 0.0, calc.MultiTimeframeConfirm(100, model.Snapshot{}, weights))
}
