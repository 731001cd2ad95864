package level

import (
	"math"
	"testing"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/stretchr/testify/assert"
)

// wave generates bars oscillating around the base price.
func wave(n int, base, amplitude float64) model.Klines {
	kk := make(model.Klines, n)
	for i := 0; i < n; i++ {
		p := base + amplitude*math.Sin(float64(i)/10)
		kk[i] = model.Kline{
			Time:   int64(i) * 60000,
			Open:   p,
			High:   p + amplitude/10,
			Low:    p - amplitude/10,
			Close:  p,
			Volume: 1 + float64(i%7),
		}
	}
	return kk
}

func TestDiscovery_Discover(t *testing.T) {

	type test struct {
		klines model.Klines
		price  float64
		atr    float64
		empty  bool
	}

	tests := map[string]test{
		"empty": {
			klines: model.Klines{},
			price:  43000,
			empty:  true,
		},
		"wave-with-atr": {
			klines: wave(500, 43000, 400),
			price:  43100,
			atr:    50,
		},
		"wave-without-atr": {
			klines: wave(500, 43000, 400),
			price:  43100,
		},
		"default-price": {
			klines: wave(200, 43000, 400),
		},
		"few-bars": {
			klines: wave(5, 43000, 400),
			price:  43000,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewDiscovery().Discover(tt.klines, tt.price, tt.atr)
			if tt.empty {
				assert.Empty(t, c.Support)
				assert.Empty(t, c.Resistance)
				return
			}
			price := tt.price
			if price <= 0 {
				last, _ := tt.klines.Last()
				price = last.Close
			}
			assert.LessOrEqual(t, len(c.Support), MaxCandidates)
			assert.LessOrEqual(t, len(c.Resistance), MaxCandidates)
			assert.NotEmpty(t, c.Support)
			assert.NotEmpty(t, c.Resistance)
			for i, s := range c.Support {
				assert.LessOrEqual(t, s, price)
				if i > 0 {
					assert.GreaterOrEqual(t, c.Support[i-1], s, "support must be nearest first")
				}
			}
			for i, r := range c.Resistance {
				assert.GreaterOrEqual(t, r, price)
				if i > 0 {
					assert.LessOrEqual(t, c.Resistance[i-1], r, "resistance must be nearest first")
				}
			}
		})
	}
}

func TestDiscovery_BandFallback(t *testing.T) {
	// all candidates are far from the price, the unfiltered set is used
	kk := wave(100, 100, 1)
	c := NewDiscovery(1000).Discover(kk, 50, 0.01)
	assert.NotEmpty(t, c.Support)
	assert.LessOrEqual(t, len(c.Resistance), MaxCandidates)
	for _, r := range c.Resistance {
		assert.GreaterOrEqual(t, r, 50.0)
	}
}

func TestBand(t *testing.T) {
	assert.Equal(t, 5.0, Band(43000, 0))
	assert.Equal(t, 1.0, Band(43000, 10))
	assert.Equal(t, 10.0, Band(43000, 5000))
	assert.InDelta(t, 43000*0.005/43000*400, Band(43000, 43000*0.005), 1e-9)
}

func TestExtremes(t *testing.T) {
	kk := model.Klines{
		{High: 1, Low: 0}, {High: 2, Low: 0}, {High: 3, Low: 0}, {High: 5, Low: -1},
		{High: 3, Low: 0}, {High: 2, Low: 0}, {High: 1, Low: 0},
	}
	assert.ElementsMatch(t, []float64{5, -1}, fractalLevels(kk, 3))
	// equal highs count as swing levels but not as fractals
	flat := model.Klines{
		{High: 2, Low: 1}, {High: 2, Low: 1}, {High: 2, Low: 1}, {High: 2, Low: 1},
		{High: 2, Low: 1}, {High: 2, Low: 1}, {High: 2, Low: 1}, {High: 2, Low: 1},
		{High: 2, Low: 1}, {High: 2, Low: 1}, {High: 2, Low: 1},
	}
	assert.ElementsMatch(t, []float64{2, 1}, swingLevels(flat, 5))
	assert.Empty(t, fractalLevels(flat, 3))
}

func TestConsolidationLevels(t *testing.T) {
	assert.Empty(t, consolidationLevels(wave(19, 43000, 10)))
	levels := consolidationLevels(wave(40, 43000, 10))
	assert.Contains(t, levels, 43000.0)
}

func TestIntegerLevels(t *testing.T) {
	kk := model.Klines{
		{Time: 0, Close: 0.8},
		{Time: 60000, Close: 12},
		{Time: 120000, Close: 30},
	}
	levels := NewDiscovery().integerLevels(kk)
	assert.NotEmpty(t, levels)
	assert.Contains(t, levels, 50.0)
	for _, l := range levels {
		assert.Greater(t, l, 0.0)
	}

	candidates := NewDiscovery().Discover(kk, 0, 0)
	for _, l := range append(candidates.Support, candidates.Resistance...) {
		assert.Greater(t, l, 0.0)
	}
}
