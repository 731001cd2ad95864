package math

import (
	"testing"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(closes ...float64) model.Klines {
	kk := make(model.Klines, len(closes))
	for i, c := range closes {
		kk[i] = model.Kline{
			Time:   int64(i) * 60000,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	return kk
}

func TestClampBucket(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(0.2, 1, 10))
	assert.Equal(t, 10.0, Clamp(12, 1, 10))
	assert.Equal(t, 4.0, Clamp(4, 1, 10))
	assert.Equal(t, 43250.0, Bucket(43237, 50))
	assert.Equal(t, 43000.0, Bucket(43237, 1000))
	assert.Equal(t, 0.0, Div(1, 0))
	assert.Equal(t, 1.23, Round(1.2345, 2))
}

func TestRSI(t *testing.T) {

	type test struct {
		closes []float64
		rsi    float64
	}

	up := make([]float64, 20)
	down := make([]float64, 20)
	flat := make([]float64, 20)
	mixed := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
		flat[i] = 100
		if i%2 == 0 {
			mixed[i] = 100
		} else {
			mixed[i] = 101
		}
	}

	tests := map[string]test{
		"not-enough-data": {closes: []float64{1, 2, 3}, rsi: 50},
		"only-gains":      {closes: up, rsi: 100},
		"only-losses":     {closes: down, rsi: 0},
		"flat":            {closes: flat, rsi: 50},
		"balanced":        {closes: mixed, rsi: 50},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tt.rsi, RSI(series(tt.closes...), DefaultPeriod), 1e-9)
		})
	}
}

func TestATR(t *testing.T) {
	kk := series(100, 100, 100, 100)
	assert.InDelta(t, 2.0, ATR(kk, DefaultPeriod), 1e-9)
	assert.Equal(t, 0.0, ATR(model.Klines{}, DefaultPeriod))
	// gaps widen the true range
	gap := series(100, 110)
	assert.InDelta(t, 11.0, ATR(gap, DefaultPeriod), 1e-9)
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4}, 2)
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)
	_, ok = SMA([]float64{1}, 2)
	assert.False(t, ok)
}

func TestSlope(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := Slope(series(closes...), 50)
	assert.InDelta(t, 1/124.5, s, 1e-9)
	assert.Less(t, Slope(series(3, 2, 1), 10), 0.0)
}

func TestFit(t *testing.T) {
	c, err := Fit([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c[0], 1e-9)
	assert.InDelta(t, 2.0, c[1], 1e-9)
	_, err = Fit([]float64{0}, []float64{1, 2}, 1)
	assert.Error(t, err)
}
