package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func bars(n int) Klines {
	kk := make(Klines, n)
	for i := 0; i < n; i++ {
		p := 100 + float64(i)
		kk[i] = Kline{
			Time:   int64(i) * time.Minute.Milliseconds(),
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p + 0.5,
			Volume: 1,
		}
	}
	return kk
}

func TestResample(t *testing.T) {

	type test struct {
		bars   int
		n      int
		count  int
		verify func(t *testing.T, kk Klines)
	}

	tests := map[string]test{
		"exact-windows": {
			bars:  30,
			n:     15,
			count: 2,
			verify: func(t *testing.T, kk Klines) {
				assert.Equal(t, 100.0, kk[0].Open)
				assert.Equal(t, 114.5, kk[0].Close)
				assert.Equal(t, 115.0, kk[0].High)
				assert.Equal(t, 99.0, kk[0].Low)
				assert.Equal(t, 15.0, kk[0].Volume)
				assert.Equal(t, int64(15)*time.Minute.Milliseconds(), kk[1].Time)
			},
		},
		"partial-trailing-window-dropped": {
			bars:  40,
			n:     15,
			count: 2,
		},
		"fewer-than-window": {
			bars:  10,
			n:     15,
			count: 10,
		},
		"empty": {
			bars:  0,
			n:     15,
			count: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			kk := Resample(bars(tt.bars), tt.n)
			assert.Equal(t, tt.count, len(kk))
			if tt.verify != nil {
				tt.verify(t, kk)
			}
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	snapshot := BuildSnapshot(bars(2500))
	assert.Equal(t, MinuteBars, len(snapshot[M1]))
	assert.Equal(t, SnapshotBars/15, len(snapshot[M15]))
	assert.Equal(t, SnapshotBars/480, len(snapshot[H8]))
	assert.Equal(t, WeeklyBars, len(snapshot[W1]))
	last, ok := snapshot[M1].Last()
	assert.True(t, ok)
	assert.Equal(t, 2599.0, last.Open)
}

func TestPosition_Track(t *testing.T) {
	p := Position{Direction: Short, EntryPrice: 100}
	p.Track(99)
	p.Track(101.5)
	p.Track(100)
	assert.InDelta(t, 1.0, p.MaxFavorable, 1e-9)
	assert.InDelta(t, 1.5, p.MaxAdverse, 1e-9)
	assert.InDelta(t, -2.0, p.PnLPercent(102), 1e-9)
}
