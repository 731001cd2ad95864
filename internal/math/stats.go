package math

import (
	"math"

	"github.com/drakos74/level-trader/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultPeriod is the default lookback of the indicators.
	DefaultPeriod = 14
	// neutralRSI is reported when there is not enough data.
	neutralRSI = 50.0
)

// SMA is the simple moving average of the last n values.
// It returns false if there are fewer than n values.
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	return stat.Mean(values[len(values)-n:], nil), true
}

// RSI calculates the relative strength index over the last period changes of the close prices.
// Gains and losses are summed, not smoothed.
func RSI(kk model.Klines, period int) float64 {
	if len(kk) <= period {
		return neutralRSI
	}
	gains := 0.0
	losses := 0.0
	for i := len(kk) - period; i < len(kk); i++ {
		change := kk[i].Close - kk[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		if gains == 0 {
			return neutralRSI
		}
		return 100
	}
	rs := gains / losses
	return 100 - (100 / (1 + rs))
}

// ATR is the average true range of the last period bars.
func ATR(kk model.Klines, period int) float64 {
	if len(kk) < 2 {
		if len(kk) == 1 {
			return kk[0].High - kk[0].Low
		}
		return 0
	}
	from := len(kk) - period
	if from < 1 {
		from = 1
	}
	ranges := make([]float64, 0, len(kk)-from)
	for i := from; i < len(kk); i++ {
		prev := kk[i-1].Close
		tr := math.Max(kk[i].High-kk[i].Low, math.Max(math.Abs(kk[i].High-prev), math.Abs(kk[i].Low-prev)))
		ranges = append(ranges, tr)
	}
	return stat.Mean(ranges, nil)
}

// VolumeRatio compares the last bar volume to the average of the previous period bars.
func VolumeRatio(kk model.Klines, period int) float64 {
	if len(kk) < 2 {
		return 1
	}
	from := len(kk) - 1 - period
	if from < 0 {
		from = 0
	}
	volumes := make([]float64, 0, period)
	for _, k := range kk[from : len(kk)-1] {
		volumes = append(volumes, k.Volume)
	}
	avg := stat.Mean(volumes, nil)
	if avg == 0 {
		return 1
	}
	return kk[len(kk)-1].Volume / avg
}

// Slope fits a line through the last n closes and returns the slope normalized by the mean price,
// e.g. the relative move per bar.
func Slope(kk model.Klines, n int) float64 {
	tail := kk.Tail(n)
	if len(tail) < 3 {
		return 0
	}
	y := tail.Closes()
	x := make([]float64, len(y))
	floats.Span(x, 0, float64(len(y)-1))
	c, err := Fit(x, y, 1)
	if err != nil || len(c) < 2 {
		return 0
	}
	mean := stat.Mean(y, nil)
	if mean == 0 {
		return 0
	}
	return c[1] / mean
}
