package level

import (
	"math"
	"sort"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
)

const (
	// MaxCandidates is the number of levels returned per side.
	MaxCandidates = 12

	swingWindow        = 5
	fractalWindow      = 3
	consolidationBars  = 20
	consolidationSize  = 50.0
	consolidationTouch = 3
	volumeBucket       = 50.0
	volumeTop          = 8
	recentLookback     = 30

	bandFactor  = 400.0
	minBand     = 1.0
	maxBand     = 10.0
	defaultBand = 5.0
)

// DefaultBuckets are the round number granularities used for the integer levels.
var DefaultBuckets = []float64{50, 100, 250, 500, 1000}

// Candidates are the discovered support and resistance prices, nearest first.
type Candidates struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// Discovery finds candidate price levels from a bar series.
type Discovery struct {
	buckets []float64
}

// NewDiscovery creates a level discovery for the given round number buckets.
func NewDiscovery(buckets ...float64) *Discovery {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	return &Discovery{buckets: buckets}
}

// Discover returns the candidate levels around the price.
// A non-positive price defaults to the last close, a non-positive atr disables the dynamic band.
func (d *Discovery) Discover(kk model.Klines, price, atr float64) Candidates {
	last, ok := kk.Last()
	if !ok {
		return Candidates{Support: []float64{}, Resistance: []float64{}}
	}
	if price <= 0 {
		price = last.Close
	}

	candidates := make(map[float64]struct{})
	add := func(levels []float64) {
		for _, l := range levels {
			candidates[l] = struct{}{}
		}
	}
	add(d.integerLevels(kk))
	add(swingLevels(kk, swingWindow))
	add(fractalLevels(kk, fractalWindow))
	add(consolidationLevels(kk))
	add(volumeProfileLevels(kk))
	add(recentHighLow(kk, recentLookback))

	band := Band(price, atr)
	filtered := make([]float64, 0, len(candidates))
	for c := range candidates {
		if math.Abs(c-price)/price*100 <= band {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		for c := range candidates {
			filtered = append(filtered, c)
		}
	}

	support := make([]float64, 0)
	resistance := make([]float64, 0)
	for _, c := range filtered {
		if c <= price {
			support = append(support, c)
		}
		if c >= price {
			resistance = append(resistance, c)
		}
	}
	// nearest first
	sort.Sort(sort.Reverse(sort.Float64Slice(support)))
	sort.Float64s(resistance)
	return Candidates{
		Support:    head(support, MaxCandidates),
		Resistance: head(resistance, MaxCandidates),
	}
}

// Band is the maximum percentage distance of a candidate from the price.
func Band(price, atr float64) float64 {
	if atr > 0 && price > 0 {
		return cmath.Clamp(atr/price*bandFactor, minBand, maxBand)
	}
	return defaultBand
}

func head(ff []float64, n int) []float64 {
	if len(ff) > n {
		return ff[:n]
	}
	return ff
}

func (d *Discovery) integerLevels(kk model.Klines) []float64 {
	seen := make(map[float64]struct{})
	levels := make([]float64, 0)
	for _, b := range d.buckets {
		for _, k := range kk {
			l := cmath.Bucket(k.Close, b)
			// prices below half a bucket round to zero
			if l <= 0 {
				continue
			}
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				levels = append(levels, l)
			}
		}
	}
	return levels
}

// swingLevels finds highs and lows at least as extreme as their neighbours.
func swingLevels(kk model.Klines, w int) []float64 {
	return extremes(kk, w, func(a, b float64) bool { return a >= b })
}

// fractalLevels finds highs and lows strictly more extreme than their neighbours.
func fractalLevels(kk model.Klines, w int) []float64 {
	return extremes(kk, w, func(a, b float64) bool { return a > b })
}

func extremes(kk model.Klines, w int, dominates func(a, b float64) bool) []float64 {
	levels := make([]float64, 0)
	for i := w; i < len(kk)-w; i++ {
		isHigh := true
		isLow := true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if !dominates(kk[i].High, kk[j].High) {
				isHigh = false
			}
			if !dominates(-kk[i].Low, -kk[j].Low) {
				isLow = false
			}
		}
		if isHigh {
			levels = append(levels, kk[i].High)
		}
		if isLow {
			levels = append(levels, kk[i].Low)
		}
	}
	return levels
}

func consolidationLevels(kk model.Klines) []float64 {
	if len(kk) < consolidationBars {
		return []float64{}
	}
	touches := make(map[float64]int)
	for _, k := range kk {
		for _, p := range []float64{k.High, k.Low, k.Close} {
			touches[cmath.Bucket(p, consolidationSize)]++
		}
	}
	levels := make([]float64, 0)
	for p, count := range touches {
		if count >= consolidationTouch {
			levels = append(levels, p)
		}
	}
	return levels
}

func volumeProfileLevels(kk model.Klines) []float64 {
	volumes := make(map[float64]float64)
	for _, k := range kk {
		volumes[cmath.Bucket(k.Close, volumeBucket)] += k.Volume
	}
	levels := make([]float64, 0, len(volumes))
	for p := range volumes {
		levels = append(levels, p)
	}
	sort.Slice(levels, func(i, j int) bool {
		if volumes[levels[i]] == volumes[levels[j]] {
			return levels[i] < levels[j]
		}
		return volumes[levels[i]] > volumes[levels[j]]
	})
	return head(levels, volumeTop)
}

func recentHighLow(kk model.Klines, lookback int) []float64 {
	recent := kk.Tail(lookback)
	high := recent[0].High
	low := recent[0].Low
	for _, k := range recent {
		high = math.Max(high, k.High)
		low = math.Min(low, k.Low)
	}
	return []float64{high, low}
}
