package model

import (
	"fmt"
	"math"
	"time"

	cointime "github.com/drakos74/level-trader/internal/time"
)

// Kline is a single OHLCV bar.
type Kline struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Stamp returns the bar open time.
func (k Kline) Stamp() time.Time {
	return cointime.FromMilli(k.Time)
}

// Validate rejects bars with non finite values or a high below the low.
func (k Kline) Validate() error {
	for _, v := range []float64{k.Open, k.High, k.Low, k.Close, k.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid value %v in bar %d", v, k.Time)
		}
	}
	if k.High < k.Low {
		return fmt.Errorf("high %v below low %v in bar %d", k.High, k.Low, k.Time)
	}
	return nil
}

// Klines is a time ordered sequence of bars.
type Klines []Kline

// Last returns the last bar and false if there is none.
func (kk Klines) Last() (Kline, bool) {
	if len(kk) == 0 {
		return Kline{}, false
	}
	return kk[len(kk)-1], true
}

// Tail returns at most the last n bars.
func (kk Klines) Tail(n int) Klines {
	if n <= 0 {
		return Klines{}
	}
	if len(kk) <= n {
		return kk
	}
	return kk[len(kk)-n:]
}

// Closes returns the close prices.
func (kk Klines) Closes() []float64 {
	cc := make([]float64, len(kk))
	for i, k := range kk {
		cc[i] = k.Close
	}
	return cc
}

// Timeframe labels a bar resolution.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M15 Timeframe = "15m"
	H8  Timeframe = "8h"
	W1  Timeframe = "1w"
)

// Timeframes lists the supported resolutions from finest to coarsest.
var Timeframes = []Timeframe{M1, M15, H8, W1}

const (
	// SnapshotBars is the amount of 1m history a snapshot is built from.
	SnapshotBars = 2000
	// MinuteBars is the amount of 1m bars kept in the 1m view of a snapshot.
	MinuteBars = 200
	// WeeklyBars is the amount of 8h bars used as the weekly proxy.
	WeeklyBars = 4
)

// Resample merges consecutive non-overlapping windows of n bars.
// Windows are aligned to the start of the sequence and a partial trailing window is dropped.
// When there are fewer than n bars the input is returned as is.
func Resample(kk Klines, n int) Klines {
	if n <= 1 || len(kk) < n {
		return kk
	}
	out := make(Klines, 0, len(kk)/n)
	for i := 0; i+n <= len(kk); i += n {
		window := kk[i : i+n]
		bar := Kline{
			Time:  window[0].Time,
			Open:  window[0].Open,
			High:  window[0].High,
			Low:   window[0].Low,
			Close: window[n-1].Close,
		}
		for _, k := range window {
			if k.High > bar.High {
				bar.High = k.High
			}
			if k.Low < bar.Low {
				bar.Low = k.Low
			}
			bar.Volume += k.Volume
		}
		out = append(out, bar)
	}
	return out
}

// Snapshot groups the bars of the same history at different resolutions.
type Snapshot map[Timeframe]Klines

// BuildSnapshot derives the multi-timeframe view from 1-minute bars.
func BuildSnapshot(base Klines) Snapshot {
	recent := base.Tail(SnapshotBars)
	h8 := Resample(recent, 480)
	return Snapshot{
		M1:  recent.Tail(MinuteBars),
		M15: Resample(recent, 15),
		H8:  h8,
		W1:  h8.Tail(WeeklyBars),
	}
}
