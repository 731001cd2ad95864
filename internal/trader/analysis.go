package trader

import (
	"time"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/level"
	"github.com/drakos74/level-trader/internal/model"
)

const (
	fastMA = 7
	slowMA = 25
	// trendThreshold is the minimum weighted score for the macro and micro trends to have a direction.
	trendThreshold = 0.1
)

var (
	macroWeights = map[model.Timeframe]float64{
		model.H8: 0.2,
		model.W1: 0.2,
	}
	microWeights = map[model.Timeframe]float64{
		model.M1:  0.3,
		model.M15: 0.3,
	}
)

// Analyze summarises the indicators of a timeframe.
func Analyze(kk model.Klines) model.Analysis {
	return model.Analysis{
		Trend:       trend(kk),
		RSI:         cmath.RSI(kk, cmath.DefaultPeriod),
		ATR:         cmath.ATR(kk, cmath.DefaultPeriod),
		VolumeRatio: cmath.VolumeRatio(kk, cmath.DefaultPeriod),
		Slope:       cmath.Slope(kk, slowMA),
	}
}

// trend compares the fast and slow moving averages of the closes.
// The score is the gap between them in percent, clamped to [-1,1].
func trend(kk model.Klines) model.Trend {
	closes := kk.Closes()
	fast, ok := cmath.SMA(closes, fastMA)
	if !ok {
		return model.Trend{}
	}
	slow, ok := cmath.SMA(closes, slowMA)
	if !ok || slow <= 0 {
		return model.Trend{}
	}
	score := cmath.Clamp((fast-slow)/slow*100, -1, 1)
	t := model.Trend{Score: score}
	switch {
	case fast > slow:
		t.Direction = model.Long
	case fast < slow:
		t.Direction = model.Short
	}
	return t
}

// combine weighs the trend direction of the given timeframes.
func combine(analysis map[model.Timeframe]model.Analysis, weights map[model.Timeframe]float64) model.Trend {
	score := 0.0
	for _, tf := range model.Timeframes {
		a, ok := analysis[tf]
		if !ok {
			continue
		}
		score += a.Trend.Direction.Sign() * weights[tf]
	}
	t := model.Trend{Score: score}
	switch {
	case score > trendThreshold:
		t.Direction = model.Long
	case score < -trendThreshold:
		t.Direction = model.Short
	}
	return t
}

// NewMarketState builds the view of the market the learners decide on.
func NewMarketState(snapshot model.Snapshot, price float64, now time.Time, levels level.Result) model.MarketState {
	analysis := make(map[model.Timeframe]model.Analysis, len(snapshot))
	for _, tf := range model.Timeframes {
		kk, ok := snapshot[tf]
		if !ok || len(kk) == 0 {
			continue
		}
		analysis[tf] = Analyze(kk)
	}
	return model.MarketState{
		Price:          price,
		Time:           now,
		ATR:            analysis[model.M1].ATR,
		BestSupport:    levels.BestSupport,
		BestResistance: levels.BestResistance,
		Analysis:       analysis,
		MacroTrend:     combine(analysis, macroWeights),
		MicroTrend:     combine(analysis, microWeights),
	}
}
