package level

import (
	"math"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultTimeframeWeights is the contribution of each timeframe to a level score.
func DefaultTimeframeWeights() map[model.Timeframe]float64 {
	return map[model.Timeframe]float64{
		model.M1:  0.5,
		model.M15: 0.3,
		model.H8:  0.15,
		model.W1:  0.05,
	}
}

// Result holds the scored candidates around a price.
type Result struct {
	Support        []model.Level `json:"support"`
	Resistance     []model.Level `json:"resistance"`
	BestSupport    *model.Level  `json:"best_support,omitempty"`
	BestResistance *model.Level  `json:"best_resistance,omitempty"`
}

// Finder discovers levels on the fine timeframe and scores them on all of them.
type Finder struct {
	discovery *Discovery
	scorer    *Scorer
	tfWeights map[model.Timeframe]float64
}

// NewFinder creates a new level finder.
func NewFinder(discovery *Discovery, scorer *Scorer, tfWeights map[model.Timeframe]float64) *Finder {
	if len(tfWeights) == 0 {
		tfWeights = DefaultTimeframeWeights()
	}
	return &Finder{
		discovery: discovery,
		scorer:    scorer,
		tfWeights: tfWeights,
	}
}

// Scorer returns the underlying scorer.
func (f *Finder) Scorer() *Scorer {
	return f.scorer
}

// Find scores the candidate levels around the price and picks the best on each side.
func (f *Finder) Find(snapshot model.Snapshot, price float64) Result {
	result := Result{
		Support:    make([]model.Level, 0),
		Resistance: make([]model.Level, 0),
	}
	base := snapshot[model.M1]
	if len(base) == 0 {
		return result
	}
	atr := make(map[model.Timeframe]float64, len(snapshot))
	for tf, kk := range snapshot {
		atr[tf] = cmath.ATR(kk, cmath.DefaultPeriod)
	}
	if price <= 0 {
		last, _ := base.Last()
		price = last.Close
	}

	candidates := f.discovery.Discover(base, price, atr[model.M1])
	for _, p := range candidates.Support {
		result.Support = append(result.Support, f.scorer.ScoreMultiTF(p, snapshot, f.tfWeights, atr, nil))
	}
	for _, p := range candidates.Resistance {
		result.Resistance = append(result.Resistance, f.scorer.ScoreMultiTF(p, snapshot, f.tfWeights, atr, nil))
	}
	result.BestSupport = best(result.Support, price)
	result.BestResistance = best(result.Resistance, price)
	return result
}

// best returns the highest scored level, preferring the nearest one on ties.
func best(levels []model.Level, price float64) *model.Level {
	var b *model.Level
	for i := range levels {
		l := levels[i]
		if b == nil || l.Score > b.Score ||
			l.Score == b.Score && math.Abs(l.Price-price) < math.Abs(b.Price-price) {
			b = &l
		}
	}
	return b
}

// RecordTrade feeds the outcome of a trade taken against the level back into the weights.
func (f *Finder) RecordTrade(level model.Level, effective bool, pnlPercent float64) Weights {
	if len(level.Features) == 0 {
		log.Debug().Float64("level", level.Price).Msg("level without features, skipping weight update")
		return f.scorer.Weights()
	}
	w := f.scorer.Learn(Sample{
		Features:   level.Features,
		Effective:  effective,
		PnLPercent: pnlPercent,
	})
	log.Debug().
		Float64("level", level.Price).
		Bool("effective", effective).
		Float64("pnl", pnlPercent).
		Msg("recorded level outcome")
	return w
}
