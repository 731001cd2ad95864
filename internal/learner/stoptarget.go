package learner

import (
	"fmt"
	"sync"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/rs/zerolog/log"
)

const stopTargetLabel = "sl_tp_learner"

// StopTargetConfig tunes the stop-loss / take-profit learner.
type StopTargetConfig struct {
	LearningRate  float64 `json:"learning_rate"`
	MinSamples    int     `json:"min_samples"`
	DefaultStop   float64 `json:"default_stop"`
	DefaultTarget float64 `json:"default_target"`
	MinStop       float64 `json:"min_stop"`
	MaxStop       float64 `json:"max_stop"`
	MinTarget     float64 `json:"min_target"`
	MaxTarget     float64 `json:"max_target"`
	// LowVolatility and HighVolatility are the 15m ATR percentages separating the volatility regimes.
	LowVolatility  float64 `json:"low_volatility"`
	HighVolatility float64 `json:"high_volatility"`
	MaxPending     int     `json:"max_pending"`
}

// DefaultStopTargetConfig returns the default configuration.
// Stop and target are fractions of the entry price.
func DefaultStopTargetConfig() StopTargetConfig {
	return StopTargetConfig{
		LearningRate:   0.08,
		MinSamples:     25,
		DefaultStop:    0.01,
		DefaultTarget:  0.015,
		MinStop:        0.003,
		MaxStop:        0.03,
		MinTarget:      0.005,
		MaxTarget:      0.06,
		LowVolatility:  0.3,
		HighVolatility: 0.8,
		MaxPending:     defaultMaxPending,
	}
}

// StopTargetPrediction is the recommended sizing of a trade.
type StopTargetPrediction struct {
	Direction model.Direction `json:"direction"`
	StopPct   float64         `json:"stop_loss_pct"`
	TargetPct float64         `json:"take_profit_pct"`
	Regime    string          `json:"regime"`
	Samples   int             `json:"samples"`
	Default   bool            `json:"default"`
}

// Regime is the learned sizing for one market regime.
type Regime struct {
	Samples   int     `json:"samples"`
	StopPct   float64 `json:"stop_pct"`
	TargetPct float64 `json:"target_pct"`
}

// StopTargetState is the persisted record of the learner.
type StopTargetState struct {
	Regimes map[string]Regime             `json:"regimes"`
	Pending pending[StopTargetPrediction] `json:"pending"`
	Samples int                           `json:"samples"`
}

// StopTarget learns stop-loss and take-profit distances per market regime.
type StopTarget struct {
	config StopTargetConfig
	store  storage.Store
	key    storage.Key
	state  StopTargetState
	lock   *sync.RWMutex
}

// NewStopTarget creates the learner and loads its stored state.
func NewStopTarget(config StopTargetConfig, store storage.Store, pair string) *StopTarget {
	l := &StopTarget{
		config: config,
		store:  store,
		key:    storage.Key{Pair: pair, Label: stopTargetLabel},
		state: StopTargetState{
			Regimes: make(map[string]Regime),
			Pending: newPending[StopTargetPrediction](),
		},
		lock: new(sync.RWMutex),
	}
	var loaded StopTargetState
	if storage.LoadOr(store, l.key, &loaded) {
		if loaded.Regimes == nil {
			loaded.Regimes = make(map[string]Regime)
		}
		if loaded.Pending.Items == nil {
			loaded.Pending = newPending[StopTargetPrediction]()
		}
		l.state = loaded
	}
	log.Info().
		Str("pair", pair).
		Int("samples", l.state.Samples).
		Int("regimes", len(l.state.Regimes)).
		Msg("loaded stop-target learner")
	return l
}

// Samples returns the number of recorded outcomes.
func (l *StopTarget) Samples() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.state.Samples
}

func (l *StopTarget) regime(state model.MarketState, dir model.Direction) string {
	vol := state.Volatility()
	if a, ok := state.Analysis[model.M15]; ok && a.ATR > 0 && state.Price > 0 {
		vol = a.ATR / state.Price * 100
	}
	bucket := "mid"
	switch {
	case vol < l.config.LowVolatility:
		bucket = "low"
	case vol >= l.config.HighVolatility:
		bucket = "high"
	}
	trend := "flat"
	switch alignment(state.MacroTrend, dir) {
	case 1:
		trend = "with"
	case -1:
		trend = "against"
	}
	return fmt.Sprintf("%s_%s_%s", dir, bucket, trend)
}

// Predict recommends the stop and target for a trade in the given direction.
// It does not change the learner.
func (l *StopTarget) Predict(state model.MarketState, dir model.Direction) StopTargetPrediction {
	l.lock.RLock()
	defer l.lock.RUnlock()

	key := l.regime(state, dir)
	p := StopTargetPrediction{
		Direction: dir,
		StopPct:   l.config.DefaultStop,
		TargetPct: l.config.DefaultTarget,
		Regime:    key,
		Default:   true,
	}
	r, ok := l.state.Regimes[key]
	if !ok {
		return p
	}
	p.Samples = r.Samples
	if r.Samples >= l.config.MinSamples {
		p.StopPct = r.StopPct
		p.TargetPct = r.TargetPct
		p.Default = false
	}
	return p
}

// Open keeps the prediction a trade was opened with, until its outcome is recorded.
func (l *StopTarget) Open(tradeID string, p StopTargetPrediction) {
	l.lock.Lock()
	defer l.lock.Unlock()
	next, err := storage.Apply(l.store, l.key, l.state, func(st *StopTargetState) {
		st.Pending.add(tradeID, p, l.config.MaxPending)
	})
	if err != nil {
		log.Warn().Err(err).Str("trade", tradeID).Msg("could not persist stop-target context")
	}
	l.state = next
}

// Record moves the regime of the trade towards the sizing the outcome suggests.
// Unknown trades are ignored.
func (l *StopTarget) Record(tradeID string, outcome Outcome) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.state.Pending.has(tradeID) {
		log.Warn().Str("trade", tradeID).Msg("no stop-target context for trade")
		return false
	}

	matched := false
	next, err := storage.Apply(l.store, l.key, l.state, func(st *StopTargetState) {
		p, ok := st.Pending.take(tradeID)
		if !ok {
			return
		}
		matched = true
		if st.Regimes == nil {
			st.Regimes = make(map[string]Regime)
		}
		r, ok := st.Regimes[p.Regime]
		if !ok {
			r = Regime{StopPct: l.config.DefaultStop, TargetPct: l.config.DefaultTarget}
		}
		stop, target := l.ideal(p, outcome)
		r.StopPct = cmath.Clamp(r.StopPct+l.config.LearningRate*(stop-r.StopPct), l.config.MinStop, l.config.MaxStop)
		r.TargetPct = cmath.Clamp(r.TargetPct+l.config.LearningRate*(target-r.TargetPct), l.config.MinTarget, l.config.MaxTarget)
		r.Samples++
		st.Regimes[p.Regime] = r
		st.Samples++
	})
	if err != nil {
		log.Warn().Err(err).Str("trade", tradeID).Msg("could not persist stop-target outcome")
	}
	l.state = next
	if !matched {
		log.Warn().Str("trade", tradeID).Msg("stop-target context was gone")
	}
	return matched
}

// ideal is the stop and target that would have served the trade best.
func (l *StopTarget) ideal(p StopTargetPrediction, o Outcome) (float64, float64) {
	favorable := o.MaxFavorable / 100
	adverse := o.MaxAdverse / 100
	if o.PnLPercent > 0 {
		stop := adverse * 1.5
		if stop < l.config.MinStop {
			stop = l.config.MinStop
		}
		target := favorable
		if o.ExitReason == model.TakeProfit && target < p.TargetPct {
			target = p.TargetPct
		}
		return stop, target
	}
	stop := p.StopPct * 0.9
	if o.ExitReason == model.StopLoss && o.AfterMove != nil && p.Direction.Sign()*(*o.AfterMove) > 0 {
		// stopped out right before the move
		stop = p.StopPct * 1.2
	}
	target := favorable * 0.9
	if target < l.config.MinTarget {
		target = l.config.MinTarget
	}
	return stop, target
}
