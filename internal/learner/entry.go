package learner

import (
	"math"
	"sync"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	entryLabel   = "entry_learner"
	recentWindow = 20
	// proximityRange is the level distance in percent beyond which the proximity feature is zero.
	proximityRange = 2.0
	// slopeRange is the 1m relative move per bar at which the slope feature saturates.
	slopeRange = 0.001
	// volumeRange is the 1m volume ratio at which the volume feature saturates.
	volumeRange = 2.0
)

// entry model inputs
const (
	bias = iota
	proximity
	room
	trend
	momentum
	levelScore
	micro
	slope
	volume
	numInputs
)

// Phase is the base entry threshold until the given number of trades.
type Phase struct {
	Trades    int     `json:"trades"`
	Threshold float64 `json:"threshold"`
}

// EntryConfig tunes the entry confidence learner.
type EntryConfig struct {
	LearningRate float64 `json:"learning_rate"`
	MinSamples   int     `json:"min_samples"`
	// ExplorationRate decays with every sample down to MinExplorationRate.
	ExplorationRate    float64 `json:"exploration_rate"`
	MinExplorationRate float64 `json:"min_exploration_rate"`
	ExplorationDecay   float64 `json:"exploration_decay"`
	Phases             []Phase `json:"phases"`
	MinThreshold       float64 `json:"min_threshold"`
	MaxThreshold       float64 `json:"max_threshold"`
	MaxPending         int     `json:"max_pending"`
}

// DefaultEntryConfig returns the default entry learner configuration.
func DefaultEntryConfig() EntryConfig {
	return EntryConfig{
		LearningRate:       0.05,
		MinSamples:         30,
		ExplorationRate:    0.2,
		MinExplorationRate: 0.02,
		ExplorationDecay:   0.98,
		Phases: []Phase{
			{Trades: 10, Threshold: 30},
			{Trades: 30, Threshold: 40},
			{Trades: 50, Threshold: 50},
			{Trades: math.MaxInt32, Threshold: 55},
		},
		MinThreshold: 20,
		MaxThreshold: 80,
		MaxPending:   defaultMaxPending,
	}
}

// Conditions describe the setup of a candidate entry.
type Conditions struct {
	// SupportDistance and ResistanceDistance are in percent of the price, negative when there is no level.
	SupportDistance    float64 `json:"support_distance"`
	ResistanceDistance float64 `json:"resistance_distance"`
	RSI                float64 `json:"rsi"`
	// Slope and VolumeRatio come from the 1m analysis.
	Slope       float64 `json:"slope"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// ConditionsOf extracts the entry conditions from the market state.
func ConditionsOf(state model.MarketState) Conditions {
	c := Conditions{
		SupportDistance:    -1,
		ResistanceDistance: -1,
		RSI:                50,
		VolumeRatio:        1,
	}
	if d, ok := state.Distance(state.BestSupport); ok {
		c.SupportDistance = d
	}
	if d, ok := state.Distance(state.BestResistance); ok {
		c.ResistanceDistance = d
	}
	if a, ok := state.Analysis[model.M15]; ok {
		c.RSI = a.RSI
	}
	if a, ok := state.Analysis[model.M1]; ok {
		c.Slope = a.Slope
		c.VolumeRatio = a.VolumeRatio
	}
	return c
}

// EntryInput is everything the entry learner looks at.
type EntryInput struct {
	State      model.MarketState `json:"-"`
	Direction  model.Direction   `json:"direction"`
	Reason     model.EntryReason `json:"reason"`
	Conditions Conditions        `json:"conditions"`
	BaseScore  float64           `json:"base_score"`
	// Draw is a uniform sample in [0,1) supplied by the caller for the exploration decision.
	Draw float64 `json:"draw"`
}

// EntryPrediction is the entry confidence of a candidate trade.
type EntryPrediction struct {
	Direction model.Direction   `json:"direction"`
	Reason    model.EntryReason `json:"reason"`
	Score     float64           `json:"score"`
	Threshold float64           `json:"threshold"`
	Explore   bool              `json:"explore"`
	Inputs    []float64         `json:"inputs"`
	Output    float64           `json:"output"`
	Samples   int               `json:"samples"`
}

// Take tells if the trade should be taken.
func (p EntryPrediction) Take() bool {
	return p.Explore || p.Score >= p.Threshold
}

// ReasonStats counts the results of one kind of entry.
type ReasonStats struct {
	Trades int `json:"trades"`
	Wins   int `json:"wins"`
}

// WinRate is the share of winning trades.
func (r ReasonStats) WinRate() float64 {
	return cmath.Div(float64(r.Wins), float64(r.Trades))
}

// EntryState is the persisted record of the entry learner.
type EntryState struct {
	Weights           []float64                         `json:"weights"`
	Samples           int                               `json:"samples"`
	Recent            []bool                            `json:"recent"`
	ConsecutiveWins   int                               `json:"consecutive_wins"`
	ConsecutiveLosses int                               `json:"consecutive_losses"`
	Reasons           map[model.EntryReason]ReasonStats `json:"reasons"`
	Pending           pending[EntryPrediction]          `json:"pending"`
}

func newEntryState() EntryState {
	return EntryState{
		Weights: make([]float64, numInputs),
		Recent:  make([]bool, 0),
		Reasons: make(map[model.EntryReason]ReasonStats),
		Pending: newPending[EntryPrediction](),
	}
}

// Entry learns how much to trust an entry signal from the outcome of past entries.
type Entry struct {
	config EntryConfig
	store  storage.Store
	key    storage.Key
	state  EntryState
	lock   *sync.RWMutex
}

// NewEntry creates the entry learner and loads its stored state.
func NewEntry(config EntryConfig, store storage.Store, pair string) *Entry {
	l := &Entry{
		config: config,
		store:  store,
		key:    storage.Key{Pair: pair, Label: entryLabel},
		state:  newEntryState(),
		lock:   new(sync.RWMutex),
	}
	var loaded EntryState
	if storage.LoadOr(store, l.key, &loaded) {
		if len(loaded.Weights) != numInputs {
			log.Warn().Int("weights", len(loaded.Weights)).Msg("incompatible entry weights, starting over")
			loaded.Weights = make([]float64, numInputs)
		}
		if loaded.Reasons == nil {
			loaded.Reasons = make(map[model.EntryReason]ReasonStats)
		}
		if loaded.Pending.Items == nil {
			loaded.Pending = newPending[EntryPrediction]()
		}
		l.state = loaded
	}
	log.Info().
		Str("pair", pair).
		Int("samples", l.state.Samples).
		Msg("loaded entry learner")
	return l
}

// Samples returns the number of recorded outcomes.
func (l *Entry) Samples() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.state.Samples
}

func inputs(in EntryInput) []float64 {
	x := make([]float64, numInputs)
	x[bias] = 1
	anchor, opposite := in.Conditions.SupportDistance, in.Conditions.ResistanceDistance
	if in.Direction == model.Short {
		anchor, opposite = opposite, anchor
	}
	if anchor >= 0 {
		x[proximity] = 1 - math.Min(1, anchor/proximityRange)
	}
	if opposite >= 0 {
		x[room] = math.Min(1, opposite/proximityRange)
	} else {
		x[room] = 1
	}
	x[trend] = alignment(in.State.MacroTrend, in.Direction)
	// oversold favours longs, overbought favours shorts
	x[momentum] = -in.Direction.Sign() * (in.Conditions.RSI - 50) / 50
	x[levelScore] = cmath.Clamp(in.BaseScore/100, 0, 1)
	x[micro] = alignment(in.State.MicroTrend, in.Direction)
	x[slope] = cmath.Clamp(in.Direction.Sign()*in.Conditions.Slope/slopeRange, -1, 1)
	x[volume] = cmath.Clamp(in.Conditions.VolumeRatio/volumeRange, 0, 1)
	return x
}

func output(w, x []float64) float64 {
	s := 0.0
	for i := range x {
		s += w[i] * x[i]
	}
	return math.Tanh(s)
}

// Predict scores a candidate entry. It does not change the learner.
func (l *Entry) Predict(in EntryInput) EntryPrediction {
	l.lock.RLock()
	defer l.lock.RUnlock()

	x := inputs(in)
	out := output(l.state.Weights, x)
	score := in.BaseScore
	if l.state.Samples >= l.config.MinSamples {
		score = (in.BaseScore + 50 + 50*out) / 2
	}
	return EntryPrediction{
		Direction: in.Direction,
		Reason:    in.Reason,
		Score:     cmath.Clamp(score, 0, 100),
		Threshold: l.threshold(in.Reason),
		Explore:   in.Draw < l.exploration(),
		Inputs:    x,
		Output:    out,
		Samples:   l.state.Samples,
	}
}

// Threshold returns the current entry threshold for the given kind of entry.
func (l *Entry) Threshold(reason model.EntryReason) float64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.threshold(reason)
}

// ExplorationRate returns the current probability of exploring.
func (l *Entry) ExplorationRate() float64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.exploration()
}

func (l *Entry) exploration() float64 {
	rate := l.config.ExplorationRate * math.Pow(l.config.ExplorationDecay, float64(l.state.Samples))
	return math.Max(l.config.MinExplorationRate, rate)
}

func (l *Entry) threshold(reason model.EntryReason) float64 {
	t := l.config.MaxThreshold
	for _, p := range l.config.Phases {
		if l.state.Samples < p.Trades {
			t = p.Threshold
			break
		}
	}

	recent := l.state.Recent
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	if len(recent) == 5 {
		wins := 0
		for _, w := range recent {
			if w {
				wins++
			}
		}
		rate := float64(wins) / 5
		switch {
		case rate < 0.4:
			t += 10
		case rate > 0.7:
			t -= 5
		}
	}
	if l.state.ConsecutiveLosses >= 3 {
		t += 20
	}
	if l.state.ConsecutiveWins >= 3 {
		t -= 5
	}
	if stats, ok := l.state.Reasons[reason]; ok && stats.Trades >= 10 {
		switch {
		case stats.WinRate() > 0.7:
			t -= 10
		case stats.WinRate() < 0.4:
			t += 15
		}
	}
	return cmath.Clamp(t, l.config.MinThreshold, l.config.MaxThreshold)
}

// Open keeps the prediction a trade was opened with, until its outcome is recorded.
func (l *Entry) Open(tradeID string, p EntryPrediction) {
	l.lock.Lock()
	defer l.lock.Unlock()
	next, err := storage.Apply(l.store, l.key, l.state, func(st *EntryState) {
		st.Pending.add(tradeID, p, l.config.MaxPending)
	})
	if err != nil {
		log.Warn().Err(err).Str("trade", tradeID).Msg("could not persist entry context")
	}
	l.state = next
}

// Record updates the entry model with the result of the trade.
// Unknown trades are ignored.
func (l *Entry) Record(tradeID string, outcome Outcome) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.state.Pending.has(tradeID) {
		log.Warn().Str("trade", tradeID).Msg("no entry context for trade")
		return false
	}

	matched := false
	next, err := storage.Apply(l.store, l.key, l.state, func(st *EntryState) {
		p, ok := st.Pending.take(tradeID)
		if !ok || len(p.Inputs) != numInputs {
			return
		}
		matched = true
		if len(st.Weights) != numInputs {
			st.Weights = make([]float64, numInputs)
		}
		reward := cmath.Clamp(outcome.PnLPercent, -1, 1)
		out := output(st.Weights, p.Inputs)
		for i := range st.Weights {
			st.Weights[i] += l.config.LearningRate * (reward - out) * p.Inputs[i]
		}

		win := outcome.PnLPercent > 0
		st.Samples++
		st.Recent = append(st.Recent, win)
		if len(st.Recent) > recentWindow {
			st.Recent = st.Recent[len(st.Recent)-recentWindow:]
		}
		if win {
			st.ConsecutiveWins++
			st.ConsecutiveLosses = 0
		} else {
			st.ConsecutiveLosses++
			st.ConsecutiveWins = 0
		}
		if st.Reasons == nil {
			st.Reasons = make(map[model.EntryReason]ReasonStats)
		}
		r := st.Reasons[p.Reason]
		r.Trades++
		if win {
			r.Wins++
		}
		st.Reasons[p.Reason] = r
	})
	if err != nil {
		log.Warn().Err(err).Str("trade", tradeID).Msg("could not persist entry outcome")
	}
	l.state = next
	return matched
}
