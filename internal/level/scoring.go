package level

import (
	"sync"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	weightsLabel = "level_weights"
	maxHistory   = 100
)

// State is the persisted record of the level weights and the samples they were learned from.
type State struct {
	Weights Weights  `json:"weights"`
	History []Sample `json:"history"`
	Samples int      `json:"samples"`
	Updates int      `json:"updates"`
}

func newState() State {
	return State{
		Weights: DefaultWeights(),
		History: make([]Sample, 0),
	}
}

// Scorer scores levels with the learned feature weights.
// Scoring only reads the weights, Learn is the single place they change.
type Scorer struct {
	calc   *FeatureCalculator
	policy WeightPolicy
	store  storage.Store
	key    storage.Key
	state  State
	lock   *sync.RWMutex
}

// NewScorer creates a scorer and loads the stored weights for the key.
func NewScorer(calc *FeatureCalculator, policy WeightPolicy, store storage.Store, pair string) *Scorer {
	s := &Scorer{
		calc:   calc,
		policy: policy,
		store:  store,
		key:    storage.Key{Pair: pair, Label: weightsLabel},
		state:  newState(),
		lock:   new(sync.RWMutex),
	}
	var loaded State
	if storage.LoadOr(store, s.key, &loaded) {
		if loaded.History == nil {
			loaded.History = make([]Sample, 0)
		}
		s.state = loaded
	}
	s.state.Weights = s.state.Weights.Normalize()
	log.Info().
		Str("pair", pair).
		Int("samples", s.state.Samples).
		Int("updates", s.state.Updates).
		Msg("loaded level weights")
	return s
}

// Weights returns a copy of the current weights.
func (s *Scorer) Weights() Weights {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Weights.copy()
}

// Samples returns the number of trade outcomes learned from.
func (s *Scorer) Samples() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Samples
}

func (s *Scorer) apply(features model.Features) float64 {
	score := 0.0
	for _, k := range model.FeatureNames {
		score += features[k] * s.state.Weights[k]
	}
	return score * 100
}

// Score scores the level on a single bar series.
func (s *Scorer) Score(level float64, kk model.Klines, atr float64) float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.apply(s.calc.Calculate(level, kk, atr))
}

// ScoreMultiTF blends the features of the level over the timeframes of the snapshot.
// Extra features override the computed ones.
func (s *Scorer) ScoreMultiTF(level float64, snapshot model.Snapshot, tfWeights map[model.Timeframe]float64, atr map[model.Timeframe]float64, extra model.Features) model.Level {
	combined := model.Features{}
	for _, name := range model.FeatureNames {
		combined[name] = 0
	}
	for tf, kk := range snapshot {
		w := tfWeights[tf]
		if w == 0 {
			continue
		}
		for k, v := range s.calc.Calculate(level, kk, atr[tf]) {
			combined[k] += v * w
		}
	}
	combined[model.MultiTFConfirm] = s.calc.MultiTimeframeConfirm(level, snapshot, tfWeights)
	for k, v := range extra {
		combined[k] = v
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	return model.Level{
		Price:    level,
		Score:    s.apply(combined),
		Features: combined,
	}
}

// Learn records the outcome of a trade taken against a level and lets the policy adjust the weights.
// The stored record is modified under exclusive access, if the store fails the update happens in memory only.
func (s *Scorer) Learn(sample Sample) Weights {
	s.lock.Lock()
	defer s.lock.Unlock()

	next, err := storage.Apply(s.store, s.key, s.state, func(st *State) {
		st.Weights = st.Weights.Normalize()
		st.History = append(st.History, sample)
		if len(st.History) > maxHistory {
			st.History = st.History[len(st.History)-maxHistory:]
		}
		st.Samples++
		if w, ok := s.policy.Update(st.Weights, st.History, st.Samples); ok {
			st.Weights = w.Normalize()
			st.Updates++
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("key", s.key.Path()).Msg("could not persist level weights")
	}
	s.state = next
	return s.state.Weights.copy()
}
