package trader

import (
	"github.com/drakos74/level-trader/internal/exit"
	"github.com/drakos74/level-trader/internal/learner"
	"github.com/drakos74/level-trader/internal/level"
	"github.com/drakos74/level-trader/internal/leverage"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/risk"
)

// Config holds the settings of the decision loop and its components.
type Config struct {
	Pair           string  `json:"pair"`
	InitialBalance float64 `json:"initial_balance"`
	// DistanceThreshold is the maximum distance in percent of a level from the price to trade against it.
	DistanceThreshold float64 `json:"distance_threshold"`
	MinLevelScore     float64 `json:"min_level_score"`
	PositionSizePct   float64 `json:"position_size_pct"`
	CooldownBars      int     `json:"cooldown_bars"`
	// EffectiveTolerance is how far beyond the anchor level the exit can be for the level to count as effective.
	EffectiveTolerance float64 `json:"effective_tolerance"`
	AnchorLevels       bool    `json:"anchor_levels"`
	// AfterBars is the number of bars to wait after an exit before the price move is fed to the stop-target learner.
	AfterBars int `json:"after_bars"`
	// MaxTrades stops opening new positions once reached. Zero means no limit.
	MaxTrades int `json:"max_trades"`
	// TradePrefix numbers the trades sequentially, random ids are used when empty.
	TradePrefix string `json:"trade_prefix"`

	Exit       exit.Params                 `json:"exit"`
	Risk       risk.Config                 `json:"risk"`
	Leverage   leverage.Config             `json:"leverage"`
	Entry      learner.EntryConfig         `json:"entry_learner"`
	StopTarget learner.StopTargetConfig    `json:"sl_tp_learner"`
	Features   level.FeatureConfig         `json:"features"`
	Weights    level.CorrelationPolicy     `json:"weights"`
	Timeframes map[model.Timeframe]float64 `json:"timeframe_weights"`
}

// DefaultConfig returns the default loop configuration for the pair.
func DefaultConfig(pair string) Config {
	return Config{
		Pair:               pair,
		InitialBalance:     10000,
		DistanceThreshold:  2.0,
		MinLevelScore:      10,
		PositionSizePct:    5,
		CooldownBars:       3,
		EffectiveTolerance: 0.005,
		AfterBars:          5,
		TradePrefix:        "bt",
		Exit:               exit.DefaultParams(),
		Risk:               risk.DefaultConfig(),
		Leverage:           leverage.DefaultConfig(),
		Entry:              learner.DefaultEntryConfig(),
		StopTarget:         learner.DefaultStopTargetConfig(),
		Features:           level.DefaultFeatureConfig(),
		Weights:            level.DefaultCorrelationPolicy(),
		Timeframes:         level.DefaultTimeframeWeights(),
	}
}
