package leverage

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	statsLabel  = "leverage_stats"
	streakDepth = 10
	recentStats = 10
)

// Config are the bounds of the leverage optimizer.
type Config struct {
	Base int `json:"base"`
	Min  int `json:"min"`
	Max  int `json:"max"`
	// KellyMinTrades is the number of closed trades below which the kelly estimate is not used.
	KellyMinTrades int     `json:"kelly_min_trades"`
	KellyBlend     float64 `json:"kelly_blend"`
	HistorySize    int     `json:"history_size"`
}

// DefaultConfig returns the default leverage bounds.
func DefaultConfig() Config {
	return Config{
		Base:           10,
		Min:            5,
		Max:            50,
		KellyMinTrades: 20,
		KellyBlend:     0.3,
		HistorySize:    100,
	}
}

// Factors are the inputs and multipliers behind a recommendation.
type Factors struct {
	SignalScore float64 `json:"signal_score"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Base        int     `json:"base_leverage"`
	Signal      float64 `json:"signal_multiplier"`
	Performance float64 `json:"win_rate_multiplier"`
	Drawdown    float64 `json:"drawdown_multiplier"`
	Streak      float64 `json:"streak_multiplier"`
	Kelly       float64 `json:"kelly_leverage"`
}

// Recommendation is the suggested leverage with its explanation.
type Recommendation struct {
	Leverage    int     `json:"leverage"`
	Factors     Factors `json:"factors"`
	Explanation string  `json:"explanation"`
}

// Performance is the result of the trades made with one leverage.
type Performance struct {
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
	WinRate  float64 `json:"win_rate"`
	// HoldMinutes is the accumulated holding time of the trades.
	HoldMinutes float64 `json:"hold_minutes"`
}

// Record is a leverage decision.
type Record struct {
	Time        time.Time `json:"time"`
	Leverage    int       `json:"leverage"`
	SignalScore float64   `json:"signal_score"`
	WinRate     float64   `json:"win_rate"`
	MaxDrawdown float64   `json:"max_drawdown"`
}

// Ledger is the persisted leverage performance record.
type Ledger struct {
	TotalTrades  int                    `json:"total_trades"`
	AvgLeverage  float64                `json:"avg_leverage"`
	Distribution map[string]int         `json:"leverage_distribution"`
	Performance  map[string]Performance `json:"leverage_performance"`
	History      []Record               `json:"recent_history"`
}

func newLedger(base int) Ledger {
	return Ledger{
		AvgLeverage:  float64(base),
		Distribution: make(map[string]int),
		Performance:  make(map[string]Performance),
		History:      make([]Record, 0),
	}
}

// Stats is the reporting view of the ledger.
type Stats struct {
	TotalTrades  int                    `json:"total_trades"`
	AvgLeverage  float64                `json:"avg_leverage"`
	Distribution map[string]int         `json:"leverage_distribution"`
	Performance  map[string]Performance `json:"leverage_performance"`
	Recent       []Record               `json:"recent_history"`
}

// Optimizer recommends a leverage from the signal strength and the account performance.
// Its ledger is kept for reporting only and does not feed back into the recommendation.
type Optimizer struct {
	config Config
	store  storage.Store
	key    storage.Key
	ledger Ledger
	lock   *sync.RWMutex
}

// NewOptimizer creates a leverage optimizer and loads its ledger.
func NewOptimizer(config Config, store storage.Store, pair string) *Optimizer {
	o := &Optimizer{
		config: config,
		store:  store,
		key:    storage.Key{Pair: pair, Label: statsLabel},
		ledger: newLedger(config.Base),
		lock:   new(sync.RWMutex),
	}
	var loaded Ledger
	if storage.LoadOr(store, o.key, &loaded) {
		if loaded.Distribution == nil {
			loaded.Distribution = make(map[string]int)
		}
		if loaded.Performance == nil {
			loaded.Performance = make(map[string]Performance)
		}
		o.ledger = loaded
	}
	return o
}

func signalMultiplier(score float64) float64 {
	switch {
	case score >= 80:
		return 1.5
	case score >= 60:
		return 1.3
	case score >= 45:
		return 1.1
	case score >= 30:
		return 1.0
	}
	return 0.8
}

func winRateMultiplier(rate float64) float64 {
	switch {
	case rate >= 0.65:
		return 1.4
	case rate >= 0.55:
		return 1.2
	case rate >= 0.45:
		return 1.0
	case rate >= 0.35:
		return 0.8
	}
	return 0.6
}

func drawdownMultiplier(drawdown float64) float64 {
	drawdown = math.Abs(drawdown)
	switch {
	case drawdown < 3:
		return 1.2
	case drawdown < 5:
		return 1.0
	case drawdown < 8:
		return 0.8
	case drawdown < 12:
		return 0.6
	}
	return 0.5
}

// streakMultiplier looks at the run of equal results at the end of the last trades.
func streakMultiplier(recent []model.TradeResult) float64 {
	if len(recent) == 0 {
		return 1.0
	}
	if len(recent) > streakDepth {
		recent = recent[len(recent)-streakDepth:]
	}
	last := recent[len(recent)-1].Win
	streak := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Win != last {
			break
		}
		streak++
	}
	if last {
		switch {
		case streak >= 5:
			return 1.1
		case streak >= 3:
			return 1.05
		}
		return 1.0
	}
	switch {
	case streak >= 5:
		return 0.7
	case streak >= 3:
		return 0.85
	}
	return 0.95
}

// kelly returns the half kelly leverage, or 0 if there is not enough history.
func (o *Optimizer) kelly(stats model.AccountStats) float64 {
	avgWin := math.Abs(stats.AvgWinPercent)
	avgLoss := math.Abs(stats.AvgLossPercent)
	if stats.TotalTrades < o.config.KellyMinTrades || avgLoss == 0 || avgWin == 0 {
		return 0
	}
	b := avgWin / avgLoss
	p := stats.WinRate
	fraction := cmath.Clamp(0.5*(p*b-(1-p))/b, 0, 1)
	return float64(o.config.Base) * (1 + fraction)
}

// Recommend returns the leverage for a signal of the given score.
// The decision is kept in the ledger history.
func (o *Optimizer) Recommend(score float64, stats model.AccountStats, now time.Time) Recommendation {
	f := Factors{
		SignalScore: score,
		WinRate:     stats.WinRate,
		MaxDrawdown: math.Abs(stats.MaxDrawdown),
		Base:        o.config.Base,
		Signal:      signalMultiplier(score),
		Performance: winRateMultiplier(stats.WinRate),
		Drawdown:    drawdownMultiplier(stats.MaxDrawdown),
		Streak:      streakMultiplier(stats.RecentTrades),
		Kelly:       o.kelly(stats),
	}
	lev := float64(o.config.Base) * f.Signal * f.Performance * f.Drawdown * f.Streak
	if f.Kelly > 0 {
		lev = lev*(1-o.config.KellyBlend) + f.Kelly*o.config.KellyBlend
	}
	leverage := int(math.Round(lev))
	if leverage < o.config.Min {
		leverage = o.config.Min
	}
	if leverage > o.config.Max {
		leverage = o.config.Max
	}

	o.record(Record{
		Time:        now,
		Leverage:    leverage,
		SignalScore: score,
		WinRate:     stats.WinRate,
		MaxDrawdown: stats.MaxDrawdown,
	})

	return Recommendation{
		Leverage: leverage,
		Factors:  f,
		Explanation: fmt.Sprintf("signal %.0f, win rate %.1f%%, drawdown %.1f%% -> %dx",
			score, stats.WinRate*100, math.Abs(stats.MaxDrawdown), leverage),
	}
}

func (o *Optimizer) update(modify func(l *Ledger)) {
	o.lock.Lock()
	defer o.lock.Unlock()
	next, err := storage.Apply(o.store, o.key, o.ledger, modify)
	if err != nil {
		log.Warn().Err(err).Msg("could not persist leverage stats")
	}
	o.ledger = next
}

func (o *Optimizer) record(r Record) {
	o.update(func(l *Ledger) {
		l.History = append(l.History, r)
		if len(l.History) > o.config.HistorySize {
			l.History = l.History[len(l.History)-o.config.HistorySize:]
		}
	})
}

// RecordOutcome adds the result of a closed trade to the performance of its leverage.
func (o *Optimizer) RecordOutcome(leverage int, pnlPct float64, win bool, hold time.Duration) {
	key := strconv.Itoa(leverage)
	o.update(func(l *Ledger) {
		if l.Distribution == nil {
			l.Distribution = make(map[string]int)
		}
		if l.Performance == nil {
			l.Performance = make(map[string]Performance)
		}
		l.TotalTrades++
		l.Distribution[key]++

		p := l.Performance[key]
		p.Trades++
		if win {
			p.Wins++
		}
		p.TotalPnL += pnlPct
		p.AvgPnL = p.TotalPnL / float64(p.Trades)
		p.WinRate = float64(p.Wins) / float64(p.Trades)
		p.HoldMinutes += hold.Minutes()
		l.Performance[key] = p

		total, count := 0, 0
		for lev, n := range l.Distribution {
			v, err := strconv.Atoi(lev)
			if err != nil {
				continue
			}
			total += v * n
			count += n
		}
		if count > 0 {
			l.AvgLeverage = float64(total) / float64(count)
		}
	})
}

// Stats returns the leverage ledger for reporting.
func (o *Optimizer) Stats() Stats {
	o.lock.RLock()
	defer o.lock.RUnlock()
	distribution := make(map[string]int, len(o.ledger.Distribution))
	for k, v := range o.ledger.Distribution {
		distribution[k] = v
	}
	performance := make(map[string]Performance, len(o.ledger.Performance))
	for k, v := range o.ledger.Performance {
		performance[k] = v
	}
	recent := o.ledger.History
	if len(recent) > recentStats {
		recent = recent[len(recent)-recentStats:]
	}
	return Stats{
		TotalTrades:  o.ledger.TotalTrades,
		AvgLeverage:  cmath.Round(o.ledger.AvgLeverage, 2),
		Distribution: distribution,
		Performance:  performance,
		Recent:       append([]Record{}, recent...),
	}
}

// Leverages returns the leverages that have been traded, in increasing order.
func (s Stats) Leverages() []int {
	ll := make([]int, 0, len(s.Performance))
	for k := range s.Performance {
		if v, err := strconv.Atoi(k); err == nil {
			ll = append(ll, v)
		}
	}
	sort.Ints(ll)
	return ll
}
