package account

import (
	"sync"

	"github.com/drakos74/level-trader/internal/buffer"
	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
)

// RecentTrades is the number of trades kept in the account stats.
const RecentTrades = 20

// Tracker keeps the balance and the rolling statistics of the closed trades.
type Tracker struct {
	initial float64
	balance float64
	peak    float64
	stats   model.AccountStats
	wins    *buffer.Stats
	losses  *buffer.Stats
	recent  *buffer.Ring[model.TradeResult]
	lock    *sync.RWMutex
}

// NewTracker creates a tracker starting from the given balance.
func NewTracker(balance float64) *Tracker {
	return &Tracker{
		initial: balance,
		balance: balance,
		peak:    balance,
		wins:    buffer.NewStats(),
		losses:  buffer.NewStats(),
		recent:  buffer.NewRing[model.TradeResult](RecentTrades),
		lock:    new(sync.RWMutex),
	}
}

// Add updates the balance and the statistics with a closed trade.
func (t *Tracker) Add(trade model.ClosedTrade) model.AccountStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.balance += trade.PnL
	if t.balance > t.peak {
		t.peak = t.balance
	}
	if t.peak > 0 {
		drawdown := (t.peak - t.balance) / t.peak * 100
		if drawdown > t.stats.MaxDrawdown {
			t.stats.MaxDrawdown = drawdown
		}
	}

	win := trade.Win()
	t.stats.TotalTrades++
	if win {
		t.stats.Wins++
		t.stats.ConsecutiveWins++
		t.stats.ConsecutiveLosses = 0
		t.wins.Push(trade.PnLPercent)
	} else {
		t.stats.ConsecutiveLosses++
		t.stats.ConsecutiveWins = 0
		t.losses.Push(trade.PnLPercent)
	}
	t.stats.WinRate = cmath.Div(float64(t.stats.Wins), float64(t.stats.TotalTrades))
	t.stats.AvgWinPercent = t.wins.Avg()
	t.stats.AvgLossPercent = t.losses.Avg()

	t.recent.Push(model.TradeResult{
		TradeID:    trade.TradeID,
		PnLPercent: trade.PnLPercent,
		Win:        win,
		Leverage:   trade.Leverage,
		Time:       trade.ExitTime,
	})
	return t.snapshot()
}

// Stats returns the current account statistics.
func (t *Tracker) Stats() model.AccountStats {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() model.AccountStats {
	s := t.stats
	s.RecentTrades = t.recent.Get()
	return s
}

// Balance returns the current and the initial balance.
func (t *Tracker) Balance() (float64, float64) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.balance, t.initial
}
