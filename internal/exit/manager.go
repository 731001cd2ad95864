package exit

import (
	"fmt"
	"math"
	"sync"
	"time"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	ctime "github.com/drakos74/level-trader/internal/time"
)

// Params are the thresholds of the exit rules. Percentages are unleveraged.
type Params struct {
	MaxLossPct       float64        `json:"max_loss_pct"`
	MinProfitPct     float64        `json:"min_profit_pct"`
	MaxHold          ctime.Duration `json:"max_hold"`
	MinHold          ctime.Duration `json:"min_hold"`
	OpportunityDelta float64        `json:"opportunity_delta"`
	LockStart        float64        `json:"profit_lock_start"`
	LockBaseDrop     float64        `json:"profit_lock_base_drop"`
	LockSlope        float64        `json:"profit_lock_slope"`
}

// DefaultParams returns the default exit thresholds.
func DefaultParams() Params {
	return Params{
		MaxLossPct:       1.0,
		MinProfitPct:     0.3,
		MaxHold:          ctime.Of(45 * time.Minute),
		MinHold:          ctime.Of(5 * time.Minute),
		OpportunityDelta: 15,
		LockStart:        0.6,
		LockBaseDrop:     0.5,
		LockSlope:        0.05,
	}
}

const minLockDrop = 0.15

// State is the running state of an open position across evaluations.
type State struct {
	MaxPnL    float64 `json:"max_pnl_pct"`
	Evaluated bool    `json:"evaluated"`
}

// Market is the signal context of the opposite side.
type Market struct {
	LongScore  float64 `json:"long_score"`
	ShortScore float64 `json:"short_score"`
	Threshold  float64 `json:"threshold"`
}

// Decision is the exit signal for a position.
type Decision struct {
	Reason        model.ExitReason `json:"reason"`
	Confirmations []string         `json:"confirmations"`
	PnLPercent    float64          `json:"pnl_percent"`
}

func decide(reason model.ExitReason, pnl float64, confirmations ...string) *Decision {
	return &Decision{
		Reason:        reason,
		Confirmations: confirmations,
		PnLPercent:    pnl,
	}
}

// Manager evaluates the exit rules of an open position.
type Manager struct {
	params Params
	lock   *sync.RWMutex
}

// NewManager creates an exit manager with the given thresholds.
func NewManager(params Params) *Manager {
	return &Manager{
		params: params,
		lock:   new(sync.RWMutex),
	}
}

// Params returns the current thresholds.
func (m *Manager) Params() Params {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.params
}

// UpdateParams overrides the thresholds that are set in the given params.
func (m *Manager) UpdateParams(p Params) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if p.MaxLossPct > 0 {
		m.params.MaxLossPct = p.MaxLossPct
	}
	if p.MinProfitPct > 0 {
		m.params.MinProfitPct = p.MinProfitPct
	}
	if p.MaxHold.Duration > 0 {
		m.params.MaxHold = p.MaxHold
	}
	if p.MinHold.Duration > 0 {
		m.params.MinHold = p.MinHold
	}
	if p.OpportunityDelta > 0 {
		m.params.OpportunityDelta = p.OpportunityDelta
	}
	if p.LockStart > 0 {
		m.params.LockStart = p.LockStart
	}
	if p.LockBaseDrop > 0 {
		m.params.LockBaseDrop = p.LockBaseDrop
	}
	if p.LockSlope > 0 {
		m.params.LockSlope = p.LockSlope
	}
}

// Evaluate returns the first exit rule that fires for the position at the given price, or nil.
// The order is stop loss, take profit, max loss, profit lock, opportunity switch and time cost.
// The running state is updated when given.
func (m *Manager) Evaluate(position model.Position, market Market, price float64, now time.Time, state *State) *Decision {
	if position.EntryPrice <= 0 || price <= 0 {
		return nil
	}
	p := m.Params()
	pnl := position.PnLPercent(price)

	switch position.Direction {
	case model.Long:
		if position.StopLoss > 0 && price <= position.StopLoss {
			return decide(model.StopLoss, pnl, "stop_loss_hit")
		}
		if position.TakeProfit > 0 && price >= position.TakeProfit {
			return decide(model.TakeProfit, pnl, "take_profit_hit")
		}
	case model.Short:
		if position.StopLoss > 0 && price >= position.StopLoss {
			return decide(model.StopLoss, pnl, "stop_loss_hit")
		}
		if position.TakeProfit > 0 && price <= position.TakeProfit {
			return decide(model.TakeProfit, pnl, "take_profit_hit")
		}
	default:
		return nil
	}

	if pnl <= -p.MaxLossPct {
		return decide(model.MaxLoss, pnl, "max_loss")
	}

	if state != nil {
		if !state.Evaluated || pnl > state.MaxPnL {
			state.MaxPnL = pnl
		}
		state.Evaluated = true
		if state.MaxPnL >= p.LockStart {
			drop := math.Max(minLockDrop, p.LockBaseDrop-state.MaxPnL*p.LockSlope)
			if pnl <= state.MaxPnL-drop {
				return decide(model.ProfitLock, pnl,
					fmt.Sprintf("max_pnl=%s", cmath.Format(state.MaxPnL)),
					fmt.Sprintf("drop=%s", cmath.Format(drop)))
			}
		}
	}

	hold := now.Sub(position.EntryTime)
	if position.EntryTime.IsZero() {
		hold = -1
	}

	if hold >= p.MinHold.Duration && market.Threshold > 0 && pnl < p.MinProfitPct {
		opposite := market.ShortScore
		if position.Direction == model.Short {
			opposite = market.LongScore
		}
		if opposite >= market.Threshold+p.OpportunityDelta {
			return decide(model.OpportunitySwitch, pnl,
				fmt.Sprintf("better_%s_signal", position.Direction.Opposite()),
				fmt.Sprintf("score=%.0f", opposite),
				fmt.Sprintf("threshold=%.0f", market.Threshold))
		}
	}

	if hold >= p.MaxHold.Duration && math.Abs(pnl) < p.MinProfitPct {
		return decide(model.TimeCost, pnl,
			"time_cost",
			fmt.Sprintf("hold_minutes=%.1f", hold.Minutes()))
	}

	return nil
}
