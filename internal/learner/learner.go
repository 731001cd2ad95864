package learner

import (
	"github.com/drakos74/level-trader/internal/model"
)

const defaultMaxPending = 100

// Outcome is what happened to a trade, as seen by the learners.
type Outcome struct {
	PnLPercent   float64          `json:"pnl_percent"`
	ExitReason   model.ExitReason `json:"exit_reason"`
	MaxFavorable float64          `json:"max_favorable"`
	MaxAdverse   float64          `json:"max_adverse"`
	HoldMinutes  float64          `json:"hold_minutes"`
	// AfterMove is the percentage price change shortly after the exit, when it is known.
	AfterMove *float64 `json:"after_move,omitempty"`
}

// OutcomeOf extracts the learner outcome from a closed trade.
func OutcomeOf(trade model.ClosedTrade, after *float64) Outcome {
	return Outcome{
		PnLPercent:   trade.PnLPercent,
		ExitReason:   trade.ExitReason,
		MaxFavorable: trade.MaxFavorable,
		MaxAdverse:   trade.MaxAdverse,
		HoldMinutes:  trade.HoldTime().Minutes(),
		AfterMove:    after,
	}
}

// pending keeps the contexts of open trades in insertion order, bounded to a maximum size.
type pending[T any] struct {
	Items map[string]T `json:"items"`
	Order []string     `json:"order"`
}

func newPending[T any]() pending[T] {
	return pending[T]{
		Items: make(map[string]T),
		Order: make([]string, 0),
	}
}

func (p *pending[T]) add(id string, v T, max int) {
	if p.Items == nil {
		p.Items = make(map[string]T)
	}
	if _, ok := p.Items[id]; !ok {
		p.Order = append(p.Order, id)
	}
	p.Items[id] = v
	for len(p.Order) > max {
		delete(p.Items, p.Order[0])
		p.Order = p.Order[1:]
	}
}

func (p *pending[T]) take(id string) (T, bool) {
	v, ok := p.Items[id]
	if !ok {
		return v, false
	}
	delete(p.Items, id)
	for i, o := range p.Order {
		if o == id {
			p.Order = append(p.Order[:i], p.Order[i+1:]...)
			break
		}
	}
	return v, true
}

func (p *pending[T]) has(id string) bool {
	_, ok := p.Items[id]
	return ok
}

// alignment tells whether the trend agrees with the direction.
func alignment(trend model.Trend, dir model.Direction) float64 {
	switch trend.Direction {
	case dir:
		return 1
	case dir.Opposite():
		return -1
	}
	return 0
}
