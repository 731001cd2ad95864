package model

import (
	"fmt"
	"time"
)

// Direction is the side of a position.
type Direction string

const (
	NoDirection Direction = ""
	Long        Direction = "LONG"
	Short       Direction = "SHORT"
)

// Sign returns 1 for long and -1 for short positions.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	}
	return 0
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	}
	return NoDirection
}

// ExitReason names why a position was closed.
type ExitReason string

const (
	StopLoss          ExitReason = "STOP_LOSS"
	TakeProfit        ExitReason = "TAKE_PROFIT"
	MaxLoss           ExitReason = "MAX_LOSS"
	ProfitLock        ExitReason = "PROFIT_LOCK"
	OpportunitySwitch ExitReason = "OPPORTUNITY_SWITCH"
	TimeCost          ExitReason = "TIME_COST"
	ForceClose        ExitReason = "FORCE_CLOSE"
)

// EntryReason names which level triggered an entry.
type EntryReason string

const (
	NearSupport    EntryReason = "NEAR_SUPPORT"
	NearResistance EntryReason = "NEAR_RESISTANCE"
)

// Position is the single open position of the loop.
type Position struct {
	TradeID     string      `json:"trade_id"`
	Direction   Direction   `json:"direction"`
	EntryPrice  float64     `json:"entry_price"`
	EntryTime   time.Time   `json:"entry_time"`
	Quantity    float64     `json:"quantity"`
	StopLoss    float64     `json:"stop_loss"`
	TakeProfit  float64     `json:"take_profit"`
	EntryReason EntryReason `json:"entry_reason"`
	EntryScore  float64     `json:"entry_score"`
	Leverage    int         `json:"leverage"`
	Support     *Level      `json:"support,omitempty"`
	Resistance  *Level      `json:"resistance,omitempty"`
	// MaxFavorable and MaxAdverse are the largest excursions in percent seen while open.
	MaxFavorable float64 `json:"max_favorable"`
	MaxAdverse   float64 `json:"max_adverse"`
}

// PnLPercent returns the unleveraged profit in percent at the given price.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return p.Direction.Sign() * (price - p.EntryPrice) / p.EntryPrice * 100
}

// Track updates the excursions of the position for the given price.
func (p *Position) Track(price float64) {
	pnl := p.PnLPercent(price)
	if pnl > p.MaxFavorable {
		p.MaxFavorable = pnl
	}
	if -pnl > p.MaxAdverse {
		p.MaxAdverse = -pnl
	}
}

// Anchor returns the level the position was opened against.
func (p Position) Anchor() *Level {
	if p.Direction == Short {
		return p.Resistance
	}
	return p.Support
}

func (p Position) String() string {
	return fmt.Sprintf("%s %s @ %.2f [sl=%.2f,tp=%.2f,x%d]",
		p.TradeID, p.Direction, p.EntryPrice, p.StopLoss, p.TakeProfit, p.Leverage)
}

// ClosedTrade is the immutable record of a finished position.
type ClosedTrade struct {
	Position
	ExitPrice         float64    `json:"exit_price"`
	ExitTime          time.Time  `json:"exit_time"`
	PnL               float64    `json:"pnl"`
	PnLPercent        float64    `json:"pnl_percent"`
	ExitReason        ExitReason `json:"exit_reason"`
	LevelWasEffective bool       `json:"level_was_effective"`
}

// Win returns true if the trade made a profit.
func (t ClosedTrade) Win() bool {
	return t.PnL > 0
}

// HoldTime returns how long the position was open.
func (t ClosedTrade) HoldTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
