package risk

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	ReasonOK                = "ok"
	ReasonDailyLoss         = "daily_loss_limit"
	ReasonConsecutiveLosses = "consecutive_losses"
)

// Config are the limits of the risk controller.
type Config struct {
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// DefaultConfig returns the default risk limits.
func DefaultConfig() Config {
	return Config{
		MaxDailyLossPct:      3.0,
		MaxConsecutiveLosses: 5,
	}
}

// Decision tells if trading is allowed and why.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Controller blocks trading after too large a daily loss or too many losses in a row.
// It never resets on its own, Reset has to be called at the day boundary.
type Controller struct {
	config            Config
	dailyPnL          float64
	consecutiveLosses int
	lock              *sync.RWMutex
}

// NewController creates a risk controller with the given limits.
func NewController(config Config) *Controller {
	return &Controller{
		config: config,
		lock:   new(sync.RWMutex),
	}
}

// Update adds the result of a closed trade.
func (c *Controller) Update(pnlPct float64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.dailyPnL += pnlPct
	if pnlPct < 0 {
		c.consecutiveLosses++
	} else {
		c.consecutiveLosses = 0
	}
}

// CanTrade checks the limits.
func (c *Controller) CanTrade() Decision {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.dailyPnL <= -c.config.MaxDailyLossPct {
		return Decision{Reason: ReasonDailyLoss}
	}
	if c.consecutiveLosses >= c.config.MaxConsecutiveLosses {
		return Decision{Reason: ReasonConsecutiveLosses}
	}
	return Decision{Allowed: true, Reason: ReasonOK}
}

// DailyPnL returns the accumulated result of the day.
func (c *Controller) DailyPnL() float64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.dailyPnL
}

// Reset clears the counters for a new day.
func (c *Controller) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	log.Debug().
		Float64("daily-pnl", c.dailyPnL).
		Int("consecutive-losses", c.consecutiveLosses).
		Msg("reset risk controller")
	c.dailyPnL = 0
	c.consecutiveLosses = 0
}
