package model

import "time"

// Trend is a directional reading with a signed strength in [-1,1].
type Trend struct {
	Direction Direction `json:"direction"`
	Score     float64   `json:"score"`
}

// Analysis is the indicator summary of one timeframe.
type Analysis struct {
	Trend       Trend   `json:"trend"`
	RSI         float64 `json:"rsi"`
	ATR         float64 `json:"atr"`
	VolumeRatio float64 `json:"volume_ratio"`
	// Slope is the relative move per bar of a line fitted through the recent closes.
	Slope float64 `json:"slope"`
}

// MarketState is the read-only view passed to the learners.
// Missing levels are nil and missing timeframes are absent from Analysis.
type MarketState struct {
	Price          float64                `json:"price"`
	Time           time.Time              `json:"time"`
	ATR            float64                `json:"atr"`
	BestSupport    *Level                 `json:"best_support,omitempty"`
	BestResistance *Level                 `json:"best_resistance,omitempty"`
	Analysis       map[Timeframe]Analysis `json:"analysis"`
	MacroTrend     Trend                  `json:"macro_trend"`
	MicroTrend     Trend                  `json:"micro_trend"`
}

// Volatility returns the ATR as a percentage of the price.
func (m MarketState) Volatility() float64 {
	if m.Price <= 0 {
		return 0
	}
	return m.ATR / m.Price * 100
}

// Distance returns the percentage distance of the level from the current price.
func (m MarketState) Distance(level *Level) (float64, bool) {
	if level == nil || m.Price <= 0 {
		return 0, false
	}
	d := (m.Price - level.Price) / m.Price * 100
	if d < 0 {
		d = -d
	}
	return d, true
}

// AccountStats is the rolling summary of closed trades.
type AccountStats struct {
	TotalTrades       int           `json:"total_trades"`
	Wins              int           `json:"wins"`
	WinRate           float64       `json:"win_rate"`
	AvgWinPercent     float64       `json:"avg_win_percent"`
	AvgLossPercent    float64       `json:"avg_loss_percent"`
	MaxDrawdown       float64       `json:"max_drawdown"`
	ConsecutiveLosses int           `json:"consecutive_losses"`
	ConsecutiveWins   int           `json:"consecutive_wins"`
	RecentTrades      []TradeResult `json:"recent_trades"`
}

// TradeResult is the compact outcome of a trade kept in the recent history.
type TradeResult struct {
	TradeID    string    `json:"trade_id"`
	PnLPercent float64   `json:"pnl_percent"`
	Win        bool      `json:"win"`
	Leverage   int       `json:"leverage"`
	Time       time.Time `json:"time"`
}
