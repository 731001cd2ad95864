package account

import (
	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
)

// Summary aggregates a list of closed trades.
type Summary struct {
	Trades          int                      `json:"trades"`
	Wins            int                      `json:"wins"`
	Losses          int                      `json:"losses"`
	WinRate         float64                  `json:"win_rate"`
	TotalPnL        float64                  `json:"total_pnl"`
	TotalPnLPercent float64                  `json:"total_pnl_percent"`
	MaxDrawdown     float64                  `json:"max_drawdown"`
	ProfitFactor    float64                  `json:"profit_factor"`
	Exits           map[model.ExitReason]int `json:"exits"`
}

// Summarize aggregates the trades in the order given.
// The drawdown is the largest drop of the cumulative pnl from its peak.
// The profit factor is left at 0 while there are no losses.
func Summarize(trades []model.ClosedTrade) Summary {
	s := Summary{
		Exits: make(map[model.ExitReason]int),
	}
	var profit, loss, peak, cumulative float64
	for _, trade := range trades {
		s.Trades++
		if trade.Win() {
			s.Wins++
			profit += trade.PnL
		} else {
			s.Losses++
			loss -= trade.PnL
		}
		s.TotalPnL += trade.PnL
		s.TotalPnLPercent += trade.PnLPercent
		s.Exits[trade.ExitReason]++

		cumulative += trade.PnL
		if cumulative > peak {
			peak = cumulative
		}
		if peak-cumulative > s.MaxDrawdown {
			s.MaxDrawdown = peak - cumulative
		}
	}
	s.WinRate = cmath.Div(float64(s.Wins), float64(s.Trades))
	if loss > 0 {
		s.ProfitFactor = profit / loss
	}
	return s
}
