package trader

import (
	"math"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
)

const (
	// stopRange is the distance in percent within which a level anchors the stop.
	stopRange = 0.5
	// targetRange is the distance in percent within which a level anchors the target.
	targetRange = 2.0

	stopBuffer    = 0.003
	targetBuffer  = 0.001
	minStopPct    = 0.005
	maxStopPct    = 0.012
	minRewardRisk = 1.2
)

// anchored places the stop beyond the level behind the price and the target ahead of the level in front of it.
// Without a level close enough, the given stop and target fractions are used.
// The stop is tightened if the reward does not cover the risk.
func anchored(position model.Position, stopPct, targetPct float64) (float64, float64) {
	price := position.EntryPrice
	s := position.Direction.Sign()
	if price <= 0 || s == 0 {
		return 0, 0
	}
	behind, ahead := position.Support, position.Resistance
	if position.Direction == model.Short {
		behind, ahead = ahead, behind
	}

	stop := price * (1 - s*stopPct)
	if behind != nil && s*(price-behind.Price) > 0 && math.Abs(price-behind.Price)/price*100 <= stopRange {
		pct := s * (price - behind.Price*(1-s*stopBuffer)) / price
		pct = cmath.Clamp(pct, minStopPct, maxStopPct)
		stop = price * (1 - s*pct)
	}

	target := price * (1 + s*targetPct)
	if ahead != nil && s*(ahead.Price-price) > 0 && math.Abs(ahead.Price-price)/price*100 <= targetRange {
		if t := ahead.Price * (1 - s*targetBuffer); s*(t-price) > 0 {
			target = t
		}
	}

	risk := s * (price - stop)
	reward := s * (target - price)
	if reward < risk*minRewardRisk {
		allowed := reward / minRewardRisk
		if allowed/price >= minStopPct {
			stop = price - s*allowed
		}
	}
	return stop, target
}
