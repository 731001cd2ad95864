package metrics

import (
	"fmt"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Taken    = "taken"
	Explored = "explored"
	Skipped  = "skipped"
)

// Observer records the activity of the decision loop.
// A nil observer records nothing.
type Observer struct {
	pair       string
	prometheus Prometheus
}

// NewObserver creates an observer and registers its metrics.
func NewObserver(pair string, registry prometheus.Registerer) (*Observer, error) {
	p := NewPrometheusMetrics()
	for _, c := range p.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("could not register metrics: %w", err)
		}
	}
	return &Observer{
		pair:       pair,
		prometheus: p,
	}, nil
}

// Entry counts an entry decision.
func (o *Observer) Entry(direction model.Direction, decision string) {
	if o == nil {
		return
	}
	o.prometheus.Entries.WithLabelValues(o.pair, string(direction), decision).Inc()
}

// Opened tracks the leverage of a new position.
func (o *Observer) Opened(position model.Position) {
	if o == nil {
		return
	}
	o.prometheus.Leverage.WithLabelValues(o.pair).Set(float64(position.Leverage))
}

// Closed tracks a closed trade and the resulting balance.
func (o *Observer) Closed(trade model.ClosedTrade, balance float64) {
	if o == nil {
		return
	}
	o.prometheus.Trades.WithLabelValues(o.pair, string(trade.Direction), string(trade.ExitReason)).Inc()
	o.prometheus.PnL.WithLabelValues(o.pair).Observe(trade.PnLPercent)
	o.prometheus.Balance.WithLabelValues(o.pair).Set(balance)
}

// Weights tracks the level feature weights.
func (o *Observer) Weights(weights map[string]float64) {
	if o == nil {
		return
	}
	for feature, w := range weights {
		o.prometheus.Weights.WithLabelValues(o.pair, feature).Set(w)
	}
}
