package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "level"

type Prometheus struct {
	Trades   *prometheus.CounterVec
	Entries  *prometheus.CounterVec
	PnL      *prometheus.HistogramVec
	Balance  *prometheus.GaugeVec
	Leverage *prometheus.GaugeVec
	Weights  *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades",
				Help:      "closed trades",
			}, []string{"pair", "direction", "reason"}),
		Entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries",
				Help:      "entry decisions",
			}, []string{"pair", "direction", "decision"}),
		PnL: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pnl_percent",
				Help:      "unleveraged pnl of the closed trades",
				Buckets:   []float64{-3, -2, -1, -0.5, 0, 0.5, 1, 2, 3},
			}, []string{"pair"}),
		Balance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "balance",
				Help:      "account balance",
			}, []string{"pair"}),
		Leverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "leverage",
				Help:      "leverage of the last position",
			}, []string{"pair"}),
		Weights: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "level_weight",
				Help:      "learned level feature weights",
			}, []string{"pair", "feature"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.Trades, p.Entries, p.PnL, p.Balance, p.Leverage, p.Weights}
}
