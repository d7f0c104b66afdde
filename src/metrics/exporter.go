// Package metrics exposes finished scenario results as Prometheus gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketsim/src/sim"
)

type Exporter struct {
	registry   *prometheus.Registry
	trades     *prometheus.GaugeVec
	volume     *prometheus.GaugeVec
	vwap       *prometheus.GaugeVec
	avgSpread  *prometheus.GaugeVec
	volatility *prometheus.GaugeVec
	events     *prometheus.GaugeVec
	runSeconds *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Subsystem: "scenario",
			Name:      name,
			Help:      help,
		}, []string{"scenario"})
	}

	e := &Exporter{
		registry:   prometheus.NewRegistry(),
		trades:     gauge("trades", "Trades executed in the scenario."),
		volume:     gauge("volume", "Shares traded in the scenario."),
		vwap:       gauge("vwap", "Volume weighted average trade price."),
		avgSpread:  gauge("avg_spread", "Mean sampled bid-ask spread."),
		volatility: gauge("volatility", "Standard deviation of log returns of the sampled mid."),
		events:     gauge("events", "Scheduler events processed."),
		runSeconds: gauge("run_seconds", "Wall-clock time spent running the scenario."),
	}
	e.registry.MustRegister(e.trades, e.volume, e.vwap, e.avgSpread, e.volatility, e.events, e.runSeconds)
	return e
}

// Observe sets the gauges for every report. A scenario without trades gets
// no vwap sample.
func (e *Exporter) Observe(reports []*sim.Report) {
	for _, r := range reports {
		name := r.Scenario.Name
		e.trades.WithLabelValues(name).Set(float64(r.Metrics.TradeCount))
		e.volume.WithLabelValues(name).Set(float64(r.Metrics.Volume))
		if r.Metrics.HasVWAP {
			e.vwap.WithLabelValues(name).Set(r.Metrics.VWAP)
		}
		e.avgSpread.WithLabelValues(name).Set(r.Metrics.AvgSpread)
		e.volatility.WithLabelValues(name).Set(r.Metrics.Volatility)
		e.events.WithLabelValues(name).Set(float64(r.Events))
		e.runSeconds.WithLabelValues(name).Set(r.Elapsed.Seconds())
	}
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
