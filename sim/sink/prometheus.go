package sink

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/assembly-sim/sim"
)

// PromSink mirrors the latest snapshot into Prometheus collectors. Each run
// registers its own collectors, distinguished by a run_id const label, so
// several replications can share one registry.
type PromSink struct {
	clock       prometheus.Gauge
	events      prometheus.Counter
	blocked     *prometheus.GaugeVec
	blockedTime *prometheus.GaugeVec
	products    *prometheus.CounterVec
	queue       *prometheus.GaugeVec
	busy        *prometheus.GaugeVec

	lastProducts map[string]int
}

// NewPromSink registers the run's collectors on reg.
func NewPromSink(reg prometheus.Registerer, runID string) (*PromSink, error) {
	labels := prometheus.Labels{"run_id": runID}
	p := &PromSink{
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "assembly_sim_clock",
			Help:        "Simulation clock after the last dispatched event.",
			ConstLabels: labels,
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "assembly_sim_events_total",
			Help:        "Events dispatched by the engine.",
			ConstLabels: labels,
		}),
		blocked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "assembly_sim_inspector_blocked",
			Help:        "1 while the inspector waits for buffer space.",
			ConstLabels: labels,
		}, []string{"inspector"}),
		blockedTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "assembly_sim_inspector_blocked_time",
			Help:        "Cumulative simulated time the inspector has been blocked.",
			ConstLabels: labels,
		}, []string{"inspector"}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "assembly_sim_products_total",
			Help:        "Products assembled.",
			ConstLabels: labels,
		}, []string{"product"}),
		queue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "assembly_sim_buffer_length",
			Help:        "Units waiting in a workstation buffer.",
			ConstLabels: labels,
		}, []string{"station", "component"}),
		busy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "assembly_sim_station_busy",
			Help:        "1 while the workstation is assembling.",
			ConstLabels: labels,
		}, []string{"station"}),
		lastProducts: make(map[string]int),
	}
	for _, c := range []prometheus.Collector{p.clock, p.events, p.blocked, p.blockedTime, p.products, p.queue, p.busy} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering prometheus collectors for run %s: %w", runID, err)
		}
	}
	return p, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Record implements sim.SnapshotSink.
func (p *PromSink) Record(s sim.Snapshot) error {
	p.clock.Set(s.Clock)
	p.events.Inc()
	for _, in := range s.Inspectors {
		p.blocked.WithLabelValues(in.Name).Set(boolGauge(in.Blocked))
		p.blockedTime.WithLabelValues(in.Name).Set(in.BlockedTime)
	}
	for _, pc := range s.Products {
		c := p.products.WithLabelValues(pc.Product)
		if d := pc.Count - p.lastProducts[pc.Product]; d > 0 {
			c.Add(float64(d))
		}
		p.lastProducts[pc.Product] = pc.Count
	}
	for _, q := range s.Queues {
		p.queue.WithLabelValues(q.Station, q.Component).Set(float64(q.Length))
	}
	for _, st := range s.Stations {
		p.busy.WithLabelValues(st.Name).Set(boolGauge(st.Busy))
	}
	return nil
}

// Close is a no-op; collectors stay registered so the final values can be
// exported after the run.
func (p *PromSink) Close() error { return nil }

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node-exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing prometheus textfile: %w", err)
	}
	return nil
}

var _ Sink = (*PromSink)(nil)
