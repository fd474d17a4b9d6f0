package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles Prometheus metrics for a simulation run and
// provides a ready-to-serve /metrics handler. It satisfies the metrics
// interfaces the recorder and run controller accept.
type RunCollector struct {
	gatherer prometheus.Gatherer

	EventsSimulated prometheus.Counter
	StepsObserved   prometheus.Counter
	RowsRecorded    prometheus.Counter
	EnergyDeposited prometheus.Counter
	StepDeposit     prometheus.Histogram
	GeometryVolumes prometheus.Gauge
}

// NewRunCollector registers run metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_events_total",
		Help: "Total number of simulated events completed.",
	}), "sim_events_total")
	if err != nil {
		return nil, err
	}
	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Total number of step callbacks delivered by the transport engine.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}
	rows, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_deposit_rows_total",
		Help: "Total number of rows appended to the deposit log.",
	}), "sim_deposit_rows_total")
	if err != nil {
		return nil, err
	}
	energy, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_deposited_energy_gev_total",
		Help: "Total energy recorded to the deposit log, in GeV.",
	}), "sim_deposited_energy_gev_total")
	if err != nil {
		return nil, err
	}
	deposit, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_deposit_gev",
		Help:    "Per-step energy deposit of recorded rows, in GeV.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 10, 8),
	}), "sim_step_deposit_gev")
	if err != nil {
		return nil, err
	}
	volumes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_geometry_volumes",
		Help: "Number of volumes in the constructed detector geometry.",
	}), "sim_geometry_volumes")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:        gatherer,
		EventsSimulated: events,
		StepsObserved:   steps,
		RowsRecorded:    rows,
		EnergyDeposited: energy,
		StepDeposit:     deposit,
		GeometryVolumes: volumes,
	}, nil
}

// EventCompleted records one finished event. Suitable as a run
// controller event listener when wrapped: func(int) { c.EventCompleted(n) }.
func (c *RunCollector) EventCompleted(int) {
	if c == nil || c.EventsSimulated == nil {
		return
	}
	c.EventsSimulated.Inc()
}

// StepObserved counts a step callback, qualifying or not.
func (c *RunCollector) StepObserved() {
	if c == nil || c.StepsObserved == nil {
		return
	}
	c.StepsObserved.Inc()
}

// RowRecorded counts an appended log row and accumulates its deposit.
func (c *RunCollector) RowRecorded(depositGeV float64) {
	if c == nil {
		return
	}
	if c.RowsRecorded != nil {
		c.RowsRecorded.Inc()
	}
	if c.EnergyDeposited != nil {
		c.EnergyDeposited.Add(depositGeV)
	}
	if c.StepDeposit != nil {
		c.StepDeposit.Observe(depositGeV)
	}
}

// SetGeometryVolumes records the size of the constructed volume tree.
func (c *RunCollector) SetGeometryVolumes(n int) {
	if c == nil || c.GeometryVolumes == nil {
		return
	}
	c.GeometryVolumes.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
