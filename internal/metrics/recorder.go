// Package metrics exports controller events and cell state as Prometheus
// metrics.
package metrics

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

const namespace = "fruitsort"

// Recorder implements controller.Observer using Prometheus metrics
type Recorder struct {
	once             sync.Once
	detections       *prom.CounterVec
	deposits         *prom.CounterVec
	rejects          prom.Counter
	cycles           prom.Counter
	stageTransitions prom.Counter
	reloads          prom.Counter
	reloadFailures   prom.Counter
	halts            prom.Counter
	ticks            prom.Counter
	currentStage     prom.Gauge
	conveyorSpeed    prom.Gauge
	halted           prom.Gauge
	binFill          *prom.GaugeVec
}

// NewRecorder constructs and registers the cell metrics
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{}
	r.once.Do(func() {
		r.detections = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Fruit classified in the pick window",
		}, []string{"fruit"})
		r.deposits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_total",
			Help:      "Fruit dropped into quota bins",
		}, []string{"bin"})
		r.rejects = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rejects_total",
			Help:      "Fruit dropped into the reject bin",
		})
		r.cycles = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_completed_total",
			Help:      "Pick cycles that returned home",
		})
		r.stageTransitions = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stages entered after a completed delay",
		})
		r.reloads = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Stage tables installed at runtime",
		})
		r.reloadFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "config_reload_failures_total",
			Help:      "Stage file reloads rejected by the parser",
		})
		r.halts = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "halts_total",
			Help:      "Times the process halted",
		})
		r.ticks = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control ticks executed",
		})
		r.currentStage = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "current_stage",
			Help:      "Active stage id",
		})
		r.conveyorSpeed = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "conveyor_speed_mps",
			Help:      "Effective conveyor speed",
		})
		r.halted = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "halted",
			Help:      "1 once the process is complete",
		})
		r.binFill = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_bin_fill",
			Help:      "Fruit deposited per bin in the active stage",
		}, []string{"bin"})
		reg.MustRegister(r.detections, r.deposits, r.rejects, r.cycles, r.stageTransitions,
			r.reloads, r.reloadFailures, r.halts, r.ticks, r.currentStage, r.conveyorSpeed, r.halted, r.binFill)
	})
	return r
}

// Observe updates counters from a controller event
func (r *Recorder) Observe(ev controller.Event) {
	if r == nil {
		return
	}
	switch ev.Kind {
	case controller.EventDetection:
		r.detections.WithLabelValues(ev.Fruit.String()).Inc()
	case controller.EventDeposit:
		r.deposits.WithLabelValues(string(ev.Bin)).Inc()
	case controller.EventReject:
		r.rejects.Inc()
	case controller.EventCycleCompleted:
		r.cycles.Inc()
	case controller.EventStageEntered:
		r.stageTransitions.Inc()
	case controller.EventStagesReloaded:
		r.reloads.Inc()
	case controller.EventReloadFailed:
		r.reloadFailures.Inc()
	case controller.EventHalted:
		r.halts.Inc()
	}
}

// Update refreshes the gauges from a snapshot and counts one tick
func (r *Recorder) Update(snap telemetry.Snapshot) {
	if r == nil {
		return
	}
	r.ticks.Inc()
	r.currentStage.Set(float64(snap.Stage))
	r.conveyorSpeed.Set(snap.ConveyorSpeed)
	if snap.Halted {
		r.halted.Set(1)
	} else {
		r.halted.Set(0)
	}
	for _, bs := range snap.Bins {
		r.binFill.WithLabelValues(string(bs.Bin)).Set(float64(bs.Filled))
	}
}

// HTTPHandler serves the metrics of the provided registry
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
