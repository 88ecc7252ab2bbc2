// Package cell wires the simulated sorting cell to its controller and
// telemetry outputs and drives the tick loop.
package cell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/events"
	"github.com/sebastiankruger/fruitsort-simulator/internal/metrics"
	"github.com/sebastiankruger/fruitsort-simulator/internal/opcua"
	"github.com/sebastiankruger/fruitsort-simulator/internal/report"
	"github.com/sebastiankruger/fruitsort-simulator/internal/sim"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
	"github.com/sebastiankruger/fruitsort-simulator/internal/vision"
)

// Runner manages the sorting cell and everything that observes it
type Runner struct {
	config        config.Config
	runtimeConfig *config.RuntimeConfig
	runID         string

	loader     *stages.Loader
	watcher    *stages.Watcher
	world      *sim.World
	controller *controller.Controller

	store     *telemetry.Store
	statusJob *telemetry.StatusJob
	registry  *prom.Registry
	recorder  *metrics.Recorder

	opcuaServer *opcua.Server
	publisher   *events.Publisher
	reporter    *report.Reporter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner loads the stage file and builds the cell. A missing or
// malformed stage file is returned as an error.
func NewRunner(cfg config.Config) (*Runner, error) {
	r := &Runner{
		config:        cfg,
		runtimeConfig: config.NewRuntimeConfig(&cfg),
		runID:         uuid.NewString(),
		loader:        stages.NewLoader(cfg.StageFile),
		store:         telemetry.NewStore(),
		registry:      prom.NewRegistry(),
	}

	table, err := r.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load stage file: %w", err)
	}
	log.Info().
		Str("path", cfg.StageFile).
		Int("stages", table.Declared()).
		Msg("Stage table loaded")
	log.Debug().Msg(table.String())

	simCfg := sim.DefaultConfig()
	simCfg.Timestep = cfg.Timestep
	simCfg.ArmVelocity = cfg.ArmVelocity
	simCfg.Seed = cfg.Seed
	simCfg.Feeder = sim.FeederConfig{
		Start:         cfg.FeederStart,
		IntervalTicks: cfg.FeederIntervalTicks,
		MaxPerType:    cfg.FeederMaxPerType,
		RottenRate:    cfg.RottenRate,
	}
	r.world = sim.NewWorld(simCfg)

	devices, err := sim.BindDevices(r.world)
	if err != nil {
		return nil, fmt.Errorf("failed to bind devices: %w", err)
	}

	r.controller, err = controller.New(controller.Config{
		Sequencer: controller.SequencerConfig{
			PickCooldownTicks: cfg.PickCooldownTicks,
			DropCooldownTicks: cfg.DropCooldownTicks,
		},
		NominalSpeed: r.runtimeConfig.GetConveyorSpeed,
	}, table, r.loader, devices, vision.NewClassifier())
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	r.recorder = metrics.NewRecorder(r.registry)
	r.controller.AddObserver(r.recorder)

	return r, nil
}

// SetupOPCUA creates the OPC UA server and registers the cell namespace
func (r *Runner) SetupOPCUA(port int, name string) error {
	r.opcuaServer = opcua.NewServer(port, name)
	return r.opcuaServer.RegisterNamespace(
		core.NamespaceCell,
		opcua.CellFolder,
		opcua.CellDescription,
		opcua.CellNodes(),
	)
}

// Start brings up the OPC UA server, the stage file watcher and the
// optional NATS, report and status outputs
func (r *Runner) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	if r.opcuaServer != nil {
		if err := r.opcuaServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start OPC UA server: %w", err)
		}
	}

	if r.config.WatchStages {
		w, err := stages.NewWatcher(r.loader)
		if err != nil {
			log.Warn().Err(err).Msg("Stage file watcher unavailable, relying on polling")
		} else if err := w.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Stage file watcher failed to start, relying on polling")
		} else {
			r.watcher = w
		}
	}

	if r.config.NATSURL != "" {
		p, err := events.Connect(r.config.NATSURL, r.config.NATSSubject, r.runID)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, events will not be published")
		} else {
			r.publisher = p
			r.controller.AddObserver(p)
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				p.Run(ctx)
			}()
		}
	}

	if r.config.ReportEndpoint != "" {
		client := report.NewClient(&r.config)
		r.reporter = report.NewReporter(ctx, client, r.runID, r.controller.State)
		r.controller.AddObserver(r.reporter)
		log.Info().Str("url", client.URL()).Msg("Stage reports enabled")
	}

	if r.config.StatusInterval > 0 {
		job, err := telemetry.NewStatusJob(r.store, r.config.StatusInterval)
		if err != nil {
			return err
		}
		r.statusJob = job
		job.Start()
	}

	log.Info().Str("run_id", r.runID).Msg("Cell started")
	return nil
}

// Step advances the world by one timestep, runs the controller and
// publishes telemetry
func (r *Runner) Step() {
	r.world.Step()
	r.controller.Tick(r.world.Time())

	snap := telemetry.Build(r.runID, r.world.Time(), r.controller.State(), r.world.Pose(), r.world.Stats())
	r.store.Publish(snap)
	r.recorder.Update(snap)
	if r.opcuaServer != nil {
		r.opcuaServer.UpdateNamespaceValues(core.NamespaceCell, opcua.CellValues(snap))
	}
}

// TickInterval returns the wall-clock time between steps at the current
// time scale
func (r *Runner) TickInterval() time.Duration {
	return time.Duration(float64(r.world.Timestep()) / r.runtimeConfig.GetTimeScale())
}

// Run steps the cell until ctx is cancelled
func (r *Runner) Run(ctx context.Context) {
	interval := r.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Dur("timestep", r.world.Timestep()).
		Dur("interval", interval).
		Msg("Starting simulation loop")

	halted := false
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			return

		case <-ticker.C:
			r.Step()

			if !halted && r.controller.Halted() {
				halted = true
				log.Info().
					Dur("sim_time", r.world.Time()).
					Uint64("ticks", r.world.Ticks()).
					Msg("Sorting complete, cell idle")
			}

			if next := r.TickInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				log.Info().Dur("interval", interval).Msg("Tick interval changed")
			}
		}
	}
}

// Stop shuts down every output started by Start
func (r *Runner) Stop(ctx context.Context) error {
	// reports in flight use the run context
	if r.reporter != nil {
		r.reporter.Wait()
	}
	if r.cancel != nil {
		r.cancel()
	}

	if r.statusJob != nil {
		if err := r.statusJob.Stop(); err != nil {
			log.Error().Err(err).Msg("Status job shutdown error")
		}
	}
	if r.watcher != nil {
		if err := r.watcher.Stop(); err != nil {
			log.Error().Err(err).Msg("Stage watcher shutdown error")
		}
	}

	r.wg.Wait()
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("NATS drain error")
		}
	}

	if r.opcuaServer != nil {
		return r.opcuaServer.Stop(ctx)
	}
	return nil
}

// RunID returns the id stamped on snapshots, events and reports
func (r *Runner) RunID() string { return r.runID }

// Store returns the snapshot store
func (r *Runner) Store() *telemetry.Store { return r.store }

// Loader returns the stage file loader
func (r *Runner) Loader() *stages.Loader { return r.loader }

// RuntimeConfig returns the runtime adjustable settings
func (r *Runner) RuntimeConfig() *config.RuntimeConfig { return r.runtimeConfig }

// Registry returns the Prometheus registry of the cell metrics
func (r *Runner) Registry() *prom.Registry { return r.registry }

// OPCUAServer returns the OPC UA server, nil before SetupOPCUA
func (r *Runner) OPCUAServer() *opcua.Server { return r.opcuaServer }

// Controller returns the cell controller
func (r *Runner) Controller() *controller.Controller { return r.controller }

// World returns the simulated cell
func (r *Runner) World() *sim.World { return r.world }
