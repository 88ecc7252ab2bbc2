// Package controller composes the stage machine and the pick cycle
// sequencer into the per-tick control loop of the sorting cell.
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

// StageSource yields the current stage table once per tick
type StageSource interface {
	Poll() (*stages.Table, bool, error)
}

// Config holds controller settings
type Config struct {
	Sequencer SequencerConfig
	// NominalSpeed returns the belt speed used while nothing holds it
	NominalSpeed func() float64
}

// State is a point-in-time copy of everything the controller owns
type State struct {
	Stage          StageRuntimeState
	StageCount     int
	Requirements   map[core.Bin]int
	RemainingDelay time.Duration
	Step           Step
	Held           core.FruitType
	Cooldown       int
	Counters       GlobalCounters
	ConveyorSpeed  float64
	ConveyorHeld   bool
	Ticks          uint64
}

// Controller runs one control step per simulation tick
type Controller struct {
	cfg       Config
	source    StageSource
	conveyor  *Conveyor
	counters  *GlobalCounters
	machine   *StageMachine
	sequencer *Sequencer
	observers []Observer

	ticks uint64
	now   time.Duration
}

// New wires a controller around an initial stage table and bound devices
func New(cfg Config, table *stages.Table, source StageSource, devices Devices, classifier Classifier) (*Controller, error) {
	if table == nil {
		return nil, errors.New("stage table is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if err := devices.Validate(); err != nil {
		return nil, fmt.Errorf("invalid devices: %w", err)
	}
	if cfg.NominalSpeed == nil {
		cfg.NominalSpeed = func() float64 { return 0.15 }
	}

	c := &Controller{
		cfg:      cfg,
		source:   source,
		conveyor: NewConveyor(devices.Belt),
		counters: NewGlobalCounters(),
	}
	c.machine = NewStageMachine(table, c.conveyor, devices, c.emit)
	c.sequencer = NewSequencer(cfg.Sequencer, devices, classifier, c.machine, c.conveyor, c.counters, c.emit)
	return c, nil
}

// AddObserver registers an event observer
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Tick runs reload, stage advance, sequencer step and conveyor arbitration
// in that order. now is the simulation time.
func (c *Controller) Tick(now time.Duration) {
	c.ticks++
	c.now = now

	c.reload(now)
	c.machine.Advance(now)

	if !c.machine.Halted() {
		if err := c.sequencer.Tick(now); err != nil {
			log.Error().Err(err).Str("step", c.sequencer.Step().String()).Msg("Sequencer step failed, halting")
			c.machine.Halt(now, err.Error())
		}
	}

	c.conveyor.Apply(c.cfg.NominalSpeed())
}

func (c *Controller) reload(now time.Duration) {
	if c.source == nil {
		return
	}
	table, changed, err := c.source.Poll()
	if err != nil {
		log.Error().Err(err).Msg("Stage reload failed, keeping current stages")
		c.emit(Event{Kind: EventReloadFailed, At: now, Stage: c.machine.CurrentStage(), Reason: err.Error()})
		return
	}
	if !changed || table == nil {
		return
	}
	c.machine.SetTable(table)
	log.Info().Int("stages", table.Declared()).Int("current", c.machine.CurrentStage()).Msg("Stage table reloaded")
	c.emit(Event{Kind: EventStagesReloaded, At: now, Stage: c.machine.CurrentStage()})
}

func (c *Controller) emit(ev Event) {
	for _, o := range c.observers {
		o.Observe(ev)
	}
}

// Halted reports whether the process is complete
func (c *Controller) Halted() bool {
	return c.machine.Halted()
}

// Table returns the active stage table
func (c *Controller) Table() *stages.Table {
	return c.machine.Table()
}

// State returns a copy of the controller state
func (c *Controller) State() State {
	st := State{
		Stage:          c.machine.State(),
		StageCount:     c.machine.Table().Declared(),
		RemainingDelay: c.machine.RemainingDelay(c.now),
		Step:           c.sequencer.Step(),
		Held:           c.sequencer.Held(),
		Cooldown:       c.sequencer.Cooldown(),
		Counters:       c.counters.Clone(),
		ConveyorSpeed:  c.conveyor.Speed(),
		ConveyorHeld:   c.conveyor.Held(),
		Ticks:          c.ticks,
	}
	if stage, ok := c.machine.ActiveStage(); ok {
		st.Requirements = make(map[core.Bin]int, len(stage.Requirements))
		for b, n := range stage.Requirements {
			st.Requirements[b] = n
		}
	}
	return st
}
