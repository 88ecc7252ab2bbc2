package controller

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

// StageRuntimeState is the mutable progress through the stage table
type StageRuntimeState struct {
	CurrentStage  int            `json:"currentStage"`
	Fill          core.BinCounts `json:"fill"`
	DelayArmed    bool           `json:"delayArmed"`
	DelayDeadline time.Duration  `json:"delayDeadline"`
	Halted        bool           `json:"halted"`
}

// Clone returns an independent copy
func (s StageRuntimeState) Clone() StageRuntimeState {
	s.Fill = s.Fill.Clone()
	return s
}

// StageMachine tracks quota satisfaction for the active stage and drives
// timed transitions toward HALT.
type StageMachine struct {
	table    *stages.Table
	state    StageRuntimeState
	conveyor *Conveyor
	devices  Devices
	emit     func(Event)
}

// NewStageMachine starts at stage 1 of the given table
func NewStageMachine(table *stages.Table, conveyor *Conveyor, devices Devices, emit func(Event)) *StageMachine {
	if emit == nil {
		emit = func(Event) {}
	}
	return &StageMachine{
		table: table,
		state: StageRuntimeState{
			CurrentStage: 1,
			Fill:         core.NewBinCounts(),
		},
		conveyor: conveyor,
		devices:  devices,
		emit:     emit,
	}
}

// State returns a copy of the runtime state
func (m *StageMachine) State() StageRuntimeState {
	return m.state.Clone()
}

// CurrentStage returns the active stage id
func (m *StageMachine) CurrentStage() int {
	return m.state.CurrentStage
}

// Table returns the active stage table
func (m *StageMachine) Table() *stages.Table {
	return m.table
}

// Halted reports whether the process is complete
func (m *StageMachine) Halted() bool {
	return m.state.Halted
}

// ActiveStage returns the definition of the current stage
func (m *StageMachine) ActiveStage() (stages.Stage, bool) {
	return m.table.Stage(m.state.CurrentStage)
}

// RemainingDelay returns the time left on an armed delay
func (m *StageMachine) RemainingDelay(now time.Duration) time.Duration {
	if !m.state.DelayArmed || m.state.Halted {
		return 0
	}
	if d := m.state.DelayDeadline - now; d > 0 {
		return d
	}
	return 0
}

// RecordDeposit counts one fruit dropped into a bin during this stage
func (m *StageMachine) RecordDeposit(b core.Bin) {
	m.state.Fill[b]++
}

// SetTable installs a reloaded table. The current stage id is kept unless
// it no longer exists, in which case the machine moves to HALT.
func (m *StageMachine) SetTable(table *stages.Table) {
	m.table = table
	if m.state.CurrentStage > table.HaltID() {
		log.Warn().
			Int("stage", m.state.CurrentStage).
			Int("stages", table.Declared()).
			Msg("Current stage no longer exists, moving to HALT")
		m.state.CurrentStage = table.HaltID()
		m.state.DelayArmed = false
	}
}

// QuotasMet reports whether every requirement of the active stage is filled
func (m *StageMachine) QuotasMet() bool {
	stage, ok := m.ActiveStage()
	if !ok {
		return false
	}
	for bin, required := range stage.Requirements {
		if m.state.Fill[bin] < required {
			return false
		}
	}
	return true
}

// Advance runs one stage machine step at simulation time now
func (m *StageMachine) Advance(now time.Duration) {
	if m.state.Halted {
		m.conveyor.Halt()
		m.devices.commandPose(core.PoseRest)
		return
	}

	stage, ok := m.ActiveStage()
	if !ok {
		m.Halt(now, "active stage missing from table")
		return
	}

	if m.state.DelayArmed {
		m.conveyor.Hold()
		if now < m.state.DelayDeadline {
			return
		}
		m.state.DelayArmed = false
		if stage.IsTerminal() || m.table.IsHalt(stage.Next) {
			m.Halt(now, "all stages complete")
			return
		}
		m.enter(now, stage.Next)

		// the entered stage is checked on the same tick, so a zero-quota
		// stage arms its delay at entry
		if stage, ok = m.ActiveStage(); !ok {
			m.Halt(now, "active stage missing from table")
			return
		}
	}

	if stage.IsTerminal() {
		m.Halt(now, "reached HALT stage")
		return
	}

	if m.QuotasMet() {
		m.state.DelayArmed = true
		m.state.DelayDeadline = now + stage.Delay()
		m.conveyor.Hold()
		log.Info().
			Int("stage", stage.ID).
			Dur("delay", stage.Delay()).
			Msg("Stage quotas met, delay armed")
		m.emit(Event{Kind: EventDelayArmed, At: now, Stage: stage.ID})
	}
}

// Halt stops the process permanently
func (m *StageMachine) Halt(now time.Duration, reason string) {
	if m.state.Halted {
		return
	}
	m.state.Halted = true
	m.state.DelayArmed = false
	m.conveyor.Halt()
	m.devices.commandPose(core.PoseRest)
	log.Info().Int("stage", m.state.CurrentStage).Str("reason", reason).Msg("Process halted")
	m.emit(Event{Kind: EventHalted, At: now, Stage: m.state.CurrentStage, Reason: reason})
}

// enter moves to stage id. A pick cycle in flight is not reset: its drop
// lands in the bin resolved at pick time and counts toward the new stage.
func (m *StageMachine) enter(now time.Duration, id int) {
	prev := m.state.CurrentStage
	m.state.CurrentStage = id
	m.state.Fill = core.NewBinCounts()
	m.conveyor.Release()
	log.Info().Int("from", prev).Int("to", id).Msg("Stage transition")
	m.emit(Event{Kind: EventStageEntered, At: now, Stage: id})
}
