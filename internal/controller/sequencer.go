package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Step is the position within a pick-rotate-drop-return cycle
type Step int

const (
	StepWaiting       Step = iota // Watching the pick window for classified fruit
	StepPicking                   // Commanding the drop pose
	StepRotating                  // Waiting for the wrist to reach the bin
	StepDropping                  // Opening the gripper over the bin
	StepReturningHome             // Returning to the pick-ready pose
)

func (s Step) String() string {
	switch s {
	case StepWaiting:
		return "Waiting"
	case StepPicking:
		return "Picking"
	case StepRotating:
		return "Rotating"
	case StepDropping:
		return "Dropping"
	case StepReturningHome:
		return "ReturningHome"
	default:
		return "Unknown"
	}
}

type transitionKey struct {
	from Step
	done bool
}

// transitions maps (step, completed) to the next step. Picking and
// Dropping advance unconditionally.
var transitions = map[transitionKey]Step{
	{StepWaiting, false}:       StepWaiting,
	{StepWaiting, true}:        StepPicking,
	{StepPicking, false}:       StepRotating,
	{StepPicking, true}:        StepRotating,
	{StepRotating, false}:      StepRotating,
	{StepRotating, true}:       StepDropping,
	{StepDropping, false}:      StepReturningHome,
	{StepDropping, true}:       StepReturningHome,
	{StepReturningHome, false}: StepReturningHome,
	{StepReturningHome, true}:  StepWaiting,
}

func nextStep(from Step, done bool) Step {
	if to, ok := transitions[transitionKey{from, done}]; ok {
		return to
	}
	return from
}

// SequencerStepError is returned when a cycle step fails or panics
type SequencerStepError struct {
	Step Step
	Err  error
}

func (e *SequencerStepError) Error() string {
	return fmt.Sprintf("sequencer step %s failed: %v", e.Step, e.Err)
}

func (e *SequencerStepError) Unwrap() error {
	return e.Err
}

// SequencerConfig holds the cycle timing
type SequencerConfig struct {
	PickCooldownTicks int
	DropCooldownTicks int
}

// Sequencer runs the physical pick cycle one step per tick
type Sequencer struct {
	cfg        SequencerConfig
	devices    Devices
	classifier Classifier
	machine    *StageMachine
	conveyor   *Conveyor
	counters   *GlobalCounters
	emit       func(Event)

	step     Step
	held     core.FruitType
	target   Target
	cooldown int
	now      time.Duration
}

// NewSequencer creates a sequencer in the Waiting step
func NewSequencer(cfg SequencerConfig, devices Devices, classifier Classifier, machine *StageMachine, conveyor *Conveyor, counters *GlobalCounters, emit func(Event)) *Sequencer {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Sequencer{
		cfg:        cfg,
		devices:    devices,
		classifier: classifier,
		machine:    machine,
		conveyor:   conveyor,
		counters:   counters,
		emit:       emit,
		step:       StepWaiting,
	}
}

// Step returns the current cycle step
func (s *Sequencer) Step() Step {
	return s.step
}

// Held returns the fruit currently in the gripper
func (s *Sequencer) Held() core.FruitType {
	return s.held
}

// Cooldown returns the remaining cooldown ticks
func (s *Sequencer) Cooldown() int {
	return s.cooldown
}

// Tick decrements the cooldown or runs the current step
func (s *Sequencer) Tick(now time.Duration) error {
	if s.cooldown > 0 {
		s.cooldown--
		return nil
	}
	s.now = now
	return s.run()
}

func (s *Sequencer) run() (err error) {
	current := s.step
	defer func() {
		if r := recover(); r != nil {
			err = &SequencerStepError{Step: current, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var done bool
	switch current {
	case StepWaiting:
		done, err = s.waiting()
	case StepPicking:
		done, err = s.picking()
	case StepRotating:
		done, err = s.rotating()
	case StepDropping:
		done, err = s.dropping()
	case StepReturningHome:
		done, err = s.returningHome()
	default:
		err = fmt.Errorf("unknown step %d", current)
	}
	if err != nil {
		return &SequencerStepError{Step: current, Err: err}
	}

	s.step = nextStep(current, done)
	return nil
}

func (s *Sequencer) waiting() (bool, error) {
	frame, err := s.devices.Camera.Image()
	if err != nil {
		return false, fmt.Errorf("camera: %w", err)
	}
	fruit := s.classifier.Classify(frame)
	present := s.devices.Distance.Value() < DistanceEmpty
	if !present || fruit == core.FruitNone {
		return false, nil
	}

	s.held = fruit
	s.counters.RecordDetection(fruit)
	s.devices.closeFingers()
	s.cooldown = s.cfg.PickCooldownTicks

	log.Debug().Str("fruit", fruit.String()).Msg("Fruit detected")
	s.emit(Event{Kind: EventDetection, At: s.now, Stage: s.machine.CurrentStage(), Fruit: fruit})
	return true, nil
}

func (s *Sequencer) picking() (bool, error) {
	stage, ok := s.machine.ActiveStage()
	if !ok {
		return false, errors.New("no active stage")
	}

	s.target = Resolve(s.held, stage)
	if s.target.Misconfigured {
		log.Warn().
			Str("fruit", s.held.String()).
			Int("stage", stage.ID).
			Msg("No bin for fruit in active stage, using reject bin")
	}
	s.devices.commandPose(s.target.Pose)
	return true, nil
}

func (s *Sequencer) rotating() (bool, error) {
	s.conveyor.Stop()
	threshold := WristDropThreshold
	if s.target.Reject() {
		threshold = WristRejectDropThreshold
	}
	return s.devices.Wrist.Value() < threshold, nil
}

func (s *Sequencer) dropping() (bool, error) {
	s.devices.openFingers()
	s.cooldown = s.cfg.DropCooldownTicks

	stage := s.machine.CurrentStage()
	if s.target.Reject() {
		s.counters.RecordReject()
		s.emit(Event{Kind: EventReject, At: s.now, Stage: stage, Fruit: s.held})
	} else {
		s.machine.RecordDeposit(s.target.Bin)
		s.counters.RecordDeposit(s.target.Bin)
		s.emit(Event{Kind: EventDeposit, At: s.now, Stage: stage, Fruit: s.held, Bin: s.target.Bin})
	}
	s.held = core.FruitNone
	return true, nil
}

func (s *Sequencer) returningHome() (bool, error) {
	s.conveyor.Run()
	back := s.devices.Wrist.Value() > WristHomeThreshold
	s.devices.commandPose(core.PoseHome)
	if back {
		s.counters.CompletedCycles++
		s.emit(Event{Kind: EventCycleCompleted, At: s.now, Stage: s.machine.CurrentStage()})
	}
	return back, nil
}
