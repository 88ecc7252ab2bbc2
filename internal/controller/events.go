package controller

import (
	"time"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// EventKind names a controller event
type EventKind string

const (
	EventDetection      EventKind = "detection"
	EventDeposit        EventKind = "deposit"
	EventReject         EventKind = "reject"
	EventCycleCompleted EventKind = "cycle_completed"
	EventDelayArmed     EventKind = "delay_armed"
	EventStageEntered   EventKind = "stage_entered"
	EventHalted         EventKind = "halted"
	EventStagesReloaded EventKind = "stages_reloaded"
	EventReloadFailed   EventKind = "reload_failed"
)

// Event is emitted by the controller as the cell makes progress
type Event struct {
	Kind   EventKind      `json:"kind"`
	At     time.Duration  `json:"at"`
	Stage  int            `json:"stage"`
	Fruit  core.FruitType `json:"-"`
	Bin    core.Bin       `json:"bin,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

// Observer receives controller events on the tick goroutine
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
