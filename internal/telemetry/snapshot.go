// Package telemetry publishes immutable snapshots of the cell for readers
// outside the tick goroutine and renders the operator info panel.
package telemetry

import (
	"sync"
	"time"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/sim"
)

// BinStatus is the progress of one quota-tracked bin
type BinStatus struct {
	Bin      core.Bin `json:"bin"`
	Label    string   `json:"label"`
	Total    int      `json:"total"`
	Filled   int      `json:"filled"`
	Required int      `json:"required"`
}

// Snapshot is a point-in-time view of the cell
type Snapshot struct {
	RunID     string        `json:"runId"`
	SimTime   time.Duration `json:"simTime"`
	Ticks     uint64        `json:"ticks"`
	UpdatedAt time.Time     `json:"updatedAt"`

	Stage          int           `json:"stage"`
	StageCount     int           `json:"stageCount"`
	Halted         bool          `json:"halted"`
	DelayArmed     bool          `json:"delayArmed"`
	RemainingDelay time.Duration `json:"remainingDelay"`

	Step     string `json:"step"`
	Held     string `json:"held"`
	Cooldown int    `json:"cooldown"`

	Oranges         int         `json:"oranges"`
	Apples          int         `json:"apples"`
	RottenApples    int         `json:"rottenApples"`
	Rejects         int         `json:"rejects"`
	CompletedCycles int         `json:"completedCycles"`
	Bins            []BinStatus `json:"bins"`

	ConveyorSpeed float64   `json:"conveyorSpeed"`
	ConveyorHeld  bool      `json:"conveyorHeld"`
	Joints        core.Pose `json:"joints"`
	World         sim.Stats `json:"world"`
}

// Build assembles a snapshot from controller state and the world
func Build(runID string, simTime time.Duration, st controller.State, pose core.Pose, stats sim.Stats) Snapshot {
	snap := Snapshot{
		RunID:           runID,
		SimTime:         simTime,
		Ticks:           st.Ticks,
		UpdatedAt:       time.Now(),
		Stage:           st.Stage.CurrentStage,
		StageCount:      st.StageCount,
		Halted:          st.Stage.Halted,
		DelayArmed:      st.Stage.DelayArmed,
		RemainingDelay:  st.RemainingDelay,
		Step:            st.Step.String(),
		Held:            st.Held.String(),
		Cooldown:        st.Cooldown,
		Oranges:         st.Counters.Oranges,
		Apples:          st.Counters.Apples,
		RottenApples:    st.Counters.RottenApples,
		Rejects:         st.Counters.Rejects,
		CompletedCycles: st.Counters.CompletedCycles,
		ConveyorSpeed:   st.ConveyorSpeed,
		ConveyorHeld:    st.ConveyorHeld,
		Joints:          pose,
		World:           stats,
	}
	for _, b := range core.AllBins() {
		snap.Bins = append(snap.Bins, BinStatus{
			Bin:      b,
			Label:    b.Label(),
			Total:    st.Counters.Deposits[b],
			Filled:   st.Stage.Fill[b],
			Required: st.Requirements[b],
		})
	}
	return snap
}

// BinStatus returns the status of one bin
func (s Snapshot) BinStatus(b core.Bin) BinStatus {
	for _, bs := range s.Bins {
		if bs.Bin == b {
			return bs
		}
	}
	return BinStatus{Bin: b, Label: b.Label()}
}

// FamilyProgress sums filled and required counts over a bin family in the
// active stage
func (s Snapshot) FamilyProgress(family core.BinFamily) (filled, required int) {
	for _, bs := range s.Bins {
		if bs.Bin.Family() == family {
			filled += bs.Filled
			required += bs.Required
		}
	}
	return filled, required
}

// Store holds the latest snapshot for concurrent readers
type Store struct {
	mu     sync.RWMutex
	latest Snapshot
	ok     bool
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the latest snapshot
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
	s.ok = true
}

// Latest returns the most recent snapshot, false before the first publish
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ok
}
