package telemetry

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/sim"
)

func sampleState() controller.State {
	counters := controller.NewGlobalCounters()
	counters.Apples = 4
	counters.Oranges = 3
	counters.RottenApples = 1
	counters.Deposits[core.BinGreen1] = 2
	counters.Deposits[core.BinOrange1] = 3
	counters.Rejects = 1
	counters.CompletedCycles = 6

	fill := core.NewBinCounts()
	fill[core.BinGreen1] = 1
	fill[core.BinOrange1] = 2

	return controller.State{
		Stage: controller.StageRuntimeState{
			CurrentStage:  2,
			Fill:          fill,
			DelayArmed:    true,
			DelayDeadline: 10 * time.Second,
		},
		StageCount:     3,
		Requirements:   map[core.Bin]int{core.BinGreen1: 2, core.BinOrange1: 2},
		RemainingDelay: 1500 * time.Millisecond,
		Step:           controller.StepRotating,
		Held:           core.FruitApple,
		Counters:       counters.Clone(),
		ConveyorSpeed:  0,
		ConveyorHeld:   true,
		Ticks:          250,
	}
}

func TestBuild(t *testing.T) {
	snap := Build("run-1", 8*time.Second, sampleState(), core.PoseHome, sim.Stats{Spawned: 9})

	require.Equal(t, "run-1", snap.RunID)
	require.Equal(t, 2, snap.Stage)
	require.Equal(t, 3, snap.StageCount)
	require.Equal(t, "Rotating", snap.Step)
	require.Equal(t, "Apple", snap.Held)
	require.Len(t, snap.Bins, 4)

	g1 := snap.BinStatus(core.BinGreen1)
	require.Equal(t, BinStatus{Bin: core.BinGreen1, Label: "G1", Total: 2, Filled: 1, Required: 2}, g1)

	filled, required := snap.FamilyProgress(core.FamilyOrange)
	require.Equal(t, 2, filled)
	require.Equal(t, 2, required)
	require.Equal(t, 9, snap.World.Spawned)
}

func TestRenderPanel(t *testing.T) {
	snap := Build("run-1", 8*time.Second, sampleState(), core.PoseHome, sim.Stats{})
	panel := RenderPanel(snap)

	lines := strings.Split(strings.TrimSpace(panel), "\n")
	require.Equal(t, []string{
		"Apples:   4    1|2",
		"Oranges:   3    2|2",
		"Fruit: Apple",
		"State: 2|4",
		"G1: 2 1|2  G2: 0 0|0  B1: 1",
		"O1: 3 2|2  O2: 0 0|0  Delay: 1.5",
		"Substate: Rotating",
	}, lines)

	snap.Halted = true
	require.Contains(t, RenderPanel(snap), "Substate: END")
}

func TestStore(t *testing.T) {
	s := NewStore()
	_, ok := s.Latest()
	require.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Publish(Snapshot{Ticks: uint64(i)})
			_, _ = s.Latest()
		}(i)
	}
	wg.Wait()

	_, ok = s.Latest()
	require.True(t, ok)
}

func TestStatusJob(t *testing.T) {
	_, err := NewStatusJob(nil, time.Second)
	require.Error(t, err)

	store := NewStore()
	_, err = NewStatusJob(store, 0)
	require.Error(t, err)

	require.False(t, LogStatus(store))
	store.Publish(Build("run-2", time.Second, sampleState(), core.PoseHome, sim.Stats{}))
	require.True(t, LogStatus(store))

	job, err := NewStatusJob(store, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID())
	job.Start()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, job.Stop())
}
