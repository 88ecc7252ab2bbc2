package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

func newMachine(t *testing.T, config string) (*StageMachine, *Conveyor, *rig) {
	t.Helper()
	table, err := stages.Parse(config)
	require.NoError(t, err)
	r := newRig()
	conv := NewConveyor(r.belt)
	m := NewStageMachine(table, conv, r.devices, func(ev Event) { r.events = append(r.events, ev) })
	return m, conv, r
}

func TestStageMachine_ZeroQuotaArmsImmediately(t *testing.T) {
	m, conv, r := newMachine(t, "1, (0,G1,0,O1,0)")

	m.Advance(0)
	require.True(t, m.State().DelayArmed)
	require.True(t, conv.Held())
	require.Equal(t, 1, r.countEvents(EventDelayArmed))

	m.Advance(testTick)
	require.True(t, m.Halted())
	require.Equal(t, core.PoseRest, r.pose())
	require.Equal(t, 0.0, conv.Apply(0.15))
	require.Equal(t, 1, r.countEvents(EventHalted))
}

func TestStageMachine_ZeroQuotaStageArmsOnEntry(t *testing.T) {
	m, conv, r := newMachine(t, "2, (0,G1,0,O1,0), (0,G1,0,O1,3)")

	m.Advance(0)
	require.True(t, m.State().DelayArmed)

	m.Advance(time.Second)
	st := m.State()
	require.Equal(t, 2, st.CurrentStage)
	require.True(t, st.DelayArmed, "entered stage arms on the transition tick")
	require.Equal(t, 4*time.Second, st.DelayDeadline)
	require.True(t, conv.Held())
	require.Equal(t, 0.0, conv.Apply(0.15))
	require.Equal(t, 2, r.countEvents(EventDelayArmed))

	m.Advance(4*time.Second - testTick)
	require.False(t, m.Halted())
	m.Advance(4 * time.Second)
	require.True(t, m.Halted())
}

func TestStageMachine_TransitionResetsFill(t *testing.T) {
	m, conv, r := newMachine(t, "2, (1,G1,1,O1,2), (1,G2,1,O2,0)")

	m.RecordDeposit(core.BinGreen1)
	m.Advance(0)
	require.False(t, m.State().DelayArmed)

	m.RecordDeposit(core.BinOrange1)
	m.Advance(time.Second)
	st := m.State()
	require.True(t, st.DelayArmed)
	require.Equal(t, 3*time.Second, st.DelayDeadline)
	require.Equal(t, 2*time.Second, m.RemainingDelay(time.Second))

	m.Advance(2 * time.Second)
	require.Equal(t, 1, m.CurrentStage())
	require.True(t, conv.Held())

	m.Advance(3 * time.Second)
	st = m.State()
	require.Equal(t, 2, st.CurrentStage)
	require.False(t, st.DelayArmed)
	require.False(t, conv.Held())
	for _, b := range core.AllBins() {
		require.Zero(t, st.Fill[b], "bin %s", b)
	}
	require.Equal(t, 1, r.countEvents(EventStageEntered))
}

func TestStageMachine_IdleAdvanceIsNoOp(t *testing.T) {
	m, conv, r := newMachine(t, "1, (2,G1,1,O1,0)")

	m.RecordDeposit(core.BinGreen1)
	before := m.State()
	for i := 0; i < 10; i++ {
		m.Advance(time.Duration(i) * testTick)
	}
	require.Equal(t, before, m.State())
	require.False(t, conv.Held())
	require.Empty(t, r.events)
}

func TestStageMachine_QuotaStaysMetUntilTransition(t *testing.T) {
	m, _, _ := newMachine(t, "2, (1,G1,0,O1,5), (0,G1,0,O1,0)")

	m.RecordDeposit(core.BinGreen1)
	require.True(t, m.QuotasMet())

	// late deposits while the delay runs never unset the quota
	m.Advance(0)
	for i := 1; i < 5; i++ {
		m.RecordDeposit(core.BinGreen1)
		m.Advance(time.Duration(i) * time.Second)
		require.True(t, m.QuotasMet())
		require.Equal(t, 1, m.CurrentStage())
	}
	m.Advance(5 * time.Second)
	require.Equal(t, 2, m.CurrentStage())
}

func TestStageMachine_HaltedReassertsRestPose(t *testing.T) {
	m, conv, r := newMachine(t, "1, (0,G1,0,O1,0)")
	m.Advance(0)
	m.Advance(0)
	require.True(t, m.Halted())

	r.joints[core.JointShoulderPan].pos = 1.2
	conv.Release()
	m.Advance(time.Second)
	require.Equal(t, core.PoseRest, r.pose())
	require.Equal(t, 0.0, conv.Apply(0.15))
	require.Equal(t, 1, r.countEvents(EventHalted))
}

func TestStageMachine_SetTableKeepsStageAndFill(t *testing.T) {
	m, _, _ := newMachine(t, "2, (0,G1,0,O1,0), (3,G2,3,O2,1)")
	m.Advance(0)
	m.Advance(0)
	require.Equal(t, 2, m.CurrentStage())
	m.RecordDeposit(core.BinGreen2)

	next, err := stages.Parse("3, (1,G1,1,O1,1), (1,G2,1,O2,1), (1,G1,1,O1,1)")
	require.NoError(t, err)
	m.SetTable(next)

	require.Equal(t, 2, m.CurrentStage())
	require.Equal(t, 1, m.State().Fill[core.BinGreen2])
	require.False(t, m.QuotasMet())
}

func TestStageMachine_SetTableBeyondEndMovesToHalt(t *testing.T) {
	m, _, _ := newMachine(t, "3, (0,G1,0,O1,0), (0,G1,0,O1,0), (1,G1,1,O1,0)")
	for i := 0; i < 4; i++ {
		m.Advance(0)
	}
	require.Equal(t, 3, m.CurrentStage())

	smaller, err := stages.Parse("1, (1,G1,1,O1,0)")
	require.NoError(t, err)
	m.SetTable(smaller)
	require.Equal(t, smaller.HaltID(), m.CurrentStage())

	m.Advance(time.Second)
	require.True(t, m.Halted())
}
