package opcua

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

func TestCellValues_CoverEveryNode(t *testing.T) {
	snap := telemetry.Snapshot{
		Stage:          2,
		StageCount:     3,
		Step:           "Dropping",
		Held:           "Orange",
		Oranges:        5,
		RemainingDelay: 2 * time.Second,
		Bins: []telemetry.BinStatus{
			{Bin: core.BinGreen1, Label: "G1"},
			{Bin: core.BinGreen2, Label: "G2"},
			{Bin: core.BinOrange1, Label: "O1", Total: 4, Filled: 1, Required: 3},
			{Bin: core.BinOrange2, Label: "O2"},
		},
		Joints: core.PoseOrangeBin1,
	}
	values := CellValues(snap)

	names := make(map[string]bool)
	for _, def := range CellNodes() {
		names[def.Name] = true
		_, ok := values[def.Name]
		require.True(t, ok, "no value for node %s", def.Name)
	}
	for name := range values {
		require.True(t, names[name], "value %s has no node", name)
	}

	require.Equal(t, int32(2), values["CurrentStage"])
	require.Equal(t, int32(3), values["O1.Required"])
	require.Equal(t, 2.0, values["RemainingDelay"])
	require.Equal(t, core.PoseOrangeBin1[core.JointShoulderPan], values["Joint.shoulder_pan_joint"])
}

func TestServer_ValueStorageWithoutListener(t *testing.T) {
	s := NewServer(0, "test")
	require.False(t, s.Running())

	require.NoError(t, s.RegisterNamespace(core.NamespaceCell, CellFolder, CellDescription, CellNodes()))
	require.Error(t, s.RegisterNamespace(core.NamespaceCell, CellFolder, CellDescription, CellNodes()))
	require.Error(t, s.RegisterNamespace(3, "Empty", "", nil))

	v, ok := s.GetNamespaceValue(core.NamespaceCell, "Step")
	require.True(t, ok)
	require.Equal(t, "Waiting", v)

	s.UpdateNamespaceValues(core.NamespaceCell, map[string]interface{}{
		"Step":    "Picking",
		"Unknown": 1,
	})
	v, _ = s.GetNamespaceValue(core.NamespaceCell, "Step")
	require.Equal(t, "Picking", v)
	_, ok = s.GetNamespaceValue(core.NamespaceCell, "Unknown")
	require.False(t, ok)

	require.Len(t, s.GetNamespaceValues(core.NamespaceCell), len(CellNodes()))
	require.Nil(t, s.GetNamespaceValues(9))
}
