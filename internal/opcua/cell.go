package opcua

import (
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

// Cell folder in the OPC UA address space
const (
	CellFolder      = "FruitSortingCell"
	CellDescription = "Fruit sorting cell: stage progress, counters and arm state"
)

// CellNodes returns the variable nodes of the sorting cell
func CellNodes() []core.NodeDefinition {
	nodes := []core.NodeDefinition{
		{Name: "CurrentStage", DisplayName: "Current Stage", Description: "Active stage id", DataType: core.DataTypeInt32, InitialValue: int32(1)},
		{Name: "StageCount", DisplayName: "Stage Count", Description: "Declared stages", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "Halted", DisplayName: "Halted", Description: "Process complete", DataType: core.DataTypeBool, InitialValue: false},
		{Name: "RemainingDelay", DisplayName: "Remaining Delay", Description: "Time left before the next stage", DataType: core.DataTypeDouble, Unit: "s", InitialValue: 0.0},
		{Name: "Step", DisplayName: "Step", Description: "Pick cycle step", DataType: core.DataTypeString, InitialValue: "Waiting"},
		{Name: "HeldFruit", DisplayName: "Held Fruit", Description: "Fruit in the gripper", DataType: core.DataTypeString, InitialValue: "None"},
		{Name: "Apples", DisplayName: "Apples", Description: "Apples detected", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "Oranges", DisplayName: "Oranges", Description: "Oranges detected", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "RottenApples", DisplayName: "Rotten Apples", Description: "Rotten apples detected", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "Rejects", DisplayName: "Rejects", Description: "Fruit dropped into the reject bin", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "CompletedCycles", DisplayName: "Completed Cycles", Description: "Pick cycles that returned home", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		{Name: "ConveyorSpeed", DisplayName: "Conveyor Speed", Description: "Effective belt speed", DataType: core.DataTypeDouble, Unit: "m/s", InitialValue: 0.0},
		{Name: "SimTime", DisplayName: "Simulation Time", Description: "Simulation clock", DataType: core.DataTypeDouble, Unit: "s", InitialValue: 0.0},
	}
	for _, b := range core.AllBins() {
		label := b.Label()
		nodes = append(nodes,
			core.NodeDefinition{Name: label + ".Total", DisplayName: label + " Total", Description: "Fruit deposited in " + string(b), DataType: core.DataTypeInt32, InitialValue: int32(0)},
			core.NodeDefinition{Name: label + ".Filled", DisplayName: label + " Filled", Description: "Fruit deposited in " + string(b) + " this stage", DataType: core.DataTypeInt32, InitialValue: int32(0)},
			core.NodeDefinition{Name: label + ".Required", DisplayName: label + " Required", Description: "Quota of " + string(b) + " this stage", DataType: core.DataTypeInt32, InitialValue: int32(0)},
		)
	}
	for i, name := range core.JointNames {
		nodes = append(nodes, core.NodeDefinition{
			Name:         "Joint." + name,
			DisplayName:  name,
			Description:  "Joint position",
			DataType:     core.DataTypeDouble,
			Unit:         "rad",
			InitialValue: core.PoseHome[i],
		})
	}
	return nodes
}

// CellValues maps a snapshot onto the cell nodes
func CellValues(snap telemetry.Snapshot) map[string]interface{} {
	values := map[string]interface{}{
		"CurrentStage":    int32(snap.Stage),
		"StageCount":      int32(snap.StageCount),
		"Halted":          snap.Halted,
		"RemainingDelay":  snap.RemainingDelay.Seconds(),
		"Step":            snap.Step,
		"HeldFruit":       snap.Held,
		"Apples":          int32(snap.Apples),
		"Oranges":         int32(snap.Oranges),
		"RottenApples":    int32(snap.RottenApples),
		"Rejects":         int32(snap.Rejects),
		"CompletedCycles": int32(snap.CompletedCycles),
		"ConveyorSpeed":   snap.ConveyorSpeed,
		"SimTime":         snap.SimTime.Seconds(),
	}
	for _, bs := range snap.Bins {
		values[bs.Label+".Total"] = int32(bs.Total)
		values[bs.Label+".Filled"] = int32(bs.Filled)
		values[bs.Label+".Required"] = int32(bs.Required)
	}
	for i, name := range core.JointNames {
		values["Joint."+name] = snap.Joints[i]
	}
	return values
}
