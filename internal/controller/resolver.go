package controller

import (
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

// Target is where the arm takes the held fruit
type Target struct {
	Pose core.Pose
	Bin  core.Bin // empty for the reject bin
	// Misconfigured is set when the active stage names no bin for the
	// fruit's colour and the reject bin is used instead.
	Misconfigured bool
}

// Reject reports whether the target is the reject bin
func (t Target) Reject() bool {
	return t.Bin == ""
}

// Resolve picks the drop pose for a fruit under the active stage
func Resolve(fruit core.FruitType, stage stages.Stage) Target {
	if fruit == core.FruitRottenApple {
		return Target{Pose: core.PoseReject}
	}

	family, ok := fruit.Family()
	if !ok {
		return Target{Pose: core.PoseReject, Misconfigured: true}
	}
	bin, ok := stage.BinFor(family)
	if !ok {
		return Target{Pose: core.PoseReject, Misconfigured: true}
	}
	pose, ok := core.PoseForBin(bin)
	if !ok {
		return Target{Pose: core.PoseReject, Misconfigured: true}
	}
	return Target{Pose: pose, Bin: bin}
}
