package core

import "math"

// JointCount is the number of commanded arm joints
const JointCount = 5

// Joint indices in command order
const (
	JointShoulderPan = iota
	JointShoulderLift
	JointElbow
	JointWrist1
	JointWrist2
)

// JointNames are the backend device names, in command order
var JointNames = [JointCount]string{
	"shoulder_pan_joint",
	"shoulder_lift_joint",
	"elbow_joint",
	"wrist_1_joint",
	"wrist_2_joint",
}

// FingerNames are the gripper finger device names
var FingerNames = [3]string{
	"finger_1_joint_1",
	"finger_2_joint_1",
	"finger_middle_joint_1",
}

// Pose is a set of arm joint angles in radians
type Pose [JointCount]float64

// Predefined poses (radians)
var (
	PoseOrangeBin1 = Pose{-1.570796, -1.87972, -2.139774, -2.363176, -1.50971}
	PoseGreenBin1  = Pose{0, -1.87972, -2.139774, -2.363176, -1.50971}
	PoseReject     = Pose{-1, -1.67972, 1.539774, -2.163176, -1.50971}
	PoseRest       = Pose{0, -1.57, 0, -1.57, 0}
	PoseOrangeBin2 = Pose{1.570796, -1.87972, -2.139774, -2.363176, -1.50971}
	PoseGreenBin2  = Pose{1, -1.87972, -2.139774, -2.363176, -1.50971}

	// PoseHome is the pick-ready pose the arm returns to between cycles
	PoseHome = Pose{}
)

// PoseForBin returns the drop pose of a quota-tracked bin
func PoseForBin(b Bin) (Pose, bool) {
	switch b {
	case BinGreen1:
		return PoseGreenBin1, true
	case BinGreen2:
		return PoseGreenBin2, true
	case BinOrange1:
		return PoseOrangeBin1, true
	case BinOrange2:
		return PoseOrangeBin2, true
	default:
		return Pose{}, false
	}
}

// Distance returns the largest per-joint difference between two poses
func (p Pose) Distance(other Pose) float64 {
	maxDiff := 0.0
	for i := range p {
		if d := math.Abs(p[i] - other[i]); d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}
