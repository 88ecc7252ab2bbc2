package controller

import (
	"errors"
	"fmt"
	"image"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Sensor thresholds and actuator set-points used by the pick cycle
const (
	DistanceEmpty            = 1000.0 // distance sensor reading with nothing in range
	FingerGraspPosition      = 0.52   // rad
	WristDropThreshold       = -2.3   // wrist_1 reading that marks a colour bin reached
	WristRejectDropThreshold = -2.16  // wrist_1 reading that marks the reject bin reached
	WristHomeThreshold       = -0.1   // wrist_1 reading that marks the home pose reached
)

// Motor is a position-controlled joint
type Motor interface {
	SetPosition(pos float64)
	MinPosition() float64
}

// Sensor is a scalar sensor sampled once per tick
type Sensor interface {
	Value() float64
}

// Camera produces the latest frame
type Camera interface {
	Image() (image.Image, error)
}

// Belt is the conveyor speed actuator
type Belt interface {
	SetSpeed(mps float64)
}

// Classifier turns a camera frame into a fruit type
type Classifier interface {
	Classify(frame image.Image) core.FruitType
}

// Devices is the set of actuators and sensors the controller drives
type Devices struct {
	Joints   [core.JointCount]Motor
	Fingers  []Motor
	Belt     Belt
	Distance Sensor
	Wrist    Sensor
	Camera   Camera
}

// Validate checks that every device is bound
func (d Devices) Validate() error {
	var errs []error
	for i, j := range d.Joints {
		if j == nil {
			errs = append(errs, fmt.Errorf("joint %s not bound", core.JointNames[i]))
		}
	}
	if len(d.Fingers) == 0 {
		errs = append(errs, errors.New("no gripper fingers bound"))
	}
	if d.Belt == nil {
		errs = append(errs, errors.New("conveyor not bound"))
	}
	if d.Distance == nil {
		errs = append(errs, errors.New("distance sensor not bound"))
	}
	if d.Wrist == nil {
		errs = append(errs, errors.New("wrist position sensor not bound"))
	}
	if d.Camera == nil {
		errs = append(errs, errors.New("camera not bound"))
	}
	return errors.Join(errs...)
}

func (d Devices) commandPose(p core.Pose) {
	for i, j := range d.Joints {
		j.SetPosition(p[i])
	}
}

func (d Devices) closeFingers() {
	for _, f := range d.Fingers {
		f.SetPosition(FingerGraspPosition)
	}
}

func (d Devices) openFingers() {
	for _, f := range d.Fingers {
		f.SetPosition(f.MinPosition())
	}
}
