package sim

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Device names
const (
	DeviceDistanceSensor = "distance sensor"
	DeviceWristSensor    = "wrist_1_joint_sensor"
	DeviceCamera         = "camera"
	DeviceConveyor       = "conveyor_belt"
)

// Finger travel limits (rad)
const (
	FingerMinPosition = 0.0495
	FingerMaxPosition = 1.2217
)

// DeviceNotFoundError is returned when a device name is not part of the cell
type DeviceNotFoundError struct {
	Kind string
	Name string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Motor is a position-controlled joint that slews toward its target
type Motor struct {
	name     string
	position float64
	target   float64
	min, max float64
	velocity float64
}

func newMotor(name string, min, max, velocity, initial float64) *Motor {
	return &Motor{
		name:     name,
		position: initial,
		target:   initial,
		min:      min,
		max:      max,
		velocity: velocity,
	}
}

// Name returns the device name
func (m *Motor) Name() string { return m.name }

// SetPosition commands a target position, clamped to the travel limits
func (m *Motor) SetPosition(pos float64) {
	m.target = core.Clamp(pos, m.min, m.max)
}

// MinPosition returns the lower travel limit
func (m *Motor) MinPosition() float64 { return m.min }

// MaxPosition returns the upper travel limit
func (m *Motor) MaxPosition() float64 { return m.max }

// Position returns the current position
func (m *Motor) Position() float64 { return m.position }

// Target returns the commanded position
func (m *Motor) Target() float64 { return m.target }

func (m *Motor) step(dt float64) {
	delta := m.target - m.position
	maxStep := m.velocity * dt
	if math.Abs(delta) <= maxStep {
		m.position = m.target
		return
	}
	m.position += math.Copysign(maxStep, delta)
}

// PositionSensor reads a motor's current position
type PositionSensor struct {
	motor *Motor
}

// Value returns the joint position in radians
func (s *PositionSensor) Value() float64 { return s.motor.position }

// DistanceSensor reports the range to an item in the pick window
type DistanceSensor struct {
	world *World
}

// Value returns DistanceEmpty when nothing is in range, otherwise a noisy
// reading around ItemDistance
func (s *DistanceSensor) Value() float64 {
	if _, ok := s.world.itemInWindow(); !ok {
		return controller.DistanceEmpty
	}
	return s.world.noise.GaussianNoiseWithClamp(ItemDistance, 0.02, 0, controller.DistanceEmpty-1)
}

// ConveyorBelt moves items along the belt
type ConveyorBelt struct {
	speed float64
}

// SetSpeed sets the belt speed in m/s
func (b *ConveyorBelt) SetSpeed(mps float64) {
	b.speed = math.Max(0, mps)
}

// Speed returns the belt speed in m/s
func (b *ConveyorBelt) Speed() float64 { return b.speed }

// Camera renders the pick window
type Camera struct {
	world         *World
	width, height int
}

// Image renders the current frame
func (c *Camera) Image() (image.Image, error) {
	return c.world.render(c.width, c.height), nil
}

// Motor looks up an arm joint or gripper finger by name
func (w *World) Motor(name string) (*Motor, error) {
	for _, m := range w.joints {
		if m.name == name {
			return m, nil
		}
	}
	for _, m := range w.fingers {
		if m.name == name {
			return m, nil
		}
	}
	return nil, &DeviceNotFoundError{Kind: "motor", Name: name}
}

// PositionSensor looks up a joint position sensor by name
func (w *World) PositionSensor(name string) (*PositionSensor, error) {
	if name == DeviceWristSensor {
		return w.wrist, nil
	}
	return nil, &DeviceNotFoundError{Kind: "position sensor", Name: name}
}

// DistanceSensor looks up the distance sensor by name
func (w *World) DistanceSensor(name string) (*DistanceSensor, error) {
	if name == DeviceDistanceSensor {
		return w.distance, nil
	}
	return nil, &DeviceNotFoundError{Kind: "distance sensor", Name: name}
}

// Camera looks up the camera by name
func (w *World) Camera(name string) (*Camera, error) {
	if name == DeviceCamera {
		return w.camera, nil
	}
	return nil, &DeviceNotFoundError{Kind: "camera", Name: name}
}

// Conveyor looks up the conveyor by name
func (w *World) Conveyor(name string) (*ConveyorBelt, error) {
	if name == DeviceConveyor {
		return w.belt, nil
	}
	return nil, &DeviceNotFoundError{Kind: "conveyor", Name: name}
}

// BindDevices resolves every device the controller needs by name
func BindDevices(w *World) (controller.Devices, error) {
	var (
		devices controller.Devices
		errs    []error
	)

	for i, name := range core.JointNames {
		m, err := w.Motor(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices.Joints[i] = m
	}
	for _, name := range core.FingerNames {
		m, err := w.Motor(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices.Fingers = append(devices.Fingers, m)
	}

	if belt, err := w.Conveyor(DeviceConveyor); err != nil {
		errs = append(errs, err)
	} else {
		devices.Belt = belt
	}
	if ds, err := w.DistanceSensor(DeviceDistanceSensor); err != nil {
		errs = append(errs, err)
	} else {
		devices.Distance = ds
	}
	if ps, err := w.PositionSensor(DeviceWristSensor); err != nil {
		errs = append(errs, err)
	} else {
		devices.Wrist = ps
	}
	if cam, err := w.Camera(DeviceCamera); err != nil {
		errs = append(errs, err)
	} else {
		devices.Camera = cam
	}

	if err := errors.Join(errs...); err != nil {
		return controller.Devices{}, err
	}
	return devices, nil
}
