package controller

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

const testTick = 32 * time.Millisecond

type fakeMotor struct {
	pos float64
	min float64
}

func (m *fakeMotor) SetPosition(pos float64) { m.pos = pos }
func (m *fakeMotor) MinPosition() float64    { return m.min }

type fakeSensor struct{ v float64 }

func (s *fakeSensor) Value() float64 { return s.v }

// wristSensor reads the commanded wrist position, as if the arm moved instantly
type wristSensor struct{ joint *fakeMotor }

func (s *wristSensor) Value() float64 { return s.joint.pos }

type fakeCamera struct {
	err    error
	panics bool
}

func (c *fakeCamera) Image() (image.Image, error) {
	if c.panics {
		panic("camera exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type fakeBelt struct{ speed float64 }

func (b *fakeBelt) SetSpeed(mps float64) { b.speed = mps }

type fakeClassifier struct{ fruit core.FruitType }

func (c *fakeClassifier) Classify(image.Image) core.FruitType { return c.fruit }

type fakeSource struct {
	table   *stages.Table
	changed bool
	err     error
}

func (s *fakeSource) Poll() (*stages.Table, bool, error) {
	changed := s.changed
	s.changed = false
	return s.table, changed, s.err
}

type rig struct {
	devices    Devices
	joints     [core.JointCount]*fakeMotor
	fingers    []*fakeMotor
	belt       *fakeBelt
	distance   *fakeSensor
	camera     *fakeCamera
	classifier *fakeClassifier
	events     []Event
}

func newRig() *rig {
	r := &rig{
		belt:       &fakeBelt{},
		distance:   &fakeSensor{v: DistanceEmpty},
		camera:     &fakeCamera{},
		classifier: &fakeClassifier{},
	}
	for i := range r.joints {
		r.joints[i] = &fakeMotor{}
		r.devices.Joints[i] = r.joints[i]
	}
	for range core.FingerNames {
		f := &fakeMotor{min: 0.0495}
		r.fingers = append(r.fingers, f)
		r.devices.Fingers = append(r.devices.Fingers, f)
	}
	r.devices.Belt = r.belt
	r.devices.Distance = r.distance
	r.devices.Wrist = &wristSensor{joint: r.joints[core.JointWrist1]}
	r.devices.Camera = r.camera
	return r
}

func (r *rig) pose() core.Pose {
	var p core.Pose
	for i, j := range r.joints {
		p[i] = j.pos
	}
	return p
}

func (r *rig) countEvents(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *rig) controller(t *testing.T, config string, source StageSource) *Controller {
	t.Helper()
	table, err := stages.Parse(config)
	require.NoError(t, err)

	c, err := New(Config{
		Sequencer:    SequencerConfig{PickCooldownTicks: 8, DropCooldownTicks: 4},
		NominalSpeed: func() float64 { return 0.15 },
	}, table, source, r.devices, r.classifier)
	require.NoError(t, err)
	c.AddObserver(ObserverFunc(func(ev Event) { r.events = append(r.events, ev) }))
	return c
}

// ticker drives a controller with monotonically increasing simulation time
type ticker struct {
	c *Controller
	n int
}

func (tk *ticker) tick() {
	tk.n++
	tk.c.Tick(time.Duration(tk.n) * testTick)
}

// until ticks until cond holds, failing after max ticks
func (tk *ticker) until(t *testing.T, max int, cond func() bool) {
	t.Helper()
	for i := 0; i < max; i++ {
		if cond() {
			return
		}
		tk.tick()
	}
	require.True(t, cond(), "condition not reached after %d ticks", max)
}

var errCamera = errors.New("no frame")
