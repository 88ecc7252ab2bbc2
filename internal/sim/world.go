// Package sim is the simulated cell: arm, gripper, conveyor, sensors,
// camera and the fruit feeder, advanced one fixed timestep at a time.
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Belt geometry (m) and sensor constants
const (
	DefaultBeltLength    = 1.3
	DefaultPickPosition  = 1.0
	DefaultPickTolerance = 0.06
	ItemSpacing          = 0.1
	ItemDistance         = 350.0

	graspThreshold   = 0.45 // mean finger position that holds an item
	releaseThreshold = 0.25 // mean finger position that lets it go
)

// BinReject is the destination of items dropped at the reject pose
const BinReject core.Bin = "bin_reject"

// Config holds the simulation parameters
type Config struct {
	Timestep      time.Duration
	ArmVelocity   float64 // rad/s
	BeltLength    float64
	PickPosition  float64
	PickTolerance float64
	Feeder        FeederConfig
	Seed          int64 // 0 seeds from the clock
}

// DefaultConfig returns the default cell layout
func DefaultConfig() Config {
	return Config{
		Timestep:      32 * time.Millisecond,
		ArmVelocity:   2.0,
		BeltLength:    DefaultBeltLength,
		PickPosition:  DefaultPickPosition,
		PickTolerance: DefaultPickTolerance,
		Feeder:        DefaultFeederConfig(),
	}
}

// Item is a fruit in the cell
type Item struct {
	ID       string
	Name     string
	Kind     core.FruitType
	Position float64 // m along the belt
}

// Stats summarises what happened to the spawned items
type Stats struct {
	Spawned int `json:"spawned"`
	OnBelt  int `json:"onBelt"`
	Held    int `json:"held"`
	Binned  int `json:"binned"`
	Missed  int `json:"missed"`
}

// World is the simulated cell. It is owned by the tick goroutine.
type World struct {
	cfg   Config
	clock time.Duration
	ticks uint64
	noise *core.NoiseGenerator

	joints  [core.JointCount]*Motor
	fingers [len(core.FingerNames)]*Motor
	belt    *ConveyorBelt

	wrist    *PositionSensor
	distance *DistanceSensor
	camera   *Camera

	feeder  *Feeder
	items   []*Item
	held    *Item
	bins    map[core.Bin][]core.FruitType
	spawned int
	missed  int
}

// NewWorld builds the cell with the arm at its home pose
func NewWorld(cfg Config) *World {
	if cfg.Timestep <= 0 {
		cfg.Timestep = 32 * time.Millisecond
	}
	if cfg.BeltLength <= 0 {
		cfg.BeltLength = DefaultBeltLength
	}
	if cfg.PickPosition <= 0 {
		cfg.PickPosition = DefaultPickPosition
	}
	if cfg.PickTolerance <= 0 {
		cfg.PickTolerance = DefaultPickTolerance
	}

	noise := core.NewNoiseGenerator()
	if cfg.Seed != 0 {
		noise = core.NewSeededNoiseGenerator(cfg.Seed)
	}

	w := &World{
		cfg:   cfg,
		noise: noise,
		belt:  &ConveyorBelt{},
		bins:  make(map[core.Bin][]core.FruitType),
	}
	for i, name := range core.JointNames {
		w.joints[i] = newMotor(name, -2*math.Pi, 2*math.Pi, cfg.ArmVelocity, core.PoseHome[i])
	}
	for i, name := range core.FingerNames {
		w.fingers[i] = newMotor(name, FingerMinPosition, FingerMaxPosition, cfg.ArmVelocity, FingerMinPosition)
	}
	w.wrist = &PositionSensor{motor: w.joints[core.JointWrist1]}
	w.distance = &DistanceSensor{world: w}
	w.camera = &Camera{world: w, width: FrameWidth, height: FrameHeight}
	w.feeder = NewFeeder(cfg.Feeder, noise)
	return w
}

// Timestep returns the fixed simulation step
func (w *World) Timestep() time.Duration { return w.cfg.Timestep }

// Time returns the simulation time
func (w *World) Time() time.Duration { return w.clock }

// Ticks returns the number of steps taken
func (w *World) Ticks() uint64 { return w.ticks }

// Step advances the world by one timestep
func (w *World) Step() {
	dt := w.cfg.Timestep.Seconds()
	w.clock += w.cfg.Timestep
	w.ticks++

	for _, m := range w.joints {
		m.step(dt)
	}
	for _, m := range w.fingers {
		m.step(dt)
	}

	w.moveBelt(dt)
	w.feeder.step(w.clock, w.spawnAtStart)
	w.updateGrip()
}

func (w *World) moveBelt(dt float64) {
	advance := w.belt.speed * dt
	kept := w.items[:0]
	for _, it := range w.items {
		it.Position += advance
		if it.Position > w.cfg.BeltLength {
			w.missed++
			continue
		}
		kept = append(kept, it)
	}
	w.items = kept
}

func (w *World) fingerMean() float64 {
	total := 0.0
	for _, f := range w.fingers {
		total += f.position
	}
	return total / float64(len(w.fingers))
}

func (w *World) updateGrip() {
	mean := w.fingerMean()

	if w.held == nil && mean >= graspThreshold {
		if idx, ok := w.itemInWindow(); ok {
			w.held = w.items[idx]
			w.items = append(w.items[:idx], w.items[idx+1:]...)
		}
		return
	}

	if w.held != nil && mean <= releaseThreshold {
		bin := w.nearestBin()
		w.bins[bin] = append(w.bins[bin], w.held.Kind)
		w.held = nil
	}
}

func (w *World) currentPose() core.Pose {
	var p core.Pose
	for i, m := range w.joints {
		p[i] = m.position
	}
	return p
}

func (w *World) nearestBin() core.Bin {
	pose := w.currentPose()
	best := BinReject
	bestDist := pose.Distance(core.PoseReject)
	for _, b := range core.AllBins() {
		target, _ := core.PoseForBin(b)
		if d := pose.Distance(target); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

// itemInWindow returns the index of the item closest to the pick point
// within tolerance
func (w *World) itemInWindow() (int, bool) {
	found := -1
	best := w.cfg.PickTolerance
	for i, it := range w.items {
		if d := math.Abs(it.Position - w.cfg.PickPosition); d <= best {
			found, best = i, d
		}
	}
	return found, found >= 0
}

func (w *World) spawnAtStart(kind core.FruitType, name string) bool {
	for _, it := range w.items {
		if it.Position < ItemSpacing {
			return false
		}
	}
	w.items = append(w.items, &Item{
		ID:   uuid.NewString(),
		Name: name,
		Kind: kind,
	})
	w.spawned++
	return true
}

// Place puts an item directly on the belt at the given position
func (w *World) Place(kind core.FruitType, position float64) Item {
	w.spawned++
	it := &Item{
		ID:       uuid.NewString(),
		Name:     fmt.Sprintf("placed%d", w.spawned),
		Kind:     kind,
		Position: position,
	}
	w.items = append(w.items, it)
	return *it
}

// Items returns a copy of the items on the belt
func (w *World) Items() []Item {
	out := make([]Item, len(w.items))
	for i, it := range w.items {
		out[i] = *it
	}
	return out
}

// Held returns the item in the gripper
func (w *World) Held() (Item, bool) {
	if w.held == nil {
		return Item{}, false
	}
	return *w.held, true
}

// BinContents returns what has been dropped into each bin
func (w *World) BinContents() map[core.Bin][]core.FruitType {
	out := make(map[core.Bin][]core.FruitType, len(w.bins))
	for b, items := range w.bins {
		out[b] = append([]core.FruitType(nil), items...)
	}
	return out
}

// Stats returns item accounting for the run
func (w *World) Stats() Stats {
	binned := 0
	for _, items := range w.bins {
		binned += len(items)
	}
	held := 0
	if w.held != nil {
		held = 1
	}
	return Stats{
		Spawned: w.spawned,
		OnBelt:  len(w.items),
		Held:    held,
		Binned:  binned,
		Missed:  w.missed,
	}
}

// Pose returns the current joint positions
func (w *World) Pose() core.Pose {
	return w.currentPose()
}
