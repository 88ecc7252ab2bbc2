package controller

// Conveyor arbitrates the belt speed between the stage machine, which
// holds the belt while a stage delay runs, and the pick cycle, which stops
// it while the arm is away. The effective speed is written once per tick.
type Conveyor struct {
	belt    Belt
	held    bool
	stopped bool
	halted  bool
	speed   float64
}

// NewConveyor creates an arbiter for the given belt; the belt starts running
func NewConveyor(belt Belt) *Conveyor {
	return &Conveyor{belt: belt}
}

// Hold stops the belt on behalf of the stage machine
func (c *Conveyor) Hold() { c.held = true }

// Release lifts the stage machine hold
func (c *Conveyor) Release() { c.held = false }

// Stop stops the belt on behalf of the pick cycle
func (c *Conveyor) Stop() { c.stopped = true }

// Run lets the pick cycle restart the belt
func (c *Conveyor) Run() { c.stopped = false }

// Halt stops the belt permanently
func (c *Conveyor) Halt() { c.halted = true }

// Held reports whether the stage machine is holding the belt
func (c *Conveyor) Held() bool { return c.held }

// Speed returns the last speed written to the belt
func (c *Conveyor) Speed() float64 { return c.speed }

// Apply writes the effective speed for this tick
func (c *Conveyor) Apply(nominal float64) float64 {
	speed := nominal
	if c.halted || c.held || c.stopped {
		speed = 0
	}
	c.speed = speed
	c.belt.SetSpeed(speed)
	return speed
}
