package telemetry

import (
	"fmt"
	"strings"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// RenderPanel formats the operator info panel
func RenderPanel(s Snapshot) string {
	applesFilled, applesRequired := s.FamilyProgress(core.FamilyGreen)
	orangesFilled, orangesRequired := s.FamilyProgress(core.FamilyOrange)

	substate := s.Step
	if s.Halted {
		substate = "END"
	}

	g1 := s.BinStatus(core.BinGreen1)
	g2 := s.BinStatus(core.BinGreen2)
	o1 := s.BinStatus(core.BinOrange1)
	o2 := s.BinStatus(core.BinOrange2)

	var b strings.Builder
	fmt.Fprintf(&b, "Apples: %3d    %d|%d\n", s.Apples, applesFilled, applesRequired)
	fmt.Fprintf(&b, "Oranges: %3d    %d|%d\n", s.Oranges, orangesFilled, orangesRequired)
	fmt.Fprintf(&b, "Fruit: %s\n", s.Held)
	fmt.Fprintf(&b, "State: %d|%d\n", s.Stage, s.StageCount+1)
	fmt.Fprintf(&b, "G1: %d %d|%d  G2: %d %d|%d  B1: %d\n", g1.Total, g1.Filled, g1.Required, g2.Total, g2.Filled, g2.Required, s.Rejects)
	fmt.Fprintf(&b, "O1: %d %d|%d  O2: %d %d|%d  Delay: %.1f\n", o1.Total, o1.Filled, o1.Required, o2.Total, o2.Filled, o2.Required, s.RemainingDelay.Seconds())
	fmt.Fprintf(&b, "Substate: %s\n", substate)
	return b.String()
}
