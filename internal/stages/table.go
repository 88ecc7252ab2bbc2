package stages

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// NoSuccessor marks the terminal HALT stage
const NoSuccessor = -1

// Stage is one sorting phase with per-bin quotas and an exit delay
type Stage struct {
	ID           int
	Next         int
	Requirements map[core.Bin]int
	DelaySeconds int
}

// Delay returns the post-completion delay as a duration
func (s Stage) Delay() time.Duration {
	return time.Duration(s.DelaySeconds) * time.Second
}

// IsTerminal reports whether the stage has no successor
func (s Stage) IsTerminal() bool {
	return s.Next == NoSuccessor
}

// BinFor returns the bin of the given family named in the requirements
func (s Stage) BinFor(family core.BinFamily) (core.Bin, bool) {
	for _, b := range core.AllBins() {
		if _, ok := s.Requirements[b]; ok && b.Family() == family {
			return b, true
		}
	}
	return "", false
}

// RequiredFor sums the required counts of all bins in a family
func (s Stage) RequiredFor(family core.BinFamily) int {
	total := 0
	for b, n := range s.Requirements {
		if b.Family() == family {
			total += n
		}
	}
	return total
}

// Table is the ordered, immutable collection of stages built from one
// configuration string. Stage ids run 1..N followed by the HALT stage N+1.
type Table struct {
	declared int
	stages   []Stage
}

func newTable(declared int, stages []Stage) *Table {
	halt := Stage{
		ID:           declared + 1,
		Next:         NoSuccessor,
		Requirements: map[core.Bin]int{},
	}
	return &Table{
		declared: declared,
		stages:   append(stages, halt),
	}
}

// Declared returns the number of configured stages (excluding HALT)
func (t *Table) Declared() int {
	return t.declared
}

// Len returns the number of stages including HALT
func (t *Table) Len() int {
	return len(t.stages)
}

// HaltID returns the id of the synthetic HALT stage
func (t *Table) HaltID() int {
	return t.declared + 1
}

// IsHalt reports whether id is the HALT stage
func (t *Table) IsHalt(id int) bool {
	return id == t.HaltID()
}

// Stage returns the stage with the given id
func (t *Table) Stage(id int) (Stage, bool) {
	if id < 1 || id > len(t.stages) {
		return Stage{}, false
	}
	return t.stages[id-1], true
}

// Stages returns a copy of all stages in id order
func (t *Table) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	for i, s := range t.stages {
		reqs := make(map[core.Bin]int, len(s.Requirements))
		for b, n := range s.Requirements {
			reqs[b] = n
		}
		s.Requirements = reqs
		out[i] = s
	}
	return out
}

// Equal reports whether two tables describe the same stages
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.declared != other.declared || len(t.stages) != len(other.stages) {
		return false
	}
	for i := range t.stages {
		a, b := t.stages[i], other.stages[i]
		if a.ID != b.ID || a.Next != b.Next || a.DelaySeconds != b.DelaySeconds {
			return false
		}
		if len(a.Requirements) != len(b.Requirements) {
			return false
		}
		for bin, n := range a.Requirements {
			if m, ok := b.Requirements[bin]; !ok || m != n {
				return false
			}
		}
	}
	return true
}

// String renders the table the way it is printed after a load
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("=== Stage configuration ===\n")
	for _, s := range t.stages {
		if s.IsTerminal() {
			fmt.Fprintf(&sb, "Stage %d:\n  HALT\n", s.ID)
			continue
		}
		fmt.Fprintf(&sb, "Stage %d:\n  Next: %d\n  Requirements:\n", s.ID, s.Next)
		bins := make([]core.Bin, 0, len(s.Requirements))
		for b := range s.Requirements {
			bins = append(bins, b)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })
		for _, b := range bins {
			fmt.Fprintf(&sb, "    %s: %d items\n", b, s.Requirements[b])
		}
		fmt.Fprintf(&sb, "  Delay: %d s\n", s.DelaySeconds)
	}
	sb.WriteString("===========================")
	return sb.String()
}
