// Package stages parses, validates and hot-reloads the stage configuration
// that drives the sorting cell.
//
// The configuration is a single line of the form
//
//	<N>, (g,G<k>,o,O<k>,delay), ...
//
// with exactly N parenthesised tuples.
package stages

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

var (
	// ErrMalformedCount is returned when the declared stage count is missing or invalid.
	ErrMalformedCount = errors.New("malformed stage count")

	// ErrTupleCountMismatch is returned when the number of tuples differs from the declared count.
	ErrTupleCountMismatch = errors.New("tuple count does not match declared stage count")

	// ErrBadTuple is returned when a stage tuple cannot be parsed.
	ErrBadTuple = errors.New("unparsable stage tuple")
)

// ParseError reports why a configuration string was rejected
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stage config parse error: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MaxDelaySeconds is the longest post-completion delay a stage may declare
const MaxDelaySeconds = 24 * 60 * 60

var (
	groupPattern = regexp.MustCompile(`\(([^()]*)\)`)
	tuplePattern = regexp.MustCompile(`^\s*(\d+)\s*,\s*([GO]\d+)\s*,\s*(\d+)\s*,\s*([GO]\d+)\s*,\s*(\d+)\s*$`)
	residue      = regexp.MustCompile(`^[\s,]*$`)
)

// Parse converts a configuration string into a stage table
func Parse(message string) (*Table, error) {
	fail := func(err error, format string, args ...interface{}) (*Table, error) {
		return nil, &ParseError{Input: message, Reason: fmt.Sprintf(format, args...), Err: err}
	}

	text := strings.TrimSpace(message)
	countText, rest, _ := strings.Cut(text, ",")
	declared, err := strconv.Atoi(strings.TrimSpace(countText))
	if err != nil {
		return fail(ErrMalformedCount, "count %q is not an integer", strings.TrimSpace(countText))
	}
	if declared < 1 {
		return fail(ErrMalformedCount, "count must be at least 1, got %d", declared)
	}

	groups := groupPattern.FindAllStringSubmatch(rest, -1)
	if len(groups) != declared {
		return fail(ErrTupleCountMismatch, "declared %d stages, found %d tuples", declared, len(groups))
	}
	if leftover := groupPattern.ReplaceAllString(rest, ""); !residue.MatchString(leftover) {
		return fail(ErrBadTuple, "unexpected text %q outside tuples", strings.TrimSpace(leftover))
	}

	stages := make([]Stage, 0, declared+1)
	for i, g := range groups {
		id := i + 1
		stage, err := parseTuple(id, g[1])
		if err != nil {
			return fail(ErrBadTuple, "stage %d (%s): %v", id, strings.TrimSpace(g[1]), err)
		}
		if id < declared {
			stage.Next = id + 1
		} else {
			stage.Next = declared + 1
		}
		stages = append(stages, stage)
	}

	return newTable(declared, stages), nil
}

func parseTuple(id int, body string) (Stage, error) {
	m := tuplePattern.FindStringSubmatch(body)
	if m == nil {
		return Stage{}, errors.New("expected (count,G<n>,count,O<n>,delay)")
	}

	greenCount, err := strconv.Atoi(m[1])
	if err != nil {
		return Stage{}, fmt.Errorf("green count: %w", err)
	}
	orangeCount, err := strconv.Atoi(m[3])
	if err != nil {
		return Stage{}, fmt.Errorf("orange count: %w", err)
	}
	delay, err := strconv.Atoi(m[5])
	if err != nil {
		return Stage{}, fmt.Errorf("delay: %w", err)
	}
	if delay > MaxDelaySeconds {
		return Stage{}, fmt.Errorf("delay %d s exceeds %d s", delay, MaxDelaySeconds)
	}

	greenBin, err := binOfFamily(m[2], core.FamilyGreen)
	if err != nil {
		return Stage{}, err
	}
	orangeBin, err := binOfFamily(m[4], core.FamilyOrange)
	if err != nil {
		return Stage{}, err
	}

	return Stage{
		ID: id,
		Requirements: map[core.Bin]int{
			greenBin:  greenCount,
			orangeBin: orangeCount,
		},
		DelaySeconds: delay,
	}, nil
}

func binOfFamily(label string, family core.BinFamily) (core.Bin, error) {
	bin, ok := core.BinFromLabel(label)
	if !ok {
		return "", fmt.Errorf("unknown bin label %q", label)
	}
	if bin.Family() != family {
		return "", fmt.Errorf("bin %q is not a %s bin", label, family)
	}
	return bin, nil
}
