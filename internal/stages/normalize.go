package stages

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Normalize cleans an operator-typed configuration such as
// "3 , ( 1, g1 ,1,O1, 5),(1,G2,2,o2,3)" into the canonical single-line form
// "3, (1,G1,1,O1,5), (1,G2,2,O2,3)" and checks that the result parses.
func Normalize(input string) (string, error) {
	text := strings.TrimSpace(input)
	countText, rest, found := strings.Cut(text, ",")
	if !found {
		return "", fmt.Errorf("%w: expected \"<count>, (tuple), ...\"", ErrMalformedCount)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countText))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedCount, strings.TrimSpace(countText))
	}

	groups := groupPattern.FindAllStringSubmatch(rest, -1)
	tuples := make([]string, 0, len(groups))
	for i, g := range groups {
		fields := strings.Split(g[1], ",")
		if len(fields) != 5 {
			return "", fmt.Errorf("%w: tuple %d has %d values, want 5", ErrBadTuple, i+1, len(fields))
		}
		for j := range fields {
			fields[j] = strings.ToUpper(strings.TrimSpace(fields[j]))
		}
		tuples = append(tuples, "("+strings.Join(fields, ",")+")")
	}

	canonical := fmt.Sprintf("%d, %s", count, strings.Join(tuples, ", "))
	if _, err := Parse(canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

// WriteFile normalises input and atomically replaces the stage file at path
func WriteFile(path, input string) (string, error) {
	canonical, err := Normalize(input)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp stage file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(canonical); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write stage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close stage file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("replace stage file: %w", err)
	}
	return canonical, nil
}
