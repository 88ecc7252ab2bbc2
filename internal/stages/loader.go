package stages

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Loader owns the stage file and the last table that parsed successfully.
// Poll is called once per tick; it re-reads the file only when the
// modification time moved or a watcher flagged it dirty.
type Loader struct {
	path string

	mu       sync.RWMutex
	table    *Table
	lastMod  time.Time
	lastErr  error
	loadedAt time.Time

	dirty atomic.Bool
}

// NewLoader creates a loader for the stage file at path
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the watched stage file path
func (l *Loader) Path() string {
	return l.path
}

// Load reads and parses the stage file unconditionally. Used at startup,
// where a missing or malformed file is fatal.
func (l *Loader) Load() (*Table, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat stage file: %w", err)
	}
	table, err := l.read()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = table
	l.lastMod = info.ModTime()
	l.lastErr = nil
	l.loadedAt = time.Now()
	return table, nil
}

// Poll returns the current table and whether it was replaced. On any read
// or parse failure the last-known-good table stays active; the same failure
// on the same file revision is reported only once.
func (l *Loader) Poll() (*Table, bool, error) {
	forced := l.dirty.Swap(false)

	info, err := os.Stat(l.path)
	if err != nil {
		return l.fail(time.Time{}, fmt.Errorf("stat stage file: %w", err))
	}

	l.mu.RLock()
	unchanged := info.ModTime().Equal(l.lastMod)
	current := l.table
	l.mu.RUnlock()
	if unchanged && !forced {
		return current, false, nil
	}

	table, err := l.read()
	if err != nil {
		return l.fail(info.ModTime(), err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastMod = info.ModTime()
	l.lastErr = nil
	if table.Equal(l.table) {
		return l.table, false, nil
	}
	l.table = table
	l.loadedAt = time.Now()
	return table, true, nil
}

func (l *Loader) fail(mod time.Time, err error) (*Table, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	repeat := l.lastErr != nil && l.lastErr.Error() == err.Error() && mod.Equal(l.lastMod)
	l.lastMod = mod
	l.lastErr = err
	if repeat {
		return l.table, false, nil
	}
	return l.table, false, err
}

// MarkDirty forces the next Poll to re-read the file
func (l *Loader) MarkDirty() {
	l.dirty.Store(true)
}

// Table returns the active table, or nil before the first successful load
func (l *Loader) Table() *Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table
}

// LastError returns the most recent reload failure, if the file is currently bad
func (l *Loader) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// LoadedAt returns when the active table was installed
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

func (l *Loader) read() (*Table, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read stage file: %w", err)
	}
	return Parse(string(data))
}
