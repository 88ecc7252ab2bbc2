package stages

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher flags the loader dirty whenever the stage file changes on disk,
// so an edit is picked up on the next tick even when the filesystem's
// mtime resolution would hide it.
type Watcher struct {
	loader   *Loader
	path     string
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewWatcher creates a filesystem watcher for the loader's stage file
func NewWatcher(loader *Loader) (*Watcher, error) {
	absPath, err := filepath.Abs(loader.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stage file path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		loader:   loader,
		path:     absPath,
		watcher:  fw,
		stopChan: make(chan struct{}),
	}, nil
}

// Start watches the directory containing the stage file
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch stage directory %s: %w", dir, err)
	}

	log.Info().Str("path", w.path).Msg("Watching stage file")
	go w.loop(ctx)
	return nil
}

// Stop closes the underlying watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Stage file change detected")
				w.loader.MarkDirty()
			case event.Has(fsnotify.Remove):
				log.Warn().Str("file", event.Name).Msg("Stage file removed, keeping current stages")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Stage watcher error")
		}
	}
}
