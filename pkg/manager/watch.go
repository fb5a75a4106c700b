package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 250 * time.Millisecond

// ConfigWatcher reloads a Selector when its store file changes on disk.
type ConfigWatcher struct {
	Path     string
	Selector *Selector
	Logger   *log.Logger

	// Debounce collapses bursts of events (editors often write, chmod and
	// rename in quick succession). Zero means 250ms.
	Debounce time.Duration

	// Applied, when set, is called after every reload attempt.
	Applied func(error)
}

// Run watches until ctx is cancelled. The parent directory is watched so
// atomic renames over the file are seen.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	if w.Path == "" || w.Selector == nil {
		return errors.New("config watcher: path and selector are required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	target := filepath.Clean(w.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			Logf(w.Logger, "[CONFIG] watcher error: %v", err)
		case <-timer.C:
			err := w.apply(ctx)
			if err != nil {
				Logf(w.Logger, "[CONFIG] reload %s: %v", w.Path, err)
			}
			if w.Applied != nil {
				w.Applied(err)
			}
		}
	}
}

// apply re-reads the store file. A file that matches the last save made by
// this process is skipped; a broken file leaves the loaded store in place.
func (w *ConfigWatcher) apply(ctx context.Context) error {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Removed (or mid-rename); keep what we have.
			return nil
		}
		return err
	}
	if w.Selector.storeWrote(data) {
		return nil
	}
	cfg, err := ParseConfig(data, w.Path)
	if err != nil {
		return err
	}
	cfg.written = data
	Logf(w.Logger, "[CONFIG] %s changed on disk, reloading", w.Path)
	return w.Selector.ReplaceStore(ctx, cfg)
}
