package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch calls onChange every time the Makefile or the options file changes,
// until ctx is done. Rapid successive events are merged into one call.
// Errors from the watcher are passed to onError.
func (c *Converter) Watch(ctx context.Context, onChange func(), onError func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	optionsPath, _ := c.OptionsPath()
	watched := map[string]bool{}
	for _, path := range []string{c.makefile, optionsPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true

		// Watch the directory, the generator replaces the Makefile rather
		// than writing to it.
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", filepath.Dir(abs), err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onError(err)
		case <-fire:
			fire = nil
			onChange()
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
	}
}
