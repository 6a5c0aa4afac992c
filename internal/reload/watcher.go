package reload

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts the passive reload trigger: an fsnotify watcher on the
// rule file's directory (editors often replace files via rename, which
// a file-level watch would lose), debounced so a burst of write events
// during an edit yields a single reload attempt. Unchanged content is
// detected by checksum and skipped.
//
// Watch returns immediately; the watch loop runs until ctx is
// cancelled. Watcher-triggered reloads share the explicit path's
// validation and publish logic, including last-good retention.
func (c *Controller) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	base := filepath.Base(c.path)

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Restart the debounce window on every event.
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerCh = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounce)
				}

			case <-timerCh:
				timer = nil
				timerCh = nil

				outcome := c.reload(ctx, TriggerWatch, true)
				if outcome.Unchanged {
					slog.Debug("rule file event with unchanged content, skipping publish",
						"path", c.path,
					)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("rule file watcher error", "path", c.path, "error", err)
			}
		}
	}()

	slog.Info("watching rule file", "path", c.path, "debounce", debounce.String())
	return nil
}
