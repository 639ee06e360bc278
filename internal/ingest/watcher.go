package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"contract-qa/internal/common/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a rebuild after the documents directory settles.
// Bursts of events inside the debounce window collapse into one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	supports func(path string) bool
	debounce time.Duration
	logger   logger.Logger
}

func NewWatcher(supports func(path string) bool, debounce time.Duration, log logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		watcher:  w,
		supports: supports,
		debounce: debounce,
		logger:   log.With(map[string]interface{}{"component": "watcher"}),
	}, nil
}

// Run blocks until ctx is done, calling onChange after each settled burst.
func (w *Watcher) Run(ctx context.Context, dir string, onChange func(ctx context.Context)) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	defer w.watcher.Close()

	w.logger.Info("watching documents directory", map[string]interface{}{"dir": dir})

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") || !w.supports(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("document change", map[string]interface{}{
				"path": event.Name,
				"op":   event.Op.String(),
			})
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			onChange(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}
