package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// bufferSize bounds how many events wait while the engine is busy.
const bufferSize = 4096

// Watcher delivers change events for a directory tree.
type Watcher struct {
	fsw     *fsnotify.Watcher
	tracker *tracker
	window  time.Duration
	logger  *zap.Logger
	events  chan Event
}

// New starts watching root and every directory below it.
func New(fs afero.Fs, root string, window time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:     fsw,
		tracker: newTracker(fs, window),
		window:  window,
		logger:  logger,
		events:  make(chan Event, bufferSize),
	}

	for _, dir := range w.tracker.register(filepath.Clean(root)) {
		if err := fsw.Add(dir); err != nil {
			// Release the handles of the directories added so far.
			if cerr := fsw.Close(); cerr != nil {
				logger.Warn("Failed to close file watcher", zap.Error(cerr))
			}
			return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
		}
	}
	return w, nil
}

// Events returns the channel Run writes to. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run translates notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fsw.Close()

	for {
		var expiry <-chan time.Time
		if w.tracker.hasPending() {
			expiry = time.After(w.window)
		}

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			s := w.tracker.handle(ev, time.Now())
			w.apply(s)
			if !w.emit(ctx, s.events) {
				return nil
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case now := <-expiry:
			if !w.emit(ctx, w.tracker.expire(now)) {
				return nil
			}
		}
	}
}

func (w *Watcher) apply(s step) {
	for _, dir := range s.unwatch {
		// The kernel may already have dropped it.
		_ = w.fsw.Remove(dir)
	}
	for _, dir := range s.watch {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("Failed to watch directory", zap.String("path", dir), zap.Error(err))
		}
	}
}

func (w *Watcher) emit(ctx context.Context, events []Event) bool {
	for _, ev := range events {
		w.logger.Debug("Filesystem event",
			zap.Stringer("type", ev.Type),
			zap.String("path", ev.Path),
			zap.String("dest", ev.Dest),
			zap.Bool("dir", ev.IsDir),
		)
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
