package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

type pendingRename struct {
	path  string
	isDir bool
	at    time.Time
}

// step is the outcome of one notification.
type step struct {
	events  []Event
	watch   []string
	unwatch []string
}

// tracker holds the state needed to translate raw notifications.
// It does no I/O besides stat and walk on fs.
type tracker struct {
	fs      afero.Fs
	window  time.Duration
	dirs    map[string]struct{}
	pending []pendingRename
	// recent suppresses the duplicate Rename/Remove a directory reports
	// about itself after its parent already did.
	recent map[string]time.Time
}

func newTracker(fs afero.Fs, window time.Duration) *tracker {
	return &tracker{
		fs:     fs,
		window: window,
		dirs:   make(map[string]struct{}),
		recent: make(map[string]time.Time),
	}
}

func (t *tracker) isDir(p string) bool {
	_, ok := t.dirs[p]
	return ok
}

func (t *tracker) hasPending() bool {
	return len(t.pending) > 0
}

func (t *tracker) stat(p string) (exists, isDir bool) {
	fi, err := t.fs.Stat(p)
	if err != nil {
		return false, false
	}
	return true, fi.IsDir()
}

// register walks root and remembers every directory found, root included.
func (t *tracker) register(root string) []string {
	var dirs []string
	_ = afero.Walk(t.fs, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if fi.IsDir() {
			t.dirs[p] = struct{}{}
			dirs = append(dirs, p)
		}
		return nil
	})
	return dirs
}

// forget drops root and every directory below it.
func (t *tracker) forget(root string) []string {
	var gone []string
	prefix := root + string(filepath.Separator)
	for d := range t.dirs {
		if d == root || strings.HasPrefix(d, prefix) {
			delete(t.dirs, d)
			gone = append(gone, d)
		}
	}
	sort.Strings(gone)
	return gone
}

// contents returns Created events for everything below root, top-down.
func (t *tracker) contents(root string) []Event {
	var out []Event
	_ = afero.Walk(t.fs, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil || p == root {
			return nil
		}
		out = append(out, Event{Type: Created, Path: p, IsDir: fi.IsDir()})
		return nil
	})
	return out
}

func (t *tracker) seen(key string, now time.Time) bool {
	at, ok := t.recent[key]
	return ok && now.Sub(at) < t.window
}

// expire turns renames older than the window into deletions.
func (t *tracker) expire(now time.Time) []Event {
	var out []Event
	keep := t.pending[:0]
	for _, p := range t.pending {
		if now.Sub(p.at) < t.window {
			keep = append(keep, p)
			continue
		}
		if p.isDir {
			t.forget(p.path)
		}
		out = append(out, Event{Type: Deleted, Path: p.path, IsDir: p.isDir})
	}
	t.pending = keep

	for k, at := range t.recent {
		if now.Sub(at) >= t.window {
			delete(t.recent, k)
		}
	}
	return out
}

// match returns the oldest pending rename of the same kind.
func (t *tracker) match(isDir bool) int {
	for i, p := range t.pending {
		if p.isDir == isDir {
			return i
		}
	}
	return -1
}

func (t *tracker) handle(ev fsnotify.Event, now time.Time) step {
	s := step{events: t.expire(now)}
	p := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Create):
		exists, isDir := t.stat(p)
		if !exists {
			return s
		}

		if i := t.match(isDir); i >= 0 {
			old := t.pending[i]
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			t.recent["rename:"+old.path] = now
			s.events = append(s.events, Event{Type: Moved, Path: old.path, Dest: p, IsDir: isDir})
			if isDir {
				s.unwatch = t.forget(old.path)
				s.watch = t.register(p)
			}
			return s
		}

		s.events = append(s.events, Event{Type: Created, Path: p, IsDir: isDir})
		if isDir {
			s.watch = t.register(p)
			s.events = append(s.events, t.contents(p)...)
		}

	case ev.Has(fsnotify.Write):
		if t.isDir(p) {
			return s
		}
		s.events = append(s.events, Event{Type: Modified, Path: p})

	case ev.Has(fsnotify.Remove):
		if t.seen("remove:"+p, now) {
			return s
		}
		t.recent["remove:"+p] = now
		isDir := t.isDir(p)
		if isDir {
			t.forget(p)
		}
		s.events = append(s.events, Event{Type: Deleted, Path: p, IsDir: isDir})

	case ev.Has(fsnotify.Rename):
		if t.seen("rename:"+p, now) {
			return s
		}
		for _, pr := range t.pending {
			if pr.path == p {
				return s
			}
		}
		t.pending = append(t.pending, pendingRename{path: p, isDir: t.isDir(p), at: now})
	}
	return s
}
