package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const window = 100 * time.Millisecond

func newTestTracker(t *testing.T, dirs []string, files []string) (*tracker, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0755))
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0644))
	}
	tr := newTracker(fs, window)
	tr.register("/root")
	return tr, fs
}

func TestTracker_CreateFile(t *testing.T) {
	tr, fs := newTestTracker(t, []string{"/root"}, nil)
	require.NoError(t, afero.WriteFile(fs, "/root/a.txt", nil, 0644))

	s := tr.handle(fsnotify.Event{Name: "/root/a.txt", Op: fsnotify.Create}, time.Now())
	assert.Equal(t, []Event{{Type: Created, Path: "/root/a.txt"}}, s.events)
	assert.Empty(t, s.watch)
}

func TestTracker_CreateDirectoryEmitsContents(t *testing.T) {
	tr, fs := newTestTracker(t, []string{"/root"}, nil)
	require.NoError(t, fs.MkdirAll("/root/out/logs", 0755))
	require.NoError(t, afero.WriteFile(fs, "/root/out/part-00000", nil, 0644))

	s := tr.handle(fsnotify.Event{Name: "/root/out", Op: fsnotify.Create}, time.Now())

	assert.Equal(t, []Event{
		{Type: Created, Path: "/root/out", IsDir: true},
		{Type: Created, Path: "/root/out/logs", IsDir: true},
		{Type: Created, Path: "/root/out/part-00000"},
	}, s.events)
	assert.ElementsMatch(t, []string{"/root/out", "/root/out/logs"}, s.watch)
	assert.True(t, tr.isDir("/root/out/logs"))
}

func TestTracker_WriteOnDirectoryIgnored(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"/root/b"}, []string{"/root/b/f.txt"})

	s := tr.handle(fsnotify.Event{Name: "/root/b", Op: fsnotify.Write}, time.Now())
	assert.Empty(t, s.events)

	s = tr.handle(fsnotify.Event{Name: "/root/b/f.txt", Op: fsnotify.Write}, time.Now())
	assert.Equal(t, []Event{{Type: Modified, Path: "/root/b/f.txt"}}, s.events)
}

func TestTracker_RenamePairedIntoMove(t *testing.T) {
	tr, fs := newTestTracker(t, []string{"/root/b/c"}, []string{"/root/b/c/d.txt"})
	now := time.Now()

	s := tr.handle(fsnotify.Event{Name: "/root/b", Op: fsnotify.Rename}, now)
	assert.Empty(t, s.events)
	assert.True(t, tr.hasPending())

	require.NoError(t, fs.RemoveAll("/root/b"))
	require.NoError(t, fs.MkdirAll("/root/z/c", 0755))
	s = tr.handle(fsnotify.Event{Name: "/root/z", Op: fsnotify.Create}, now.Add(10*time.Millisecond))

	assert.Equal(t, []Event{{Type: Moved, Path: "/root/b", Dest: "/root/z", IsDir: true}}, s.events)
	assert.ElementsMatch(t, []string{"/root/b", "/root/b/c"}, s.unwatch)
	assert.ElementsMatch(t, []string{"/root/z", "/root/z/c"}, s.watch)
	assert.False(t, tr.hasPending())
	assert.False(t, tr.isDir("/root/b"))

	// The moved directory reports its own rename afterwards.
	s = tr.handle(fsnotify.Event{Name: "/root/b", Op: fsnotify.Rename}, now.Add(20*time.Millisecond))
	assert.Empty(t, s.events)
	assert.False(t, tr.hasPending())
}

func TestTracker_UnpairedRenameBecomesDelete(t *testing.T) {
	tr, fs := newTestTracker(t, []string{"/root"}, []string{"/root/a.txt"})
	now := time.Now()

	tr.handle(fsnotify.Event{Name: "/root/a.txt", Op: fsnotify.Rename}, now)
	require.NoError(t, fs.Remove("/root/a.txt"))

	assert.Empty(t, tr.expire(now.Add(window/2)))
	assert.Equal(t, []Event{{Type: Deleted, Path: "/root/a.txt"}}, tr.expire(now.Add(window)))
	assert.False(t, tr.hasPending())
}

func TestTracker_RemoveDirectoryOnce(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"/root/b/c"}, nil)
	now := time.Now()

	s := tr.handle(fsnotify.Event{Name: "/root/b", Op: fsnotify.Remove}, now)
	assert.Equal(t, []Event{{Type: Deleted, Path: "/root/b", IsDir: true}}, s.events)
	assert.False(t, tr.isDir("/root/b/c"))

	s = tr.handle(fsnotify.Event{Name: "/root/b", Op: fsnotify.Remove}, now)
	assert.Empty(t, s.events)
}

func TestTracker_CreateOfVanishedPathIgnored(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"/root"}, nil)

	s := tr.handle(fsnotify.Event{Name: "/root/tmp", Op: fsnotify.Create}, time.Now())
	assert.Empty(t, s.events)
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestWatcher_RealFilesystem(t *testing.T) {
	root := t.TempDir()
	w, err := New(afero.NewOsFs(), root, window, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	src := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))
	ev := receive(t, w.Events())
	assert.Equal(t, Created, ev.Type)
	assert.Equal(t, src, ev.Path)

	// Drain the write notification of the same file.
	for ev.Type != Modified {
		ev = receive(t, w.Events())
	}

	dst := filepath.Join(root, "b.txt")
	require.NoError(t, os.Rename(src, dst))
	ev = receive(t, w.Events())
	assert.Equal(t, Event{Type: Moved, Path: src, Dest: dst}, ev)

	cancel()
	require.NoError(t, <-done)
	for range w.Events() {
	}
}
