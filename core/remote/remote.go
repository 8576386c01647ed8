package remote

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"mrbox/core/classify"
)

var (
	// ErrNotFound is returned when the remote path does not exist.
	ErrNotFound = errors.New("remote path not found")
	// ErrUnavailable wraps every other remote failure. Callers log it and move on.
	ErrUnavailable = errors.New("remote store unavailable")
)

// Info describes one remote object.
type Info struct {
	Path  string
	IsDir bool
	Size  int64
}

// WalkEntry is one directory of a recursive listing. Subdirs and Files hold
// base names, as with a top-down directory walk.
type WalkEntry struct {
	Dir     string
	Subdirs []string
	Files   []string
}

// Store is the filesystem-like surface mrbox needs from the remote side.
// Paths are absolute and slash separated.
type Store interface {
	// Exists reports whether a file or directory lives at p.
	Exists(ctx context.Context, p string) (bool, error)
	// Mkdir creates the directory p.
	Mkdir(ctx context.Context, p string) error
	// Put uploads the local file localPath to p.
	Put(ctx context.Context, localPath, p string) error
	// Get downloads p into the local file localPath.
	Get(ctx context.Context, p, localPath string) error
	// Rm removes p, recursively for directories.
	Rm(ctx context.Context, p string) error
	// Mv renames src to dst, carrying every descendant.
	Mv(ctx context.Context, src, dst string) error
	// Ls lists the immediate children of p.
	Ls(ctx context.Context, p string) ([]Info, error)
	// Walk lists the subtree under p, one entry per directory, top-down.
	Walk(ctx context.Context, p string) ([]WalkEntry, error)
	// Size returns the size of p in bytes.
	Size(ctx context.Context, p string) (int64, error)
	// Checksum returns the CRC32C of p, or nil when class is Directory.
	Checksum(ctx context.Context, p string, class classify.Classification) (*string, error)
	// Open streams the content of p.
	Open(ctx context.Context, p string) (io.ReadCloser, error)
}

// Subtree returns root followed by every path below it.
func Subtree(ctx context.Context, s Store, root string) ([]string, error) {
	entries, err := s.Walk(ctx, root)
	if err != nil {
		return nil, err
	}

	paths := []string{root}
	for _, e := range entries {
		for _, d := range e.Subdirs {
			paths = append(paths, path.Join(e.Dir, d))
		}
		for _, f := range e.Files {
			paths = append(paths, path.Join(e.Dir, f))
		}
	}
	return paths, nil
}

// Clean normalizes p to an absolute slash path without a trailing slash.
func Clean(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}

// Rel returns p relative to root, or false when p is not under root.
func Rel(root, p string) (string, bool) {
	root, p = Clean(root), Clean(p)
	if p == root {
		return "", true
	}
	prefix := root
	if prefix != "/" {
		prefix += "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return strings.TrimPrefix(p, prefix), true
}

// walkBuilder turns a flat set of descendant paths into top-down WalkEntries.
type walkBuilder struct {
	root    string
	entries map[string]*WalkEntry
	seen    map[string]struct{}
}

func newWalkBuilder(root string) *walkBuilder {
	return &walkBuilder{
		root:    root,
		entries: map[string]*WalkEntry{root: {Dir: root}},
		seen:    make(map[string]struct{}),
	}
}

// add records rel (relative to root); intermediate components are directories.
func (b *walkBuilder) add(rel string, isDir bool) {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return
	}

	parts := strings.Split(rel, "/")
	parent := b.root
	for i, part := range parts {
		child := path.Join(parent, part)
		dir := isDir || i < len(parts)-1
		if _, ok := b.seen[child]; !ok {
			b.seen[child] = struct{}{}
			if dir {
				b.entries[parent].Subdirs = append(b.entries[parent].Subdirs, part)
				b.entries[child] = &WalkEntry{Dir: child}
			} else {
				b.entries[parent].Files = append(b.entries[parent].Files, part)
			}
		}
		parent = child
	}
}

func (b *walkBuilder) result() []WalkEntry {
	dirs := make([]string, 0, len(b.entries))
	for d := range b.entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	out := make([]WalkEntry, 0, len(dirs))
	for _, d := range dirs {
		e := b.entries[d]
		sort.Strings(e.Subdirs)
		sort.Strings(e.Files)
		out = append(out, *e)
	}
	return out
}
