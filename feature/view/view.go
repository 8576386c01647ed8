package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"mrbox/core/classify"
	"mrbox/core/metrics"
	"mrbox/core/remote"
	"mrbox/core/workspace"

	"go.uber.org/zap"
)

// DefaultLines is the number of lines printed when none is given.
const DefaultLines = 10

const maxLine = 1 << 20

// ErrDirectory is returned when the path names a directory.
var ErrDirectory = errors.New("is a directory")

// Source tells where an object was read from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Viewer reads objects of a workspace.
type Viewer struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// New creates a viewer.
func New(ws *workspace.Workspace, logger *zap.Logger) *Viewer {
	return &Viewer{ws: ws, logger: logger}
}

// Head writes the first n lines of p to w.
func (v *Viewer) Head(ctx context.Context, w io.Writer, p string, n int) (Source, error) {
	r, src, err := v.Open(ctx, p)
	if err != nil {
		return "", err
	}
	defer r.Close()

	sc := scanner(r)
	for i := 0; i < n && sc.Scan(); i++ {
		if _, err := fmt.Fprintln(w, sc.Text()); err != nil {
			return src, err
		}
	}
	return src, sc.Err()
}

// Tail writes the last n lines of p to w.
func (v *Viewer) Tail(ctx context.Context, w io.Writer, p string, n int) (Source, error) {
	r, src, err := v.Open(ctx, p)
	if err != nil {
		return "", err
	}
	defer r.Close()
	if n <= 0 {
		return src, nil
	}

	ring := make([]string, n)
	count := 0
	sc := scanner(r)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return src, err
	}

	start := 0
	if count > n {
		start = count - n
	}
	for i := start; i < count; i++ {
		if _, err := fmt.Fprintln(w, ring[i%n]); err != nil {
			return src, err
		}
	}
	return src, nil
}

func scanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

// Open returns a reader over the content of p.
func (v *Viewer) Open(ctx context.Context, p string) (io.ReadCloser, Source, error) {
	if filepath.IsAbs(p) {
		if _, err := v.ws.Rel(p); err != nil {
			if _, ok := remote.Rel(v.ws.RemoteRoot, p); ok {
				return v.openRemotePath(ctx, remote.Clean(p))
			}
			return nil, "", err
		}
	}
	return v.openLocalPath(ctx, v.ws.Resolve(p))
}

func (v *Viewer) openLocalPath(ctx context.Context, local string) (io.ReadCloser, Source, error) {
	cat := v.ws.Catalogue

	entry, ok, err := cat.Get(ctx, local)
	if err != nil {
		return nil, "", err
	}
	if !ok && !classify.HasLinkSuffix(local) {
		entry, ok, err = cat.Get(ctx, classify.LinkPath(local))
		if err != nil {
			return nil, "", err
		}
	}
	if ok && entry.Classification == classify.Link {
		return v.openRemote(ctx, entry.RemotePath)
	}
	return v.openLocal(local)
}

func (v *Viewer) openRemotePath(ctx context.Context, p string) (io.ReadCloser, Source, error) {
	class, ok, err := v.ws.Catalogue.LookupClassification(ctx, p)
	if err != nil {
		return nil, "", err
	}
	if ok && class == classify.Link {
		return v.openRemote(ctx, p)
	}

	local, err := v.ws.ToLocal(p)
	if err != nil {
		return nil, "", err
	}
	exists, _, err := v.ws.Stat(local)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return v.openRemote(ctx, p)
	}
	return v.openLocal(local)
}

func (v *Viewer) openLocal(local string) (io.ReadCloser, Source, error) {
	exists, isDir, err := v.ws.Stat(local)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", fmt.Errorf("%w: %s", remote.ErrNotFound, local)
	}
	if isDir {
		return nil, "", fmt.Errorf("%s: %w", local, ErrDirectory)
	}
	f, err := v.ws.FS.Open(local)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", local, err)
	}
	v.logger.Debug("Reading local copy", zap.String("path", local))
	return f, SourceLocal, nil
}

func (v *Viewer) openRemote(ctx context.Context, p string) (io.ReadCloser, Source, error) {
	r, err := v.ws.Remote.Open(ctx, p)
	metrics.RecordRemoteOperation("open", err)
	if err != nil {
		return nil, "", err
	}
	v.logger.Debug("Reading remote object", zap.String("path", p))
	return r, SourceRemote, nil
}
