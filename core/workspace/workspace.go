package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mrbox/core/catalogue"
	"mrbox/core/classify"
	"mrbox/core/remote"

	"github.com/spf13/afero"
)

// LinkMode is the permission of every placeholder.
const LinkMode = 0444

// Workspace is the shared state of one mrbox instance.
type Workspace struct {
	FS        afero.Fs
	Remote    remote.Store
	Catalogue *catalogue.Catalogue

	// LocalRoot is the absolute, cleaned local root.
	LocalRoot string
	// RemoteRoot is the cleaned remote root.
	RemoteRoot string
	// Threshold is the largest remote size, in bytes, copied locally in full.
	Threshold int64

	descriptorExts []string
}

// New builds a Workspace from cfg. The local root is made absolute.
func New(cfg Config, fs afero.Fs, store remote.Store, cat *catalogue.Catalogue) (*Workspace, error) {
	root, err := filepath.Abs(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local path %s: %w", cfg.LocalPath, err)
	}

	return &Workspace{
		FS:             fs,
		Remote:         store,
		Catalogue:      cat,
		LocalRoot:      filepath.Clean(root),
		RemoteRoot:     remote.Clean(cfg.RemotePath),
		Threshold:      cfg.ThresholdBytes(),
		descriptorExts: parseExtensions(cfg.DescriptorExtensions),
	}, nil
}

func parseExtensions(s string) []string {
	var out []string
	for _, ext := range strings.Split(s, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Ensure creates both roots when they are missing.
func (w *Workspace) Ensure(ctx context.Context) error {
	if err := w.FS.MkdirAll(w.LocalRoot, 0755); err != nil {
		return fmt.Errorf("failed to create local root %s: %w", w.LocalRoot, err)
	}

	ok, err := w.Remote.Exists(ctx, w.RemoteRoot)
	if err != nil {
		return err
	}
	if !ok {
		if err := w.Remote.Mkdir(ctx, w.RemoteRoot); err != nil {
			return err
		}
	}
	return nil
}

// Rel returns local relative to LocalRoot in slash form.
func (w *Workspace) Rel(local string) (string, error) {
	rel, err := filepath.Rel(w.LocalRoot, filepath.Clean(local))
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", local, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", local, w.LocalRoot)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// ToRemote maps a local path to its remote counterpart. A link suffix is dropped.
func (w *Workspace) ToRemote(local string) (string, error) {
	rel, err := w.Rel(local)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, classify.LinkSuffix)
	return path.Join(w.RemoteRoot, rel), nil
}

// ToLocal maps a remote path under RemoteRoot to its local counterpart.
func (w *Workspace) ToLocal(p string) (string, error) {
	rel, ok := remote.Rel(w.RemoteRoot, p)
	if !ok {
		return "", fmt.Errorf("%s is outside %s", p, w.RemoteRoot)
	}
	return filepath.Join(w.LocalRoot, filepath.FromSlash(rel)), nil
}

// Resolve turns a path given relative to LocalRoot into an absolute local path.
// Absolute paths are returned cleaned.
func (w *Workspace) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(w.LocalRoot, p)
}

// IsDescriptor reports whether the local path names a job descriptor.
func (w *Workspace) IsDescriptor(local string) bool {
	ext := strings.ToLower(filepath.Ext(local))
	for _, e := range w.descriptorExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Stat reports whether local exists and whether it is a directory.
func (w *Workspace) Stat(local string) (exists, isDir bool, err error) {
	fi, err := w.FS.Stat(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to stat %s: %w", local, err)
	}
	return true, fi.IsDir(), nil
}

// WriteLink writes a placeholder at local whose content is the remote path,
// and makes it read-only.
func (w *Workspace) WriteLink(local, remotePath string) error {
	if err := w.FS.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", local, err)
	}
	// An existing placeholder is read-only.
	if exists, _, _ := w.Stat(local); exists {
		if err := w.FS.Chmod(local, 0644); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", local, err)
		}
	}
	if err := afero.WriteFile(w.FS, local, []byte(remotePath), 0644); err != nil {
		return fmt.Errorf("failed to write link %s: %w", local, err)
	}
	if err := w.FS.Chmod(local, LinkMode); err != nil {
		return fmt.Errorf("failed to chmod link %s: %w", local, err)
	}
	return nil
}
