// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/remote"

	"github.com/spf13/afero"
)

// Call is one recorded Store invocation.
type Call struct {
	Op   string
	Args []string
}

type node struct {
	dir  bool
	data []byte
}

// Store is an in-memory remote.Store. It records every call and can be told
// to fail specific operations.
type Store struct {
	mu    sync.Mutex
	fs    afero.Fs
	nodes map[string]*node
	calls []Call
	fail  map[string]error
}

var _ remote.Store = (*Store)(nil)

// New creates an empty store whose root "/" exists. fs backs Put and Get.
func New(fs afero.Fs) *Store {
	return &Store{
		fs:    fs,
		nodes: map[string]*node{"/": {dir: true}},
		fail:  make(map[string]error),
	}
}

// FailOn makes every later call to op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the recorded calls for op, or all calls when op is empty.
func (s *Store) Calls(op string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// AddDir creates p and its parents without recording a call.
func (s *Store) AddDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mkdirAll(remote.Clean(p))
}

// AddFile stores data at p, creating parents, without recording a call.
func (s *Store) AddFile(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	s.mkdirAll(path.Dir(p))
	s.nodes[p] = &node{data: append([]byte(nil), data...)}
}

// Data returns the content stored at p.
func (s *Store) Data(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[remote.Clean(p)]
	if !ok || n.dir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Has reports whether p exists, without recording a call.
func (s *Store) Has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[remote.Clean(p)]
	return ok
}

func (s *Store) mkdirAll(p string) {
	for cur := p; ; cur = path.Dir(cur) {
		if _, ok := s.nodes[cur]; !ok {
			s.nodes[cur] = &node{dir: true}
		}
		if cur == "/" {
			return
		}
	}
}

func (s *Store) record(op string, args ...string) error {
	s.calls = append(s.calls, Call{Op: op, Args: args})
	return s.fail[op]
}

func notFound(op, p string) error {
	return fmt.Errorf("%w: %s %s", remote.ErrNotFound, op, p)
}

// descendants returns p and every path below it.
func (s *Store) descendants(p string) []string {
	var out []string
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	for k := range s.nodes {
		if k == p || strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Exists implements remote.Store.
func (s *Store) Exists(_ context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("exists", p); err != nil {
		return false, err
	}
	_, ok := s.nodes[p]
	return ok, nil
}

// Mkdir implements remote.Store.
func (s *Store) Mkdir(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("mkdir", p); err != nil {
		return err
	}
	s.mkdirAll(p)
	return nil
}

// Put implements remote.Store.
func (s *Store) Put(_ context.Context, localPath, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("put", localPath, p); err != nil {
		return err
	}
	data, err := afero.ReadFile(s.fs, localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	s.mkdirAll(path.Dir(p))
	s.nodes[p] = &node{data: data}
	return nil
}

// Get implements remote.Store.
func (s *Store) Get(_ context.Context, p, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("get", p, localPath); err != nil {
		return err
	}
	n, ok := s.nodes[p]
	if !ok || n.dir {
		return notFound("get", p)
	}
	if err := s.fs.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, localPath, n.data, 0644)
}

// Rm implements remote.Store.
func (s *Store) Rm(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("rm", p); err != nil {
		return err
	}
	paths := s.descendants(p)
	if len(paths) == 0 {
		return notFound("rm", p)
	}
	for _, k := range paths {
		delete(s.nodes, k)
	}
	return nil
}

// Mv implements remote.Store.
func (s *Store) Mv(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, dst = remote.Clean(src), remote.Clean(dst)
	if err := s.record("mv", src, dst); err != nil {
		return err
	}
	paths := s.descendants(src)
	if len(paths) == 0 {
		return notFound("mv", src)
	}
	moved := make(map[string]*node, len(paths))
	for _, k := range paths {
		moved[dst+strings.TrimPrefix(k, src)] = s.nodes[k]
		delete(s.nodes, k)
	}
	s.mkdirAll(path.Dir(dst))
	for k, n := range moved {
		s.nodes[k] = n
	}
	return nil
}

// Ls implements remote.Store.
func (s *Store) Ls(_ context.Context, p string) ([]remote.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("ls", p); err != nil {
		return nil, err
	}
	if n, ok := s.nodes[p]; !ok || !n.dir {
		return nil, notFound("ls", p)
	}

	var out []remote.Info
	for _, k := range s.descendants(p) {
		if k == p || path.Dir(k) != p {
			continue
		}
		n := s.nodes[k]
		out = append(out, remote.Info{Path: k, IsDir: n.dir, Size: int64(len(n.data))})
	}
	return out, nil
}

// Walk implements remote.Store.
func (s *Store) Walk(_ context.Context, p string) ([]remote.WalkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("walk", p); err != nil {
		return nil, err
	}
	n, ok := s.nodes[p]
	if !ok {
		return nil, notFound("walk", p)
	}
	if !n.dir {
		return nil, nil
	}

	byDir := map[string]*remote.WalkEntry{}
	var dirs []string
	for _, k := range s.descendants(p) {
		if s.nodes[k].dir {
			byDir[k] = &remote.WalkEntry{Dir: k}
			dirs = append(dirs, k)
		}
	}
	for _, k := range s.descendants(p) {
		if k == p {
			continue
		}
		parent := byDir[path.Dir(k)]
		if s.nodes[k].dir {
			parent.Subdirs = append(parent.Subdirs, path.Base(k))
		} else {
			parent.Files = append(parent.Files, path.Base(k))
		}
	}

	out := make([]remote.WalkEntry, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, *byDir[d])
	}
	return out, nil
}

// Size implements remote.Store.
func (s *Store) Size(_ context.Context, p string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("size", p); err != nil {
		return 0, err
	}
	n, ok := s.nodes[p]
	if !ok {
		return 0, notFound("size", p)
	}
	return int64(len(n.data)), nil
}

// Checksum implements remote.Store.
func (s *Store) Checksum(_ context.Context, p string, class classify.Classification) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("checksum", p); err != nil {
		return nil, err
	}
	if class == classify.Directory {
		return nil, nil
	}
	n, ok := s.nodes[p]
	if !ok || n.dir {
		return nil, notFound("checksum", p)
	}
	sum := checksum.Bytes(n.data)
	return &sum, nil
}

// Open implements remote.Store.
func (s *Store) Open(_ context.Context, p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = remote.Clean(p)
	if err := s.record("open", p); err != nil {
		return nil, err
	}
	n, ok := s.nodes[p]
	if !ok || n.dir {
		return nil, notFound("open", p)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), n.data...))), nil
}
