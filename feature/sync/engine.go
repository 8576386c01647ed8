package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"mrbox/core/classify"
	"mrbox/core/metrics"
	"mrbox/core/remote"
	"mrbox/core/watcher"
	"mrbox/core/workspace"
	"mrbox/feature/jobs"

	"go.uber.org/zap"
)

// JobDispatcher runs the job described by a descriptor file.
type JobDispatcher interface {
	Dispatch(ctx context.Context, descriptorPath string) (*jobs.Result, error)
}

// Engine applies local changes to the catalogue and the remote store.
type Engine struct {
	ws     *workspace.Workspace
	jobs   JobDispatcher
	logger *zap.Logger

	repairs chan string

	mu        gosync.Mutex
	divergent map[string]string
}

// repairQueue bounds the repairs waiting for the loop.
const repairQueue = 64

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine over ws. dispatcher may be nil, in which case
// descriptors are synced like any other file.
func NewEngine(ws *workspace.Workspace, dispatcher JobDispatcher, opts ...Option) *Engine {
	e := &Engine{
		ws:        ws,
		jobs:      dispatcher,
		logger:    zap.NewNop(),
		repairs:   make(chan string, repairQueue),
		divergent: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run handles events and queued repairs until ctx is cancelled or events is
// closed. The event being handled when ctx is cancelled runs to completion;
// queued events are dropped.
func (e *Engine) Run(ctx context.Context, events <-chan watcher.Event) error {
	hctx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if err := e.Handle(hctx, ev); err != nil {
				e.logger.Error("Failed to handle event",
					zap.Stringer("type", ev.Type),
					zap.String("path", ev.Path),
					zap.String("dest", ev.Dest),
					zap.Error(err),
				)
			}
		case local := <-e.repairs:
			if ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			err := e.repair(hctx, local)
			metrics.RecordEvent("repair", time.Since(start), err)
			if err != nil {
				e.logger.Error("Failed to repair file", zap.String("path", local), zap.Error(err))
			}
		}
	}
}

// Repair queues a re-upload of the tracked file local. It runs on the Run
// loop between events, so it never interleaves with another handler.
func (e *Engine) Repair(ctx context.Context, local string) error {
	select {
	case e.repairs <- local:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle applies one event.
func (e *Engine) Handle(ctx context.Context, ev watcher.Event) error {
	start := time.Now()

	var err error
	switch ev.Type {
	case watcher.Created:
		err = e.created(ctx, ev.Path, ev.IsDir)
	case watcher.Modified:
		err = e.modified(ctx, ev.Path)
	case watcher.Deleted:
		err = e.deleted(ctx, ev.Path, ev.IsDir)
	case watcher.Moved:
		err = e.moved(ctx, ev.Path, ev.Dest, ev.IsDir)
	default:
		err = fmt.Errorf("unknown event type %d", ev.Type)
	}

	metrics.RecordEvent(ev.Type.String(), time.Since(start), err)
	return err
}

// remoteOp counts a remote call and passes its error through.
func remoteOp(op string, err error) error {
	metrics.RecordRemoteOperation(op, err)
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, remote.ErrNotFound)
}

// checkDivergence compares the stored checksums of a File row and remembers
// the object when they differ.
func (e *Engine) checkDivergence(ctx context.Context, local string) {
	entry, ok, err := e.ws.Catalogue.Get(ctx, local)
	if err != nil {
		e.logger.Warn("Failed to check divergence", zap.String("path", local), zap.Error(err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if ok && entry.Classification == classify.File && !entry.InSync() {
		e.divergent[local] = entry.RemotePath
		e.logger.Warn("Local and remote copies differ",
			zap.String("local", local),
			zap.String("remote", entry.RemotePath),
		)
	} else {
		delete(e.divergent, local)
	}
	metrics.SetDivergentObjects(len(e.divergent))
}

// forgetDivergence drops local and everything below it.
func (e *Engine) forgetDivergence(local string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := local + string(filepath.Separator)
	for k := range e.divergent {
		if k == local || strings.HasPrefix(k, prefix) {
			delete(e.divergent, k)
		}
	}
	metrics.SetDivergentObjects(len(e.divergent))
}

// renameDivergence follows a move of src to dest.
func (e *Engine) renameDivergence(src, dest string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := src + string(filepath.Separator)
	for k, v := range e.divergent {
		if k == src || strings.HasPrefix(k, prefix) {
			delete(e.divergent, k)
			e.divergent[dest+strings.TrimPrefix(k, src)] = v
		}
	}
}

// Divergent returns the local paths last seen with differing checksums.
func (e *Engine) Divergent() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.divergent))
	for k := range e.divergent {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
