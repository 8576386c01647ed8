package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/remote"
	"mrbox/core/watcher"
	"mrbox/core/workspace/workspacetest"
	"mrbox/feature/jobs"
	"mrbox/feature/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, descriptorPath string) (*jobs.Result, error) {
	args := m.Called(ctx, descriptorPath)
	res, _ := args.Get(0).(*jobs.Result)
	return res, args.Error(1)
}

func newEngine(t *testing.T) (*sync.Engine, *workspacetest.Env, *mockDispatcher) {
	t.Helper()
	env := workspacetest.New(t)
	d := new(mockDispatcher)
	return sync.NewEngine(env.WS, d), env, d
}

func created(p string, isDir bool) watcher.Event {
	return watcher.Event{Type: watcher.Created, Path: p, IsDir: isDir}
}

func ops(env *workspacetest.Env) []string {
	var out []string
	for _, c := range env.Remote.Calls("") {
		out = append(out, c.Op)
	}
	return out
}

func TestCreated_FileIsUploaded(t *testing.T) {
	e, env, d := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "hello")

	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))

	data, ok := env.Remote.Data("/r/a.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	row, ok, err := env.WS.Catalogue.Get(ctx, "/box/a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, classify.File, row.Classification)
	assert.Equal(t, "/r/a.txt", row.RemotePath)
	require.NotNil(t, row.LocalChecksum)
	assert.Equal(t, checksum.Bytes([]byte("hello")), *row.LocalChecksum)
	assert.True(t, row.InSync())
	assert.Empty(t, e.Divergent())
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestCreated_DirectoryHasNoChecksums(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	require.NoError(t, env.FS.MkdirAll("/box/data", 0755))

	require.NoError(t, e.Handle(ctx, created("/box/data", true)))

	assert.Len(t, env.Remote.Calls("mkdir"), 1)
	assert.True(t, env.Remote.Has("/r/data"))

	row, ok, err := env.WS.Catalogue.Get(ctx, "/box/data")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, classify.Directory, row.Classification)
	assert.Nil(t, row.LocalChecksum)
	assert.Nil(t, row.RemoteChecksum)
}

func TestCreated_LinkCreatesNothingRemotely(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.Remote.AddFile("/r/big", []byte("a very large remote object"))
	env.WriteFile(t, "/box/big.link", "/r/big")

	require.NoError(t, e.Handle(ctx, created("/box/big.link", false)))

	assert.Empty(t, env.Remote.Calls("put"))
	assert.Empty(t, env.Remote.Calls("mkdir"))

	row, ok, err := env.WS.Catalogue.Get(ctx, "/box/big.link")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, classify.Link, row.Classification)
	assert.Equal(t, "/r/big", row.RemotePath)
	assert.Nil(t, row.LocalChecksum)
	assert.NotNil(t, row.RemoteChecksum)
}

func TestCreated_DescriptorIsDispatched(t *testing.T) {
	e, env, d := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/job.yaml", "mapper: m\n")
	d.On("Dispatch", mock.Anything, "/box/job.yaml").Return(&jobs.Result{}, nil).Once()

	require.NoError(t, e.Handle(ctx, created("/box/job.yaml", false)))

	d.AssertExpectations(t)
	assert.True(t, env.Remote.Has("/r/job.yaml"))
}

func TestCreated_JobFailureIsReported(t *testing.T) {
	e, env, d := newEngine(t)
	env.WriteFile(t, "/box/job.yaml", "mapper: m\n")
	d.On("Dispatch", mock.Anything, "/box/job.yaml").Return(nil, jobs.ErrValidation).Once()

	err := e.Handle(context.Background(), created("/box/job.yaml", false))
	assert.ErrorIs(t, err, jobs.ErrValidation)
}

func TestCreated_AlreadyTrackedIsRefreshed(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()

	// A job output pulled by the dispatcher: row and remote object exist.
	env.Remote.AddFile("/r/out/part-00000", []byte("a\t2\n"))
	env.WriteFile(t, "/box/out/part-00000", "a\t2\n")
	sum := checksum.Bytes([]byte("a\t2\n"))
	require.NoError(t, env.WS.Catalogue.InsertRemote(ctx, "/box/out/part-00000", "/r/out/part-00000", classify.File, &sum))

	require.NoError(t, e.Handle(ctx, created("/box/out/part-00000", false)))

	assert.Empty(t, env.Remote.Calls("put"))
	row, ok, err := env.WS.Catalogue.Get(ctx, "/box/out/part-00000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, row.InSync())
}

func TestCreated_UploadFailureIsReturned(t *testing.T) {
	e, env, _ := newEngine(t)
	env.WriteFile(t, "/box/a.txt", "hello")
	env.Remote.FailOn("put", remote.ErrUnavailable)

	err := e.Handle(context.Background(), created("/box/a.txt", false))
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestModified_ReuploadsFile(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "v1")
	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))
	env.Remote.ResetCalls()

	env.WriteFile(t, "/box/a.txt", "v2")
	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Modified, Path: "/box/a.txt"}))

	assert.Equal(t, []string{"rm", "put", "checksum"}, ops(env))
	data, _ := env.Remote.Data("/r/a.txt")
	assert.Equal(t, "v2", string(data))

	row, _, err := env.WS.Catalogue.Get(ctx, "/box/a.txt")
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes([]byte("v2")), *row.LocalChecksum)
	assert.True(t, row.InSync())
}

func TestModified_MatchingRemoteIsNotReuploaded(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "v1")
	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))
	env.Remote.ResetCalls()

	env.WriteFile(t, "/box/a.txt", "v1")
	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Modified, Path: "/box/a.txt"}))

	assert.Empty(t, env.Remote.Calls(""))
	assert.Empty(t, e.Divergent())
}

func TestModified_IgnoresDirectoriesAndLinks(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	require.NoError(t, env.FS.MkdirAll("/box/d", 0755))
	require.NoError(t, e.Handle(ctx, created("/box/d", true)))
	env.Remote.AddFile("/r/big", []byte("large"))
	env.WriteFile(t, "/box/big.link", "/r/big")
	require.NoError(t, e.Handle(ctx, created("/box/big.link", false)))
	env.Remote.ResetCalls()

	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Modified, Path: "/box/d"}))
	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Modified, Path: "/box/big.link"}))
	assert.Empty(t, env.Remote.Calls(""))
}

func TestModified_RemoteFailureKeepsLocalChecksum(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "v1")
	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))

	env.WriteFile(t, "/box/a.txt", "v2")
	env.Remote.FailOn("put", remote.ErrUnavailable)
	err := e.Handle(ctx, watcher.Event{Type: watcher.Modified, Path: "/box/a.txt"})
	require.ErrorIs(t, err, remote.ErrUnavailable)

	row, _, err := env.WS.Catalogue.Get(ctx, "/box/a.txt")
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes([]byte("v2")), *row.LocalChecksum)
	assert.Equal(t, checksum.Bytes([]byte("v1")), *row.RemoteChecksum)
	assert.Equal(t, []string{"/box/a.txt"}, e.Divergent())

	divergent, err := env.WS.Catalogue.Divergent(ctx)
	require.NoError(t, err)
	require.Len(t, divergent, 1)
	assert.Equal(t, "/box/a.txt", divergent[0].LocalPath)
}

func TestDeleted_File(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "hello")
	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))
	require.NoError(t, env.FS.Remove("/box/a.txt"))

	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Deleted, Path: "/box/a.txt"}))

	tracked, err := env.WS.Catalogue.Exists(ctx, "/box/a.txt")
	require.NoError(t, err)
	assert.False(t, tracked)
	assert.False(t, env.Remote.Has("/r/a.txt"))
}

func TestDeleted_DirectoryRemovesSubtreeRows(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	require.NoError(t, env.FS.MkdirAll("/box/b/c", 0755))
	env.WriteFile(t, "/box/b/f.txt", "f")
	env.WriteFile(t, "/box/b/c/d.txt", "d")
	for _, ev := range []watcher.Event{
		created("/box/b", true),
		created("/box/b/c", true),
		created("/box/b/f.txt", false),
		created("/box/b/c/d.txt", false),
	} {
		require.NoError(t, e.Handle(ctx, ev))
	}
	env.WriteFile(t, "/box/keep.txt", "k")
	require.NoError(t, e.Handle(ctx, created("/box/keep.txt", false)))
	require.NoError(t, env.FS.RemoveAll("/box/b"))
	env.Remote.ResetCalls()

	require.NoError(t, e.Handle(ctx, watcher.Event{Type: watcher.Deleted, Path: "/box/b", IsDir: true}))

	rows, err := env.WS.Catalogue.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/box/keep.txt", rows[0].LocalPath)
	assert.False(t, env.Remote.Has("/r/b"))
	assert.Equal(t, []string{"walk", "rm"}, ops(env))
}

func TestDeleted_RemoteFailureStillClearsRows(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	require.NoError(t, env.FS.MkdirAll("/box/b", 0755))
	env.WriteFile(t, "/box/b/f.txt", "f")
	require.NoError(t, e.Handle(ctx, created("/box/b", true)))
	require.NoError(t, e.Handle(ctx, created("/box/b/f.txt", false)))
	require.NoError(t, env.FS.RemoveAll("/box/b"))
	env.Remote.FailOn("rm", remote.ErrUnavailable)

	err := e.Handle(ctx, watcher.Event{Type: watcher.Deleted, Path: "/box/b", IsDir: true})
	require.ErrorIs(t, err, remote.ErrUnavailable)

	rows, err := env.WS.Catalogue.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.True(t, env.Remote.Has("/r/b/f.txt"))
}

func TestDeleted_UntrackedIsNoop(t *testing.T) {
	e, env, _ := newEngine(t)

	require.NoError(t, e.Handle(context.Background(), watcher.Event{Type: watcher.Deleted, Path: "/box/ghost"}))
	assert.Empty(t, env.Remote.Calls(""))
}

func TestRun_HandlesInOrderAndSurvivesErrors(t *testing.T) {
	e, env, _ := newEngine(t)
	env.WriteFile(t, "/box/a.txt", "a")
	env.WriteFile(t, "/box/b.txt", "b")

	events := make(chan watcher.Event, 3)
	events <- created("/box/missing.txt", false)
	events <- created("/box/a.txt", false)
	events <- created("/box/b.txt", false)
	close(events)

	require.NoError(t, e.Run(context.Background(), events))

	assert.True(t, env.Remote.Has("/r/a.txt"))
	assert.True(t, env.Remote.Has("/r/b.txt"))
	puts := env.Remote.Calls("put")
	require.Len(t, puts, 2)
	assert.Equal(t, "/r/a.txt", puts[0].Args[1])
	assert.Equal(t, "/r/b.txt", puts[1].Args[1])
}

func TestRun_StopsOnCancel(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan watcher.Event)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestHandle_UnknownEvent(t *testing.T) {
	e, _, _ := newEngine(t)
	err := e.Handle(context.Background(), watcher.Event{Type: watcher.Op(42), Path: "/box/x"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, remote.ErrNotFound))
}

func TestRun_CancelFinishesInFlightAndDropsQueued(t *testing.T) {
	e, env, d := newEngine(t)
	env.WriteFile(t, "/box/job.yaml", "mapper: m\n")
	env.WriteFile(t, "/box/later.txt", "l")

	started := make(chan struct{})
	release := make(chan struct{})
	var handlerCtx context.Context
	d.On("Dispatch", mock.Anything, "/box/job.yaml").
		Run(func(args mock.Arguments) {
			handlerCtx = args.Get(0).(context.Context)
			close(started)
			<-release
		}).
		Return(&jobs.Result{}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan watcher.Event, 2)
	events <- created("/box/job.yaml", false)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events) }()

	<-started
	events <- created("/box/later.txt", false)
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}

	d.AssertExpectations(t)
	assert.NoError(t, handlerCtx.Err())
	assert.True(t, env.Remote.Has("/r/job.yaml"))
	assert.False(t, env.Remote.Has("/r/later.txt"))
	tracked, err := env.WS.Catalogue.Exists(context.Background(), "/box/later.txt")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestRun_RepairReuploadsFromLocalCopy(t *testing.T) {
	e, env, _ := newEngine(t)
	ctx := context.Background()
	env.WriteFile(t, "/box/a.txt", "local")
	require.NoError(t, e.Handle(ctx, created("/box/a.txt", false)))

	// Changed behind the engine's back; stored checksums still agree.
	env.Remote.AddFile("/r/a.txt", []byte("tampered"))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(runCtx, make(chan watcher.Event)) }()

	require.NoError(t, e.Repair(ctx, "/box/a.txt"))
	assert.Eventually(t, func() bool {
		data, _ := env.Remote.Data("/r/a.txt")
		return string(data) == "local"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	row, _, err := env.WS.Catalogue.Get(ctx, "/box/a.txt")
	require.NoError(t, err)
	assert.True(t, row.InSync())
}
