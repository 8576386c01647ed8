// Package workspacetest builds fully in-memory workspaces for tests.
package workspacetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"mrbox/core/catalogue"
	"mrbox/core/remote/remotetest"
	"mrbox/core/workspace"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// LocalRoot is the local root of every test workspace.
	LocalRoot = "/box"
	// RemoteRoot is the remote root of every test workspace.
	RemoteRoot = "/r"
	// Threshold is the link threshold in bytes of every test workspace.
	Threshold = 16
)

// Env is a workspace with handles on its in-memory parts.
type Env struct {
	WS     *workspace.Workspace
	FS     afero.Fs
	Remote *remotetest.Store
	DB     *gorm.DB
}

// New creates a workspace over afero.MemMapFs, remotetest.Store and an
// in-memory sqlite catalogue private to t.
func New(t *testing.T) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cat, err := catalogue.Open(context.Background(), db)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	store := remotetest.New(fs)
	ws, err := workspace.New(workspace.Config{
		LocalPath:            LocalRoot,
		RemotePath:           RemoteRoot,
		DescriptorExtensions: ".yaml,.yml",
	}, fs, store, cat)
	require.NoError(t, err)
	ws.Threshold = Threshold
	require.NoError(t, ws.Ensure(context.Background()))
	store.ResetCalls()

	return &Env{WS: ws, FS: fs, Remote: store, DB: db}
}

// WriteFile creates a local file under the workspace, parents included.
func (e *Env) WriteFile(t *testing.T, p string, data string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.FS, p, []byte(data), 0644))
}

// ReadFile returns the content of a local file.
func (e *Env) ReadFile(t *testing.T, p string) string {
	t.Helper()
	data, err := afero.ReadFile(e.FS, p)
	require.NoError(t, err)
	return string(data)
}
