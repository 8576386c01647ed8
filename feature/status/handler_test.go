package status_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/workspace/workspacetest"
	"mrbox/feature/status"
	"mrbox/feature/verify"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTracker []string

func (f fakeTracker) Divergent() []string { return f }

type fakeRepairer struct {
	queued []string
	err    error
}

func (f *fakeRepairer) Repair(_ context.Context, local string) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, local)
	return nil
}

func sum(s string) *string {
	v := checksum.Bytes([]byte(s))
	return &v
}

func setupTestApp(t *testing.T) (*fiber.App, *workspacetest.Env, *fakeRepairer) {
	t.Helper()
	env := workspacetest.New(t)
	ctx := context.Background()
	cat := env.WS.Catalogue

	env.Remote.AddDir("/r/d")
	require.NoError(t, env.FS.MkdirAll("/box/d", 0755))
	require.NoError(t, cat.InsertLocal(ctx, "/box/d", "/r/d", classify.Directory, nil))

	env.WriteFile(t, "/box/d/ok.txt", "same")
	env.Remote.AddFile("/r/d/ok.txt", []byte("same"))
	require.NoError(t, cat.InsertLocal(ctx, "/box/d/ok.txt", "/r/d/ok.txt", classify.File, sum("same")))
	require.NoError(t, cat.UpdateRemoteChecksum(ctx, "/box/d/ok.txt", sum("same")))

	env.WriteFile(t, "/box/d/edited.txt", "new")
	env.Remote.AddFile("/r/d/edited.txt", []byte("old"))
	require.NoError(t, cat.InsertLocal(ctx, "/box/d/edited.txt", "/r/d/edited.txt", classify.File, sum("new")))
	require.NoError(t, cat.UpdateRemoteChecksum(ctx, "/box/d/edited.txt", sum("old")))

	env.WriteFile(t, "/box/top.txt", "top")
	env.Remote.AddFile("/r/top.txt", []byte("top"))
	require.NoError(t, cat.InsertLocal(ctx, "/box/top.txt", "/r/top.txt", classify.File, sum("top")))
	require.NoError(t, cat.UpdateRemoteChecksum(ctx, "/box/top.txt", sum("top")))

	verifier := verify.NewService(env.WS, zap.NewNop(), verify.WithCacheTTL(time.Minute), verify.ReadOnly())
	repairer := &fakeRepairer{}
	svc := status.NewService(cat, verifier, fakeTracker{"/box/d/edited.txt"}, repairer, zap.NewNop())

	app := fiber.New()
	status.NewHandler(svc).RegisterRoutes(app)
	return app, env, repairer
}

func get(t *testing.T, app *fiber.App, target string, body any) int {
	t.Helper()
	return do(t, app, "GET", target, body)
}

func do(t *testing.T, app *fiber.App, method, target string, body any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if body != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(body))
	}
	return resp.StatusCode
}

type listing struct {
	Count   int `json:"count"`
	Entries []struct {
		LocalPath      string `json:"local_path"`
		Classification string `json:"classification"`
	} `json:"entries"`
}

func TestHandleHealth(t *testing.T) {
	app, _, _ := setupTestApp(t)

	var body status.Health
	require.Equal(t, 200, get(t, app, "/status/health", &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(4), body.Objects)
	assert.Equal(t, []string{"/box/d/edited.txt"}, body.Divergent)
}

func TestHandleCatalogue(t *testing.T) {
	app, _, _ := setupTestApp(t)

	var all listing
	require.Equal(t, 200, get(t, app, "/status/catalogue", &all))
	assert.Equal(t, 4, all.Count)

	var under listing
	require.Equal(t, 200, get(t, app, "/status/catalogue?prefix=/box/d", &under))
	require.Equal(t, 3, under.Count)
	assert.Equal(t, "/box/d", under.Entries[0].LocalPath)
	assert.Equal(t, "dir", under.Entries[0].Classification)
}

func TestHandleDivergent(t *testing.T) {
	app, _, _ := setupTestApp(t)

	var body listing
	require.Equal(t, 200, get(t, app, "/status/divergent", &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "/box/d/edited.txt", body.Entries[0].LocalPath)
}

func TestHandleVerify(t *testing.T) {
	app, env, _ := setupTestApp(t)
	ctx := context.Background()
	env.Remote.AddFile("/r/top.txt", []byte("changed remotely"))

	var report verify.Report
	require.Equal(t, 200, get(t, app, "/status/verify", &report))
	assert.Equal(t, 4, report.Checked)
	got := make(map[string]verify.Status)
	for _, f := range report.Findings {
		got[f.LocalPath] = f.Status
	}
	assert.Equal(t, map[string]verify.Status{
		"/box/d/edited.txt": verify.StatusDivergent,
		"/box/top.txt":      verify.StatusDivergent,
	}, got)

	// The sweep leaves the catalogue to the engine.
	row, _, err := env.WS.Catalogue.Get(ctx, "/box/top.txt")
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes([]byte("top")), *row.RemoteChecksum)

	// Served from cache: no remote calls.
	env.Remote.ResetCalls()
	require.Equal(t, 200, get(t, app, "/status/verify", nil))
	assert.Empty(t, env.Remote.Calls(""))

	require.Equal(t, 200, get(t, app, "/status/verify?refresh=true", nil))
	assert.NotEmpty(t, env.Remote.Calls(""))
	assert.Empty(t, env.Remote.Calls("put"))
	assert.Empty(t, env.Remote.Calls("rm"))
}

func TestHandleRepair(t *testing.T) {
	app, env, repairer := setupTestApp(t)

	var res status.RepairResult
	require.Equal(t, 202, do(t, app, "POST", "/status/verify/repair", &res))
	assert.Equal(t, []string{"/box/d/edited.txt"}, res.Queued)
	assert.Equal(t, []string{"/box/d/edited.txt"}, repairer.queued)

	// Queuing touches neither side; the engine does the upload.
	assert.Empty(t, env.Remote.Calls("put"))
	data, _ := env.Remote.Data("/r/d/edited.txt")
	assert.Equal(t, "old", string(data))
}

func TestHandleRepair_Errors(t *testing.T) {
	app, _, repairer := setupTestApp(t)
	repairer.err = context.DeadlineExceeded

	var body struct {
		Queued []string `json:"queued"`
	}
	require.Equal(t, 500, do(t, app, "POST", "/status/verify/repair", &body))
	assert.Empty(t, body.Queued)

	t.Run("NoRepairer", func(t *testing.T) {
		env := workspacetest.New(t)
		svc := status.NewService(env.WS.Catalogue, verify.NewService(env.WS, zap.NewNop(), verify.ReadOnly()), nil, nil, zap.NewNop())
		app := fiber.New()
		status.NewHandler(svc).RegisterRoutes(app)
		require.Equal(t, 503, do(t, app, "POST", "/status/verify/repair", nil))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mrbox_divergent_objects")
}

func TestLoader(t *testing.T) {
	env := workspacetest.New(t)
	svc := status.NewService(env.WS.Catalogue, verify.NewService(env.WS, zap.NewNop()), nil, nil, zap.NewNop())

	feature := status.NewFeature(svc, true)
	assert.Equal(t, "status", feature.Name())
	assert.True(t, feature.IsEnabled())
	assert.False(t, status.NewFeature(svc, false).IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))

	var body status.Health
	require.Equal(t, 200, get(t, app, "/status/health", &body))
	assert.Equal(t, []string{}, body.Divergent)
}
