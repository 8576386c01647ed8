package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandler_ExposesRecordedMetrics(t *testing.T) {
	RecordEvent("created", time.Millisecond, errors.New("boom"))
	RecordJob(time.Second, nil)
	RecordRemoteOperation("mv", nil)
	RecordMaterialized("link")
	SetDivergentObjects(3)
	SetSweepDivergentObjects(5)

	body := scrape(t)
	assert.Contains(t, body, `mrbox_events_total{status="error",type="created"}`)
	assert.Contains(t, body, `mrbox_jobs_total{status="success"}`)
	assert.Contains(t, body, `mrbox_remote_operations_total{operation="mv",status="success"}`)
	assert.Contains(t, body, `mrbox_materialized_objects_total{classification="link"}`)
	assert.Contains(t, body, "mrbox_divergent_objects 3")
	assert.Contains(t, body, "mrbox_sweep_divergent_objects 5")
}
