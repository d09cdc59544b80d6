package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/staticdeploy/internal/discovery"
	"github.com/edvin/staticdeploy/internal/model"
	"github.com/edvin/staticdeploy/internal/registry"
	"github.com/edvin/staticdeploy/internal/store"
)

func newTestServer(t *testing.T, cycle bool) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	reg := registry.New(zerolog.Nop(), st)
	loop := discovery.NewLoop(zerolog.Nop(), st, discovery.Options{
		TargetsDir:  t.TempDir(),
		Interval:    time.Minute,
		Environment: "production",
		SiteURL: func(project string) string {
			return "http://example.test/" + project + "/current/"
		},
	})

	require.NoError(t, st.Put(context.Background(), "blog/current/index.html", []byte("<html>"), store.Meta{}))
	require.NoError(t, reg.Append(context.Background(), &model.Version{
		ProjectName: "blog",
		VersionID:   "v20250101-100000",
		FileCount:   1,
		Status:      model.StatusComplete,
	}))
	require.NoError(t, st.Put(context.Background(), "blog/versions/v20250101-100000/index.html", []byte("<html>"), store.Meta{}))

	if cycle {
		require.NoError(t, loop.Cycle(context.Background()))
	}
	return NewServer(zerolog.Nop(), reg, loop), st
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadyz_BeforeFirstCycle(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyz_AfterCycle(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTargets(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/targets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var groups []model.TargetGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"http://example.test/blog/current/"}, groups[0].Targets)
	assert.Equal(t, "blog", groups[0].Labels["project"])
}

func TestProjects(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	var projects []model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "blog", projects[0].Name)
	assert.Equal(t, "production", projects[0].Environment)
}

func TestVersions(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/projects/blog/versions")
	require.Equal(t, http.StatusOK, rec.Code)

	var versions []model.Version
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "v20250101-100000", versions[0].VersionID)
}

func TestVersions_UnknownProject(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/api/v1/projects/ghost/versions")
	require.Equal(t, http.StatusOK, rec.Code)

	var versions []model.Version
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	assert.Empty(t, versions)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
