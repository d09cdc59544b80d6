package registry

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/staticdeploy/internal/model"
	"github.com/edvin/staticdeploy/internal/store"
)

func putVersion(t *testing.T, st *store.MemoryStore, reg *Registry, project, id string, body string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, store.VersionPrefix(project, id)+"index.html", []byte(body), store.Meta{}))

	created, err := time.Parse(model.VersionIDLayout, id[:len(model.VersionIDLayout)])
	require.NoError(t, err)
	require.NoError(t, reg.Append(ctx, &model.Version{
		ProjectName: project,
		VersionID:   id,
		CreatedAt:   created,
		SizeBytes:   int64(len(body)),
		FileCount:   1,
		Status:      model.StatusComplete,
	}))
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "one")
	putVersion(t, st, reg, "blog", "v20250103-100000", "three")
	putVersion(t, st, reg, "blog", "v20250102-100000", "two")

	versions, err := reg.List(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "v20250103-100000", versions[0].VersionID)
	assert.Equal(t, "v20250102-100000", versions[1].VersionID)
	assert.Equal(t, "v20250101-100000", versions[2].VersionID)
}

func TestList_CollisionSuffixSortsAfterBase(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "base")
	putVersion(t, st, reg, "blog", "v20250101-100000-2", "bump")

	versions, err := reg.List(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v20250101-100000-2", versions[0].VersionID)
}

func TestList_EmptyProject(t *testing.T) {
	reg := New(zerolog.Nop(), store.NewMemoryStore())

	versions, err := reg.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "one")
	putVersion(t, st, reg, "shop", "v20250101-100000", "two")

	projects, err := reg.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "blog", projects[0].Name)
	assert.Equal(t, "shop", projects[1].Name)
}

func TestGet_NotFound(t *testing.T) {
	reg := New(zerolog.Nop(), store.NewMemoryStore())

	_, err := reg.Get(context.Background(), "blog", "v20250101-100000")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestMarkStatus(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "one")
	require.NoError(t, reg.MarkStatus(ctx, "blog", "v20250101-100000", model.StatusFailed, "upload: boom"))

	entry, err := reg.Get(ctx, "blog", "v20250101-100000")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, entry.Status)
	assert.Equal(t, "upload: boom", entry.StatusMessage)
}

func TestReconstruct_MissingSidecar(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	require.NoError(t, st.Put(ctx, "blog/versions/v20250101-100000/index.html", []byte("<html>"), store.Meta{}))
	require.NoError(t, st.Put(ctx, "blog/versions/v20250101-100000/app.js", []byte("js"), store.Meta{}))

	versions, err := reg.List(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	entry := versions[0]
	assert.Equal(t, "v20250101-100000", entry.VersionID)
	assert.Equal(t, model.StatusComplete, entry.Status)
	assert.Equal(t, 2, entry.FileCount)
	assert.Equal(t, int64(8), entry.SizeBytes)
	assert.NotEmpty(t, entry.ContentChecksum)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), entry.CreatedAt)
}

func TestReconstruct_CorruptSidecar(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	require.NoError(t, st.Put(ctx, "blog/versions/v20250101-100000/index.html", []byte("<html>"), store.Meta{}))
	require.NoError(t, st.Put(ctx, store.VersionMetaKey("blog", "v20250101-100000"), []byte("not json {"), store.Meta{}))

	entry, err := reg.Get(ctx, "blog", "v20250101-100000")
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, entry.Status)
	assert.Equal(t, 1, entry.FileCount)
}

func TestReconstruct_SuffixedIDParsesTimestamp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	require.NoError(t, st.Put(ctx, "blog/versions/v20250101-100000-2/index.html", []byte("<html>"), store.Meta{}))

	entry, err := reg.Get(ctx, "blog", "v20250101-100000-2")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), entry.CreatedAt)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "one")
	putVersion(t, st, reg, "blog", "v20250102-100000", "two")
	putVersion(t, st, reg, "blog", "v20250103-100000", "three")

	removed, err := reg.Prune(ctx, "blog", 1, "v20250103-100000")
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "v20250101-100000", removed[0].VersionID)

	versions, err := reg.List(ctx, "blog")
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	_, err = st.Get(ctx, "blog/versions/v20250101-100000/index.html")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrune_NeverRemovesCurrent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := New(zerolog.Nop(), st)

	putVersion(t, st, reg, "blog", "v20250101-100000", "one")
	putVersion(t, st, reg, "blog", "v20250102-100000", "two")

	removed, err := reg.Prune(ctx, "blog", 0, "v20250101-100000")
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "v20250102-100000", removed[0].VersionID)

	_, err = st.Get(ctx, "blog/versions/v20250101-100000/index.html")
	require.NoError(t, err)
}

func TestPrune_NegativeKeep(t *testing.T) {
	reg := New(zerolog.Nop(), store.NewMemoryStore())

	_, err := reg.Prune(context.Background(), "blog", -1, "")
	assert.Error(t, err)
}
