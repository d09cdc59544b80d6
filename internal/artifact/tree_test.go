package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/staticdeploy/internal/store"
)

func writeBuildDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestScan(t *testing.T) {
	root := writeBuildDir(t, map[string]string{
		"index.html":    "<html>hello</html>",
		"assets/app.js": "console.log('hi')",
		"assets/a.css":  "body{}",
	})

	tree, err := Scan(root)
	require.NoError(t, err)

	assert.Len(t, tree.Files, 3)
	assert.Equal(t, int64(18+17+6), tree.SizeBytes)
	assert.NotEmpty(t, tree.Checksum)
	assert.ElementsMatch(t, []string{"index.html", "assets/app.js", "assets/a.css"}, tree.Keys())

	for _, f := range tree.Files {
		assert.Len(t, f.MD5, 32)
		assert.NotContains(t, f.RelPath, "\\")
	}
}

func TestScan_EmptyDir(t *testing.T) {
	_, err := Scan(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains no files")
}

func TestScan_MissingEntryPoint(t *testing.T) {
	root := writeBuildDir(t, map[string]string{"about.html": "<html>"})

	_, err := Scan(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.html")
}

func TestScan_NotADirectory(t *testing.T) {
	root := writeBuildDir(t, map[string]string{"index.html": "<html>"})

	_, err := Scan(filepath.Join(root, "index.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScan_ChecksumStableAcrossRescans(t *testing.T) {
	root := writeBuildDir(t, map[string]string{
		"index.html": "<html>",
		"app.js":     "js",
	})

	first, err := Scan(root)
	require.NoError(t, err)
	second, err := Scan(root)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
}

func TestScan_ChecksumChangesWithContent(t *testing.T) {
	root := writeBuildDir(t, map[string]string{"index.html": "<html>v1</html>"})
	first, err := Scan(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>v2</html>"), 0o644))
	second, err := Scan(root)
	require.NoError(t, err)

	assert.NotEqual(t, first.Checksum, second.Checksum)
}

func TestManifestChecksum_OrderIndependent(t *testing.T) {
	a := []ManifestEntry{
		{Path: "index.html", ETag: "aaa", Size: 10},
		{Path: "app.js", ETag: "bbb", Size: 20},
	}
	b := []ManifestEntry{
		{Path: "app.js", ETag: "bbb", Size: 20},
		{Path: "index.html", ETag: "aaa", Size: 10},
	}

	assert.Equal(t, ManifestChecksum(a), ManifestChecksum(b))
}

func TestRemoteChecksum_MatchesLocalScan(t *testing.T) {
	ctx := context.Background()
	root := writeBuildDir(t, map[string]string{
		"index.html":    "<html>",
		"assets/app.js": "console.log(1)",
	})

	tree, err := Scan(root)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	for _, f := range tree.Files {
		body, err := os.ReadFile(f.AbsPath)
		require.NoError(t, err)
		require.NoError(t, st.Put(ctx, "site/versions/v1/"+f.RelPath, body, store.Meta{}))
	}

	objects, err := st.List(ctx, "site/versions/v1/")
	require.NoError(t, err)

	remote, err := RemoteChecksum("site/versions/v1/", objects)
	require.NoError(t, err)
	assert.Equal(t, tree.Checksum, remote)
}

func TestRemoteManifest_RejectsForeignKeys(t *testing.T) {
	_, err := RemoteManifest("site/versions/v1/", []store.Object{
		{Key: "other/versions/v1/index.html", ETag: "aaa", Size: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside prefix")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "1.5 MiB", FormatSize(1536*1024))
	assert.Equal(t, "2.0 GiB", FormatSize(2*1024*1024*1024))
}
