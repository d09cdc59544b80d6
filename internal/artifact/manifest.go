package artifact

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/edvin/staticdeploy/internal/store"
)

// ManifestEntry is one file's identity within a tree: its path relative to the
// tree root, its MD5 (which equals the S3 ETag for single-part uploads), and
// its size. A tree's checksum is a digest over its sorted entries, so the same
// checksum can be recomputed from a local scan or from a remote listing.
type ManifestEntry struct {
	Path string
	ETag string
	Size int64
}

// ManifestChecksum computes the content checksum of a tree from its entries.
// Entry order does not matter.
func ManifestChecksum(entries []ManifestEntry) string {
	sorted := make([]ManifestEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := blake3.New()
	for _, e := range sorted {
		fmt.Fprintf(h, "%s:%s:%d\n", e.Path, e.ETag, e.Size)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RemoteManifest builds manifest entries from a store listing of a tree
// prefix. Objects outside the prefix are rejected to catch caller mistakes.
func RemoteManifest(prefix string, objects []store.Object) ([]ManifestEntry, error) {
	entries := make([]ManifestEntry, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			return nil, fmt.Errorf("object %s outside prefix %s", obj.Key, prefix)
		}
		entries = append(entries, ManifestEntry{
			Path: strings.TrimPrefix(obj.Key, prefix),
			ETag: obj.ETag,
			Size: obj.Size,
		})
	}
	return entries, nil
}

// RemoteChecksum computes the content checksum of a stored tree from its
// listing.
func RemoteChecksum(prefix string, objects []store.Object) (string, error) {
	entries, err := RemoteManifest(prefix, objects)
	if err != nil {
		return "", err
	}
	return ManifestChecksum(entries), nil
}
