// Package artifact scans a finished local build output tree and computes the
// content checksum used to verify uploads and identify the live version.
package artifact

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EntryPoint is the document every deployable tree must contain at its root.
const EntryPoint = "index.html"

// File is one file of a local artifact tree. RelPath uses forward slashes and
// doubles as the object key suffix under the version prefix.
type File struct {
	RelPath string
	AbsPath string
	Size    int64
	MD5     string
}

// Tree is a scanned local artifact tree.
type Tree struct {
	Root      string
	Files     []File
	SizeBytes int64
	Checksum  string
}

// Scan walks the build output directory and computes per-file digests plus the
// tree's manifest checksum. It rejects an empty tree and a tree without the
// entry point document.
func Scan(root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat build dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("build path %s is not a directory", root)
	}

	tree := &Tree{Root: root}
	hasEntryPoint := false

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		body, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		sum := md5.Sum(body)

		if rel == EntryPoint {
			hasEntryPoint = true
		}
		tree.Files = append(tree.Files, File{
			RelPath: rel,
			AbsPath: p,
			Size:    int64(len(body)),
			MD5:     hex.EncodeToString(sum[:]),
		})
		tree.SizeBytes += int64(len(body))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk build dir: %w", err)
	}

	if len(tree.Files) == 0 {
		return nil, fmt.Errorf("build dir %s contains no files", root)
	}
	if !hasEntryPoint {
		return nil, fmt.Errorf("build dir %s has no %s entry point", root, EntryPoint)
	}

	entries := make([]ManifestEntry, len(tree.Files))
	for i, f := range tree.Files {
		entries[i] = ManifestEntry{Path: f.RelPath, ETag: f.MD5, Size: f.Size}
	}
	tree.Checksum = ManifestChecksum(entries)

	return tree, nil
}

// Keys returns the relative paths of all files in the tree.
func (t *Tree) Keys() []string {
	keys := make([]string, len(t.Files))
	for i, f := range t.Files {
		keys[i] = f.RelPath
	}
	return keys
}

// FormatSize renders a byte count for human consumption.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
