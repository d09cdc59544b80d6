package store

import (
	"mime"
	"path"
	"strings"
)

// Fallback content types for web assets the platform mime database may miss.
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".mjs":   "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".xml":   "application/xml; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".md":    "text/markdown; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
}

// ContentType returns the Content-Type to serve a file under.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "binary/octet-stream"
}

// CacheControl returns the Cache-Control header for a file. Hashed static
// assets cache long, HTML revalidates on every request.
func CacheControl(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".woff", ".woff2", ".ttf":
		return "public, max-age=31536000, immutable"
	case ".html":
		return "public, max-age=0, must-revalidate"
	case ".json", ".xml", ".txt":
		return "public, max-age=3600"
	default:
		return "public, max-age=86400"
	}
}

// ObjectMeta returns the upload metadata for a file name.
func ObjectMeta(name string) Meta {
	return Meta{
		ContentType:  ContentType(name),
		CacheControl: CacheControl(name),
	}
}
