package model

import "time"

// Version status constants.
const (
	StatusUploading = "uploading"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// VersionIDLayout is the time.Parse layout of a version id. Ids are derived
// from the creation timestamp and sort lexically in creation order.
const VersionIDLayout = "v20060102-150405"

// Version is one immutable artifact tree of a project. Entries are derived
// from store enumeration plus a sidecar metadata object; the store listing is
// authoritative for which versions exist.
type Version struct {
	ProjectName     string    `json:"project_name"`
	VersionID       string    `json:"version_id"`
	CreatedAt       time.Time `json:"created_at"`
	SizeBytes       int64     `json:"size_bytes"`
	FileCount       int       `json:"file_count"`
	ContentChecksum string    `json:"content_checksum"`
	Status          string    `json:"status"`
	StatusMessage   string    `json:"status_message,omitempty"`
}
