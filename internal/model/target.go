package model

import "time"

// TargetGroup is one entry in a Prometheus file_sd target list.
type TargetGroup struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels"`
}

// Deployment describes one live project found during a discovery cycle.
// Derived state: recomputed wholesale every cycle, never persisted as
// authoritative.
type Deployment struct {
	Project      string    `json:"project"`
	URL          string    `json:"url"`
	Environment  string    `json:"environment"`
	Framework    string    `json:"framework"`
	FileCount    int       `json:"file_count"`
	SizeBytes    int64     `json:"total_size"`
	LastModified time.Time `json:"last_modified"`
}
