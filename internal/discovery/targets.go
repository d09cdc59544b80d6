package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edvin/staticdeploy/internal/model"
)

// TargetsFileName is the Prometheus file_sd list the scraper watches.
const TargetsFileName = "auto_discovered_websites.json"

// VariablesFileName feeds dashboard template variables.
const VariablesFileName = "grafana_variables.json"

// TargetGroups renders the file_sd entries for a deployment set. Deployments
// must already be sorted by project; labels deliberately exclude anything
// time-dependent so an unchanged project set produces byte-identical output.
func TargetGroups(deployments []model.Deployment) []model.TargetGroup {
	groups := make([]model.TargetGroup, 0, len(deployments))
	for _, d := range deployments {
		groups = append(groups, model.TargetGroup{
			Targets: []string{d.URL},
			Labels: map[string]string{
				"project":         d.Project,
				"framework":       d.Framework,
				"environment":     d.Environment,
				"monitor_type":    "website",
				"auto_discovered": "true",
			},
		})
	}
	return groups
}

// Variables is the dashboard variable document derived from one cycle.
type Variables struct {
	Projects         []string           `json:"projects"`
	Frameworks       []string           `json:"frameworks"`
	TotalDeployments int                `json:"total_deployments"`
	LastUpdated      time.Time          `json:"last_updated"`
	Deployments      []model.Deployment `json:"deployments"`
}

// writeFileAtomic publishes a JSON document with write-to-temp-then-rename so
// the scraper never observes a partial write.
func writeFileAtomic(dir, name string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	body = append(body, '\n')

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}
