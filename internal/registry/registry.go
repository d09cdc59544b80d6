// Package registry maintains ordered per-project version metadata. The store
// enumeration of {project}/versions/ prefixes is the source of truth for which
// versions exist; sidecar JSON objects under {project}/meta/ only enrich the
// entries with status and checksum, so the registry is always reconstructable
// from store contents alone.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/staticdeploy/internal/artifact"
	"github.com/edvin/staticdeploy/internal/model"
	"github.com/edvin/staticdeploy/internal/store"
)

// ErrEntryNotFound is returned when a version has no registry entry.
var ErrEntryNotFound = errors.New("registry entry not found")

type Registry struct {
	logger zerolog.Logger
	store  store.Store
}

func New(logger zerolog.Logger, st store.Store) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "registry").Logger(),
		store:  st,
	}
}

// Projects enumerates every project known to the store, live or not. A
// project exists as soon as anything is written under its prefix.
func (r *Registry) Projects(ctx context.Context) ([]model.Project, error) {
	names, err := r.store.ListPrefixes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("enumerate projects: %w", err)
	}
	projects := make([]model.Project, 0, len(names))
	for _, name := range names {
		projects = append(projects, model.Project{Name: name})
	}
	return projects, nil
}

// Append writes the sidecar entry for a new version.
func (r *Registry) Append(ctx context.Context, entry *model.Version) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal registry entry %s/%s: %w", entry.ProjectName, entry.VersionID, err)
	}
	key := store.VersionMetaKey(entry.ProjectName, entry.VersionID)
	if err := r.store.Put(ctx, key, body, store.Meta{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("append registry entry %s/%s: %w", entry.ProjectName, entry.VersionID, err)
	}
	return nil
}

// List returns the project's versions newest first. Ordering is by version id,
// which embeds the creation timestamp; ids sharing a timestamp fall back to
// plain lexical comparison, which is stable and total.
func (r *Registry) List(ctx context.Context, project string) ([]model.Version, error) {
	ids, err := r.store.ListPrefixes(ctx, store.VersionsRoot(project))
	if err != nil {
		return nil, fmt.Errorf("enumerate versions for %s: %w", project, err)
	}

	versions := make([]model.Version, 0, len(ids))
	for _, id := range ids {
		entry, err := r.readEntry(ctx, project, id)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *entry)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionID > versions[j].VersionID
	})
	return versions, nil
}

// Get returns one version's entry.
func (r *Registry) Get(ctx context.Context, project, versionID string) (*model.Version, error) {
	ids, err := r.store.ListPrefixes(ctx, store.VersionsRoot(project))
	if err != nil {
		return nil, fmt.Errorf("enumerate versions for %s: %w", project, err)
	}
	for _, id := range ids {
		if id == versionID {
			return r.readEntry(ctx, project, id)
		}
	}
	return nil, fmt.Errorf("version %s/%s: %w", project, versionID, ErrEntryNotFound)
}

// MarkStatus updates the status of a version's sidecar entry.
func (r *Registry) MarkStatus(ctx context.Context, project, versionID, status, message string) error {
	entry, err := r.readEntry(ctx, project, versionID)
	if err != nil {
		return err
	}
	entry.Status = status
	entry.StatusMessage = message
	return r.Append(ctx, entry)
}

// Prune removes versions beyond the keep newest, returning the removed
// entries. The version matching currentID is never removed, even when it is
// the oldest and even with keep=0.
func (r *Registry) Prune(ctx context.Context, project string, keep int, currentID string) ([]model.Version, error) {
	if keep < 0 {
		return nil, fmt.Errorf("prune %s: negative keep %d", project, keep)
	}

	versions, err := r.List(ctx, project)
	if err != nil {
		return nil, err
	}

	var removed []model.Version
	kept := 0
	for _, v := range versions {
		if v.VersionID == currentID {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		if err := r.store.DeletePrefix(ctx, store.VersionPrefix(project, v.VersionID)); err != nil {
			return removed, fmt.Errorf("prune %s/%s: %w", project, v.VersionID, err)
		}
		if err := r.store.Delete(ctx, store.VersionMetaKey(project, v.VersionID)); err != nil {
			return removed, fmt.Errorf("prune %s/%s metadata: %w", project, v.VersionID, err)
		}
		r.logger.Info().Str("project", project).Str("version", v.VersionID).Msg("pruned version")
		removed = append(removed, v)
	}
	return removed, nil
}

// readEntry loads a version's sidecar, reconstructing a best-effort entry from
// the version tree listing when the sidecar is missing or unreadable.
func (r *Registry) readEntry(ctx context.Context, project, versionID string) (*model.Version, error) {
	body, err := r.store.Get(ctx, store.VersionMetaKey(project, versionID))
	if err == nil {
		var entry model.Version
		if jsonErr := json.Unmarshal(body, &entry); jsonErr == nil {
			return &entry, nil
		}
		r.logger.Warn().Str("project", project).Str("version", versionID).Msg("corrupt registry sidecar, reconstructing from listing")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read registry entry %s/%s: %w", project, versionID, err)
	}

	objects, err := r.store.List(ctx, store.VersionPrefix(project, versionID))
	if err != nil {
		return nil, fmt.Errorf("reconstruct registry entry %s/%s: %w", project, versionID, err)
	}

	entry := &model.Version{
		ProjectName: project,
		VersionID:   versionID,
		FileCount:   len(objects),
		// The tree exists in the store with no record of a failed upload, so
		// treat it as complete.
		Status: model.StatusComplete,
	}
	for _, obj := range objects {
		entry.SizeBytes += obj.Size
	}
	if checksum, err := artifact.RemoteChecksum(store.VersionPrefix(project, versionID), objects); err == nil {
		entry.ContentChecksum = checksum
	}
	if created, err := parseVersionTime(versionID); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

// parseVersionTime extracts the creation timestamp embedded in a version id.
// Collision-suffixed ids (vYYYYMMDD-HHMMSS-N) parse by their timestamp part.
func parseVersionTime(versionID string) (time.Time, error) {
	id := versionID
	if len(id) > len(model.VersionIDLayout) {
		id = id[:len(model.VersionIDLayout)]
	}
	t, err := time.Parse(model.VersionIDLayout, id)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
