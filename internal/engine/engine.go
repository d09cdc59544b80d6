// Package engine implements the atomic deployment and rollback protocol on
// top of the artifact store: upload a new immutable version, verify it
// against the local tree, then promote it by mirroring it into the project's
// current/ prefix.
//
// The state machine per deploy is UPLOADING -> VERIFYING -> PROMOTING ->
// ACTIVE, with FAILED reachable from any non-terminal state. Rollback
// re-enters at PROMOTING for an already-complete version. At most one
// promote/rollback per project is in flight at a time; a second request is
// rejected, never queued.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/staticdeploy/internal/artifact"
	"github.com/edvin/staticdeploy/internal/lease"
	"github.com/edvin/staticdeploy/internal/model"
	"github.com/edvin/staticdeploy/internal/registry"
	"github.com/edvin/staticdeploy/internal/store"
)

type Engine struct {
	logger   zerolog.Logger
	store    store.Store
	registry *registry.Registry
	leases   *lease.Arena

	uploadConcurrency int
	uploadRetries     uint64
	retryBase         time.Duration
	now               func() time.Time
}

func New(logger zerolog.Logger, st store.Store, reg *registry.Registry, leases *lease.Arena) *Engine {
	return &Engine{
		logger:            logger.With().Str("component", "deploy-engine").Logger(),
		store:             st,
		registry:          reg,
		leases:            leases,
		uploadConcurrency: 8,
		uploadRetries:     3,
		retryBase:         250 * time.Millisecond,
		now:               time.Now,
	}
}

// Deploy uploads the finished build output at buildDir as a new immutable
// version of the project, verifies the upload, and promotes it to current/.
// The build itself happens upstream; buildDir must be a non-empty tree with
// an index.html entry point.
func (e *Engine) Deploy(ctx context.Context, project, buildDir string) (*model.Version, error) {
	tree, err := artifact.Scan(buildDir)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", project, err)
	}

	held, err := e.leases.Acquire(ctx, project)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			deploysTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("deploy %s: %w", project, ErrDeploymentInProgress)
		}
		return nil, fmt.Errorf("deploy %s: %w", project, err)
	}
	defer e.release(ctx, held, project)

	versionID, createdAt, err := e.newVersionID(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", project, err)
	}

	logger := e.logger.With().Str("project", project).Str("version", versionID).Logger()
	logger.Info().Int("files", len(tree.Files)).Str("size", artifact.FormatSize(tree.SizeBytes)).Msg("starting deployment")

	entry := &model.Version{
		ProjectName:     project,
		VersionID:       versionID,
		CreatedAt:       createdAt,
		SizeBytes:       tree.SizeBytes,
		FileCount:       len(tree.Files),
		ContentChecksum: tree.Checksum,
		Status:          model.StatusUploading,
	}
	if err := e.registry.Append(ctx, entry); err != nil {
		deploysTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("deploy %s/%s: %w", project, versionID, err)
	}

	// UPLOADING
	start := e.now()
	if err := e.uploadTree(ctx, project, versionID, tree); err != nil {
		e.markFailed(ctx, project, versionID, "upload: "+err.Error())
		deploysTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("deploy %s/%s upload: %w", project, versionID, err)
	}
	stepDuration.WithLabelValues("uploading").Observe(time.Since(start).Seconds())

	// VERIFYING: re-list what was written and recompute the checksum. This is
	// what keeps a truncated or corrupted upload from ever being promoted.
	start = e.now()
	prefix := store.VersionPrefix(project, versionID)
	remote, err := e.store.List(ctx, prefix)
	if err != nil {
		e.markFailed(ctx, project, versionID, "verify: "+err.Error())
		deploysTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("deploy %s/%s verify: %w", project, versionID, err)
	}
	remoteChecksum, err := artifact.RemoteChecksum(prefix, remote)
	if err == nil && remoteChecksum != tree.Checksum {
		err = fmt.Errorf("local %s, stored %s: %w", tree.Checksum, remoteChecksum, ErrChecksumMismatch)
	}
	if err != nil {
		e.markFailed(ctx, project, versionID, "verify: "+err.Error())
		deploysTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("deploy %s/%s verify: %w", project, versionID, err)
	}
	stepDuration.WithLabelValues("verifying").Observe(time.Since(start).Seconds())

	// PROMOTING
	if err := e.promote(ctx, project, versionID); err != nil {
		e.markFailed(ctx, project, versionID, "promote: "+err.Error())
		deploysTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("deploy %s/%s: %w", project, versionID, err)
	}

	entry.Status = model.StatusComplete
	entry.StatusMessage = ""
	if err := e.registry.MarkStatus(ctx, project, versionID, model.StatusComplete, ""); err != nil {
		logger.Warn().Err(err).Msg("failed to mark version complete")
	}

	deploysTotal.WithLabelValues("success").Inc()
	logger.Info().Msg("deployment complete")
	return entry, nil
}

// Rollback promotes an already-complete historical version: no rebuild, no
// reupload. An empty versionID selects the most recent complete version that
// is not the current one.
func (e *Engine) Rollback(ctx context.Context, project, versionID string) (*model.Version, error) {
	held, err := e.leases.Acquire(ctx, project)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			rollbacksTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("rollback %s: %w", project, ErrDeploymentInProgress)
		}
		return nil, fmt.Errorf("rollback %s: %w", project, err)
	}
	defer e.release(ctx, held, project)

	versions, err := e.registry.List(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("rollback %s: %w", project, err)
	}

	var target *model.Version
	if versionID == "" {
		current, err := e.currentVersionFrom(ctx, project, versions)
		if err != nil && !errors.Is(err, ErrNoActiveVersion) {
			return nil, fmt.Errorf("rollback %s: %w", project, err)
		}
		for i := range versions {
			v := &versions[i]
			if v.Status == model.StatusComplete && v.VersionID != current {
				target = v
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("rollback %s: no previous complete version: %w", project, ErrNoSuchVersion)
		}
	} else {
		for i := range versions {
			if versions[i].VersionID == versionID {
				target = &versions[i]
				break
			}
		}
		if target == nil || target.Status != model.StatusComplete {
			return nil, fmt.Errorf("rollback %s to %s: %w", project, versionID, ErrNoSuchVersion)
		}
	}

	if err := e.promote(ctx, project, target.VersionID); err != nil {
		rollbacksTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("rollback %s to %s: %w", project, target.VersionID, err)
	}

	rollbacksTotal.WithLabelValues("success").Inc()
	e.logger.Info().Str("project", project).Str("version", target.VersionID).Msg("rollback complete")
	return target, nil
}

// ListVersions returns the project's versions, newest first.
func (e *Engine) ListVersions(ctx context.Context, project string) ([]model.Version, error) {
	return e.registry.List(ctx, project)
}

// Cleanup removes versions beyond the keep newest and reports how many were
// removed. The current version is never removed.
func (e *Engine) Cleanup(ctx context.Context, project string, keep int) (int, error) {
	held, err := e.leases.Acquire(ctx, project)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return 0, fmt.Errorf("cleanup %s: %w", project, ErrDeploymentInProgress)
		}
		return 0, fmt.Errorf("cleanup %s: %w", project, err)
	}
	defer e.release(ctx, held, project)

	versions, err := e.registry.List(ctx, project)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", project, err)
	}
	current, err := e.currentVersionFrom(ctx, project, versions)
	if err != nil && !errors.Is(err, ErrNoActiveVersion) {
		return 0, fmt.Errorf("cleanup %s: %w", project, err)
	}

	removed, err := e.registry.Prune(ctx, project, keep, current)
	if err != nil {
		return len(removed), fmt.Errorf("cleanup %s: %w", project, err)
	}
	return len(removed), nil
}

// CurrentVersion identifies the live version by matching the current/ tree's
// content checksum against the registry. The meta pointer object breaks ties
// between identical-content versions and serves as a fallback for trees whose
// sidecars predate checksums; the derived match is otherwise authoritative so
// the answer survives registry loss.
func (e *Engine) CurrentVersion(ctx context.Context, project string) (string, error) {
	versions, err := e.registry.List(ctx, project)
	if err != nil {
		return "", fmt.Errorf("current version of %s: %w", project, err)
	}
	return e.currentVersionFrom(ctx, project, versions)
}

func (e *Engine) currentVersionFrom(ctx context.Context, project string, versions []model.Version) (string, error) {
	current := store.CurrentPrefix(project)
	objects, err := e.store.List(ctx, current)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", current, err)
	}
	if len(objects) == 0 {
		return "", fmt.Errorf("project %s: %w", project, ErrNoActiveVersion)
	}

	pointer := ""
	if body, err := e.store.Get(ctx, store.CurrentPointerKey(project)); err == nil {
		pointer = string(body)
	}

	if checksum, err := artifact.RemoteChecksum(current, objects); err == nil {
		// Identical re-deploys share a checksum; the pointer breaks the tie.
		for _, v := range versions {
			if v.VersionID == pointer && v.Status == model.StatusComplete && v.ContentChecksum == checksum {
				return v.VersionID, nil
			}
		}
		for _, v := range versions {
			if v.Status == model.StatusComplete && v.ContentChecksum == checksum {
				return v.VersionID, nil
			}
		}
	}

	if pointer != "" {
		return pointer, nil
	}
	return "", fmt.Errorf("project %s: %w", project, ErrNoActiveVersion)
}

// promote mirrors the version tree into current/. The copy is object by
// object; a failure aborts it and surfaces a PartialPromoteError, leaving the
// previous live tree logically authoritative (objects not yet overwritten
// keep serving). The engine never retries a promote mid-copy.
func (e *Engine) promote(ctx context.Context, project, versionID string) error {
	start := e.now()
	copied, err := e.store.CopyTree(ctx, store.VersionPrefix(project, versionID), store.CurrentPrefix(project))
	stepDuration.WithLabelValues("promoting").Observe(time.Since(start).Seconds())
	if err != nil {
		return &PartialPromoteError{Project: project, VersionID: versionID, Copied: copied, Err: err}
	}

	// Sweep objects left over from a previous, larger tree so current/ mirrors
	// exactly one version. Failure here is non-fatal: extra objects do not
	// break serving, and the pointer still identifies the live version.
	if err := e.sweepCurrent(ctx, project, versionID); err != nil {
		e.logger.Warn().Err(err).Str("project", project).Msg("failed to sweep stale current objects")
	}

	// Best-effort fast-path pointer; never load-bearing.
	if err := e.store.Put(ctx, store.CurrentPointerKey(project), []byte(versionID), store.Meta{ContentType: "text/plain"}); err != nil {
		e.logger.Warn().Err(err).Str("project", project).Msg("failed to write current pointer")
	}

	e.logger.Info().Str("project", project).Str("version", versionID).Int("objects", copied).Msg("version promoted")
	return nil
}

// sweepCurrent deletes current/ objects that have no counterpart in the
// promoted version tree.
func (e *Engine) sweepCurrent(ctx context.Context, project, versionID string) error {
	versionPrefix := store.VersionPrefix(project, versionID)
	wanted, err := e.store.List(ctx, versionPrefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", versionPrefix, err)
	}
	keep := make(map[string]struct{}, len(wanted))
	for _, obj := range wanted {
		keep[strings.TrimPrefix(obj.Key, versionPrefix)] = struct{}{}
	}

	currentPrefix := store.CurrentPrefix(project)
	existing, err := e.store.List(ctx, currentPrefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", currentPrefix, err)
	}
	for _, obj := range existing {
		if _, ok := keep[strings.TrimPrefix(obj.Key, currentPrefix)]; ok {
			continue
		}
		if err := e.store.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("delete stale %s: %w", obj.Key, err)
		}
	}
	return nil
}

// uploadTree writes every file of the tree under the version prefix, a
// bounded number of objects in flight, with per-object backoff on transient
// store errors before the whole operation fails.
func (e *Engine) uploadTree(ctx context.Context, project, versionID string, tree *artifact.Tree) error {
	prefix := store.VersionPrefix(project, versionID)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.uploadConcurrency)
	for _, f := range tree.Files {
		g.Go(func() error {
			body, err := os.ReadFile(f.AbsPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", f.RelPath, err)
			}

			attempt := 0
			backoff := retry.WithMaxRetries(e.uploadRetries, retry.NewFibonacci(e.retryBase))
			return retry.Do(ctx, backoff, func(ctx context.Context) error {
				if attempt > 0 {
					uploadRetriesTotal.Inc()
				}
				attempt++
				if err := e.store.Put(ctx, prefix+f.RelPath, body, store.ObjectMeta(f.RelPath)); err != nil {
					return retry.RetryableError(fmt.Errorf("put %s: %w", f.RelPath, err))
				}
				return nil
			})
		})
	}
	return g.Wait()
}

// newVersionID derives a fresh id from the current timestamp, bumping with a
// numeric suffix when a deploy lands within the same second as an existing
// version.
func (e *Engine) newVersionID(ctx context.Context, project string) (string, time.Time, error) {
	existing, err := e.store.ListPrefixes(ctx, store.VersionsRoot(project))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("enumerate existing versions: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}

	createdAt := e.now().UTC().Truncate(time.Second)
	id := createdAt.Format(model.VersionIDLayout)
	for n := 2; ; n++ {
		if _, ok := taken[id]; !ok {
			break
		}
		id = fmt.Sprintf("%s-%d", createdAt.Format(model.VersionIDLayout), n)
	}
	return id, createdAt, nil
}

func (e *Engine) markFailed(ctx context.Context, project, versionID, message string) {
	if err := e.registry.MarkStatus(ctx, project, versionID, model.StatusFailed, message); err != nil {
		e.logger.Warn().Err(err).Str("project", project).Str("version", versionID).Msg("failed to mark version failed")
	}
}

func (e *Engine) release(ctx context.Context, held *lease.Lease, project string) {
	if err := held.Release(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn().Err(err).Str("project", project).Msg("failed to release lease")
	}
}
