// Package discovery runs the monitoring auto-discovery loop: on a fixed
// cadence it scans the artifact store for projects with a live current/ tree
// and republishes the full scrape-target set as one atomic file replace. The
// output is derived wholesale every cycle, so it self-heals from any
// corruption and a vanished project simply drops out of the next cycle.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/staticdeploy/internal/model"
	"github.com/edvin/staticdeploy/internal/store"
)

// Loop is the periodic discovery worker. Cancellation is cooperative: the
// stop signal is checked between cycles, never mid-cycle, so a target file is
// never left half-written.
type Loop struct {
	logger      zerolog.Logger
	store       store.Store
	targetsDir  string
	interval    time.Duration
	environment string
	siteURL     func(project string) string
	reloadURL   string
	httpClient  *http.Client

	mu           sync.RWMutex
	prevProjects map[string]struct{}
	lastResult   []model.Deployment
	cycles       int
}

// Options configures a discovery Loop.
type Options struct {
	TargetsDir  string
	Interval    time.Duration
	Environment string
	// SiteURL builds the public URL of a project's live tree.
	SiteURL func(project string) string
	// PrometheusReloadURL, when set, is POSTed to after a cycle whose project
	// set changed.
	PrometheusReloadURL string
}

func NewLoop(logger zerolog.Logger, st store.Store, opts Options) *Loop {
	return &Loop{
		logger:      logger.With().Str("component", "discovery").Logger(),
		store:       st,
		targetsDir:  opts.TargetsDir,
		interval:    opts.Interval,
		environment: opts.Environment,
		siteURL:     opts.SiteURL,
		reloadURL:   opts.PrometheusReloadURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

// RunLoop runs discovery cycles until the context is cancelled. The first
// cycle runs immediately so a fresh service converges without waiting a full
// interval.
func (l *Loop) RunLoop(ctx context.Context) {
	l.logger.Info().Dur("interval", l.interval).Str("targets_dir", l.targetsDir).Msg("starting discovery loop")

	if err := l.Cycle(ctx); err != nil && ctx.Err() == nil {
		l.logger.Error().Err(err).Msg("discovery cycle failed")
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("discovery loop stopped")
			return
		case <-ticker.C:
			if err := l.Cycle(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error().Err(err).Msg("discovery cycle failed")
			}
		}
	}
}

// Cycle performs one scan-and-publish sequence. A project whose enumeration
// fails is logged and excluded from this cycle only; the publish still goes
// ahead for every other project. Cancellation aborts the whole cycle before
// publish: a shutdown mid-scan must never replace the target file with the
// partial (or empty) set the truncated scan produced.
func (l *Loop) Cycle(ctx context.Context) error {
	start := time.Now()

	projects, err := l.store.ListPrefixes(ctx, "")
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("cycle aborted: %w", ctx.Err())
		}
		discoveryErrorsTotal.Inc()
		return fmt.Errorf("enumerate projects: %w", err)
	}

	deployments := make([]model.Deployment, 0, len(projects))
	for _, project := range projects {
		d, err := l.inspect(ctx, project)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("cycle aborted: %w", ctx.Err())
			}
			discoveryErrorsTotal.Inc()
			l.logger.Warn().Err(err).Str("project", project).Msg("skipping project this cycle")
			continue
		}
		if d != nil {
			deployments = append(deployments, *d)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cycle aborted: %w", err)
	}
	sort.Slice(deployments, func(i, j int) bool { return deployments[i].Project < deployments[j].Project })

	if err := l.publish(deployments); err != nil {
		discoveryErrorsTotal.Inc()
		return err
	}

	changed := l.recordCycle(deployments)
	if changed && l.reloadURL != "" {
		l.reloadPrometheus(ctx)
	}

	discoveredDeployments.Set(float64(len(deployments)))
	lastDiscoveryTime.SetToCurrentTime()
	cycleDuration.Observe(time.Since(start).Seconds())

	l.logger.Info().Int("deployments", len(deployments)).Bool("changed", changed).Msg("discovery cycle complete")
	return nil
}

// inspect reports a project's live deployment, or nil when the project has no
// current/ tree.
func (l *Loop) inspect(ctx context.Context, project string) (*model.Deployment, error) {
	objects, err := l.store.List(ctx, store.CurrentPrefix(project))
	if err != nil {
		return nil, fmt.Errorf("list current tree: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	d := &model.Deployment{
		Project:     project,
		URL:         l.siteURL(project),
		Environment: l.environment,
		FileCount:   len(objects),
	}
	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
		d.SizeBytes += obj.Size
		if obj.LastModified.After(d.LastModified) {
			d.LastModified = obj.LastModified
		}
	}
	d.Framework = DetectFramework(keys)
	return d, nil
}

// publish atomically replaces the target list and the dashboard variables.
func (l *Loop) publish(deployments []model.Deployment) error {
	if err := os.MkdirAll(l.targetsDir, 0o755); err != nil {
		return fmt.Errorf("create targets dir: %w", err)
	}

	if err := writeFileAtomic(l.targetsDir, TargetsFileName, TargetGroups(deployments)); err != nil {
		return err
	}

	projects := make([]string, 0, len(deployments))
	frameworkSet := make(map[string]struct{})
	for _, d := range deployments {
		projects = append(projects, d.Project)
		frameworkSet[d.Framework] = struct{}{}
	}
	frameworks := make([]string, 0, len(frameworkSet))
	for f := range frameworkSet {
		frameworks = append(frameworks, f)
	}
	sort.Strings(frameworks)

	return writeFileAtomic(l.targetsDir, VariablesFileName, Variables{
		Projects:         projects,
		Frameworks:       frameworks,
		TotalDeployments: len(deployments),
		LastUpdated:      time.Now().UTC(),
		Deployments:      deployments,
	})
}

// recordCycle stores the cycle result for the status API and reports whether
// the live project set changed since the previous cycle.
func (l *Loop) recordCycle(deployments []model.Deployment) bool {
	current := make(map[string]struct{}, len(deployments))
	for _, d := range deployments {
		current[d.Project] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	changed := l.prevProjects == nil || len(current) != len(l.prevProjects)
	if !changed {
		for p := range current {
			if _, ok := l.prevProjects[p]; !ok {
				changed = true
				break
			}
		}
	}
	l.prevProjects = current
	l.lastResult = deployments
	l.cycles++
	return changed
}

func (l *Loop) reloadPrometheus(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.reloadURL, nil)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to build prometheus reload request")
		return
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn().Err(err).Msg("prometheus reload failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		l.logger.Warn().Int("status", resp.StatusCode).Msg("prometheus reload returned non-200")
		return
	}
	l.logger.Info().Msg("prometheus configuration reloaded")
}

// Snapshot returns the deployments found by the most recent cycle.
func (l *Loop) Snapshot() []model.Deployment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Deployment, len(l.lastResult))
	copy(out, l.lastResult)
	return out
}

// Ready reports whether at least one cycle has completed.
func (l *Loop) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cycles > 0
}
