package pkgmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/classifier"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/cmdexec"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Install installs a package (the spec may carry a version constraint).
// Returns false without error when the package manager reported a failure;
// the transcript details go to the notification channel.
func (m *Manager) Install(ctx context.Context, spec string) (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()
	return m.installOne(ctx, spec)
}

func (m *Manager) installOne(ctx context.Context, spec string) (bool, error) {
	name := stripConstraint(spec)
	if name == "" {
		return false, types.NewConfigurationError("package name is required")
	}

	m.notify.Progressf("Installing %s into %s", spec, m.env.Name)
	logging.Packages("Installing %s (env %s)", spec, m.env.Name)

	res, err := m.runner.Run(ctx, m.installCommand(spec))
	if err != nil {
		// Cancellation or spawn failure: the package collection is
		// untouched by contract.
		m.notify.Errorf("Install of %s aborted: %v", name, err)
		return false, err
	}
	if !commandSucceeded(res) {
		m.notify.Errorf("Install of %s failed: %s", name, transcriptSummary(res))
		logging.PackagesWarn("Install of %s failed (exit %d)", name, res.ExitCode)
		return false, nil
	}

	m.refreshRecord(ctx, name)
	m.touchSync()
	m.notify.Progressf("Installed %s", name)
	return true, nil
}

// Uninstall removes a package. On success the record leaves the
// environment's collection.
func (m *Manager) Uninstall(ctx context.Context, name string) (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()

	name = stripConstraint(name)
	m.notify.Progressf("Uninstalling %s from %s", name, m.env.Name)
	logging.Packages("Uninstalling %s (env %s)", name, m.env.Name)

	res, err := m.runner.Run(ctx, m.uninstallCommand(name))
	if err != nil {
		m.notify.Errorf("Uninstall of %s aborted: %v", name, err)
		return false, err
	}
	if !commandSucceeded(res) {
		m.notify.Errorf("Uninstall of %s failed: %s", name, transcriptSummary(res))
		return false, nil
	}

	m.env.Remove(name)
	m.touchSync()
	m.notify.Progressf("Uninstalled %s", name)
	return true, nil
}

// Upgrade upgrades a package, special-casing the package manager's own
// upgrade verb when asked to upgrade itself.
func (m *Manager) Upgrade(ctx context.Context, name string) (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()
	return m.upgradeOne(ctx, name)
}

func (m *Manager) upgradeOne(ctx context.Context, name string) (bool, error) {
	name = stripConstraint(name)
	m.notify.Progressf("Upgrading %s in %s", name, m.env.Name)
	logging.Packages("Upgrading %s (env %s)", name, m.env.Name)

	res, err := m.runner.Run(ctx, m.upgradeCommand(name))
	if err != nil {
		m.notify.Errorf("Upgrade of %s aborted: %v", name, err)
		return false, err
	}
	if !commandSucceeded(res) {
		m.notify.Errorf("Upgrade of %s failed: %s", name, transcriptSummary(res))
		return false, nil
	}

	m.refreshRecord(ctx, name)
	m.touchSync()
	m.notify.Progressf("Upgraded %s", name)
	return true, nil
}

// UpgradeAll upgrades every package in the environment's collection. It is
// partial-failure tolerant: every package is attempted, the returned flag
// is false if any single upgrade failed, and the error aggregates the
// per-item failures.
func (m *Manager) UpgradeAll(ctx context.Context) (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()

	names := make([]string, 0, m.env.PackageCount())
	for _, rec := range m.env.Packages() {
		names = append(names, rec.Name)
	}
	sort.Strings(names)

	allOK := true
	var agg error
	for _, name := range names {
		ok, err := m.upgradeOne(ctx, name)
		if err != nil {
			// Cancellation stops the whole bulk run.
			return false, multierr.Append(agg, err)
		}
		if !ok {
			allOK = false
			agg = multierr.Append(agg, fmt.Errorf("upgrade %s failed", name))
		}
	}
	return allOK, agg
}

// GetInfo returns the record for one installed package, sourced from
// interpreter introspection and, when the index is reachable, cross-checked
// online for an available update. Returns (nil, nil) when the package is
// not installed.
func (m *Manager) GetInfo(ctx context.Context, name string) (*types.PackageRecord, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	dist, err := m.gw.DistributionInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		m.notify.Progressf("Package %s is not installed in %s", name, m.env.Name)
		return nil, nil
	}

	rec := dist.Record()
	rec.Category = classifier.Classify(rec.Name, rec.Description)
	if m.index != nil {
		if info, ok := m.index.LookupLatest(ctx, rec.Name); ok {
			annotateOnline(rec, info.Version)
			if rec.Description == "" {
				rec.Description = info.Summary
			}
		}
	}

	m.env.Upsert(rec)
	m.touchSync()
	return rec, nil
}

// ListAll enumerates every installed distribution, augments the records
// with online version data in fixed-size batches (yielding between batches
// so other work is not starved), classifies the unlabeled ones, and
// replaces the environment's collection with the result. On cancellation
// the collection is left exactly as it was.
func (m *Manager) ListAll(ctx context.Context) ([]*types.PackageRecord, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	timer := logging.StartTimer(logging.CategoryPackages, "ListAll")
	defer timer.StopWithThreshold(30 * time.Second)

	dists, err := m.gw.ListDistributions(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*types.PackageRecord, 0, len(dists))
	for _, d := range dists {
		rec := d.Record()
		if prev, ok := m.env.Package(rec.Name); ok && prev.Category != types.CategoryUncategorized {
			rec.Category = prev.Category
		} else {
			rec.Category = classifier.Classify(rec.Name, rec.Description)
		}
		records = append(records, rec)
	}

	if m.index != nil {
		if err := m.augmentOnline(ctx, records); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.env.ReplacePackages(records)
	m.touchSync()
	m.notify.Progressf("Listed %d packages in %s", len(records), m.env.Name)
	return records, nil
}

// augmentOnline cross-checks the index batch by batch. Lookup failures
// degrade to no data; only cancellation aborts.
func (m *Manager) augmentOnline(ctx context.Context, records []*types.PackageRecord) error {
	batchSize := m.execCfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	sem := semaphore.NewWeighted(int64(batchSize))

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		var wg sync.WaitGroup
		for _, rec := range records[start:end] {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			wg.Add(1)
			go func(rec *types.PackageRecord) {
				defer wg.Done()
				defer sem.Release(1)
				if info, ok := m.index.LookupLatest(ctx, rec.Name); ok {
					annotateOnline(rec, info.Version)
					if rec.Description == "" {
						rec.Description = info.Summary
					}
				}
			}(rec)
		}
		wg.Wait()

		if end < len(records) {
			// Cooperative yield between batches.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.execCfg.BatchYield()):
			}
		}
	}
	return nil
}

// refreshRecord re-reads a single package's record after a successful
// mutation. Introspection failures are logged but do not fail the
// operation that already succeeded.
func (m *Manager) refreshRecord(ctx context.Context, name string) {
	dist, err := m.gw.DistributionInfo(ctx, name)
	if err != nil {
		logging.PackagesWarn("Post-operation refresh of %s failed: %v", name, err)
		m.notify.Errorf("Could not refresh record for %s: %v", name, err)
		return
	}
	if dist == nil {
		return
	}
	rec := dist.Record()
	rec.Category = classifier.Classify(rec.Name, rec.Description)
	if m.index != nil {
		if info, ok := m.index.LookupLatest(ctx, rec.Name); ok {
			annotateOnline(rec, info.Version)
		}
	}
	m.env.Upsert(rec)
}

// Categorize runs the bulk classifier over the environment's collection
// and persists the result. Idempotent.
func (m *Manager) Categorize(ctx context.Context) (int, error) {
	if err := m.begin(); err != nil {
		return 0, err
	}
	defer m.end()

	changed := classifier.PopulateCommon(m.env)
	if changed > 0 {
		m.touchSync()
	}
	logging.Classifier("Categorized %d packages in %s", changed, m.env.Name)
	m.notify.Progressf("Categorized %d packages", changed)
	return changed, nil
}

// transcriptSummary condenses a failed transcript into one line for
// notifications.
func transcriptSummary(res *cmdexec.Result) string {
	for _, line := range strings.Split(res.Combined, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, marker := range errorMarkers {
			if strings.Contains(trimmed, marker) {
				return trimmed
			}
		}
	}
	return fmt.Sprintf("exit code %d", res.ExitCode)
}
