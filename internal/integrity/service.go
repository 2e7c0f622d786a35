package integrity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/logger"
)

// Sweeper runs integrity checks over bundles and executes the resulting
// remediation plan. A sweep is single-flight: while one runs, further calls
// are rejected rather than queued.
type Sweeper struct {
	validator *Validator
	cache     *ReferenceCache
	bundles   BundleSource
	bus       events.Bus
	opts      Options
	logger    *logger.Logger

	running atomic.Bool

	mu         sync.Mutex
	lastReport *SweepReport
}

func NewSweeper(validator *Validator, cache *ReferenceCache, bundles BundleSource, bus events.Bus, opts Options, log *logger.Logger) *Sweeper {
	return &Sweeper{
		validator: validator,
		cache:     cache,
		bundles:   bundles,
		bus:       bus,
		opts:      opts,
		logger:    log,
	}
}

// execStats counts what a single bundle check actually changed.
type execStats struct {
	executed       int
	orphansRemoved int
	failed         int
}

// CheckBundle validates one bundle and, when auto-fix is on and this is not a
// dry run, executes every auto-executable action in the plan.
func (s *Sweeper) CheckBundle(ctx context.Context, bundleID uuid.UUID) (BundleValidationReport, error) {
	report, _, err := s.checkBundle(ctx, bundleID, s.opts.AutoFix && !s.opts.DryRun)
	return report, err
}

// CheckBundleDryRun validates one bundle without executing any action,
// regardless of the configured auto-fix defaults.
func (s *Sweeper) CheckBundleDryRun(ctx context.Context, bundleID uuid.UUID) (BundleValidationReport, error) {
	report, _, err := s.checkBundle(ctx, bundleID, false)
	return report, err
}

func (s *Sweeper) checkBundle(ctx context.Context, bundleID uuid.UUID, execute bool) (BundleValidationReport, execStats, error) {
	lines, err := s.bundles.GetBundleLines(ctx, bundleID)
	if err != nil {
		return BundleValidationReport{}, execStats{}, apperr.Wrap(apperr.KindInternal, "fetch bundle lines", err).WithOp("integrity.CheckBundle")
	}

	report, err := s.validator.ValidateBundle(ctx, bundleID, lines)
	if err != nil {
		return BundleValidationReport{}, execStats{}, err
	}

	var stats execStats
	if execute {
		stats = s.executeActions(ctx, bundleID, report)
	}
	return report, stats, nil
}

// executeActions runs every auto-executable action, best-effort. A failed
// action is logged and counted as not fixed; it never aborts the others.
func (s *Sweeper) executeActions(ctx context.Context, bundleID uuid.UUID, report BundleValidationReport) execStats {
	var stats execStats
	for _, action := range report.Actions {
		if !action.AutoExecutable {
			continue
		}
		if err := s.executeAction(ctx, bundleID, report, action); err != nil {
			stats.failed++
			s.logger.ActionFailed(bundleID.String(), string(action.Type), action.ProductID.String(), err)
			continue
		}
		stats.executed++
		if action.Type == ActionRemoveOrphan {
			stats.orphansRemoved++
		}
	}
	return stats
}

func (s *Sweeper) executeAction(ctx context.Context, bundleID uuid.UUID, report BundleValidationReport, action Action) error {
	switch action.Type {
	case ActionRemoveOrphan:
		removed, err := s.bundles.RemoveLine(ctx, bundleID, action.ProductID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("line for product %s not found in bundle", action.ProductID)
		}
		s.cache.Invalidate(action.ProductID)
		return nil
	case ActionUpdatePrice:
		snapshot, found, err := s.validator.resolve(ctx, action.ProductID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("product %s disappeared before price correction", action.ProductID)
		}
		return s.bundles.UpdateLinePrice(ctx, bundleID, action.ProductID, snapshot.PriceCents)
	case ActionUpdateName:
		snapshot, found, err := s.validator.resolve(ctx, action.ProductID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("product %s disappeared before name correction", action.ProductID)
		}
		return s.bundles.UpdateLineName(ctx, bundleID, action.ProductID, snapshot.Name)
	case ActionRecalcTotal:
		return s.bundles.RecalculateTotal(ctx, bundleID)
	case ActionNotify:
		return s.bus.PublishSync(ctx, events.BundleIntegrityIssuesFound{
			BaseEvent:      events.NewBaseEvent(),
			BundleID:       bundleID,
			Issues:         issueMessages(report),
			OrphanedIDs:    orphanedIDs(report),
			CriticalIssues: criticalIssueCount(report),
		})
	default:
		// reactivate and anything future-added stays manual
		return nil
	}
}

// SweepAll checks every bundle in fixed-size batches with bounded concurrency
// inside each batch. Per-bundle failures are recorded as critical issues and
// do not abort the sweep; cancellation stops further batches but still
// returns the partial report.
func (s *Sweeper) SweepAll(ctx context.Context) (SweepReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepReport{}, apperr.Conflict("integrity sweep already in progress")
	}
	defer s.running.Store(false)

	started := time.Now()
	report := SweepReport{StartedAt: started}

	bundleIDs, err := s.bundles.ListBundleIDs(ctx)
	if err != nil {
		return SweepReport{}, apperr.Wrap(apperr.KindInternal, "list bundles", err).WithOp("integrity.SweepAll")
	}
	report.TotalBundles = len(bundleIDs)

	batchSize := s.opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	maxConcurrency := s.opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}

	var mu sync.Mutex
	for start := 0; start < len(bundleIDs); start += batchSize {
		if ctx.Err() != nil {
			report.TerminatedEarly = true
			break
		}

		end := min(start+batchSize, len(bundleIDs))

		g := new(errgroup.Group)
		g.SetLimit(maxConcurrency)
		for _, bundleID := range bundleIDs[start:end] {
			g.Go(func() error {
				bundleReport, stats, err := s.checkBundle(ctx, bundleID, s.opts.AutoFix && !s.opts.DryRun)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.CriticalIssues = append(report.CriticalIssues,
						fmt.Sprintf("bundle %s: check failed: %v", bundleID, err))
					return nil
				}
				report.BundlesChecked++
				report.IssuesFound += bundleReport.IssueCount
				if bundleReport.IssueCount > 0 {
					report.BundlesWithIssues++
				}
				report.ActionsExecuted += stats.executed
				report.OrphansRemoved += stats.orphansRemoved
				if stats.executed > 0 {
					report.BundlesFixed = append(report.BundlesFixed, bundleID)
				}
				if stats.failed > 0 {
					report.CriticalIssues = append(report.CriticalIssues,
						fmt.Sprintf("bundle %s: %d action(s) not fixed", bundleID, stats.failed))
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	report.DurationMs = time.Since(started).Milliseconds()
	s.logger.IntegritySweep(report.BundlesChecked, report.IssuesFound, report.ActionsExecuted, report.DurationMs)

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()

	return report, nil
}

// CleanupOrphans removes exactly the orphaned lines of one bundle and
// recalculates its total. Other auto-fixes are not applied.
func (s *Sweeper) CleanupOrphans(ctx context.Context, bundleID uuid.UUID) ([]uuid.UUID, error) {
	lines, err := s.bundles.GetBundleLines(ctx, bundleID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "fetch bundle lines", err).WithOp("integrity.CleanupOrphans")
	}

	report, err := s.validator.ValidateBundle(ctx, bundleID, lines)
	if err != nil {
		return nil, err
	}

	removed := make([]uuid.UUID, 0, len(report.OrphanedResults))
	for _, orphan := range report.OrphanedResults {
		ok, err := s.bundles.RemoveLine(ctx, bundleID, orphan.ProductID)
		if err != nil {
			s.logger.ActionFailed(bundleID.String(), string(ActionRemoveOrphan), orphan.ProductID.String(), err)
			continue
		}
		if ok {
			removed = append(removed, orphan.ProductID)
			s.cache.Invalidate(orphan.ProductID)
		}
	}

	if len(removed) > 0 {
		if err := s.bundles.RecalculateTotal(ctx, bundleID); err != nil {
			s.logger.ActionFailed(bundleID.String(), string(ActionRecalcTotal), uuid.Nil.String(), err)
		}
		if err := s.bus.PublishSync(ctx, events.BundleCleanupCompleted{
			BaseEvent:  events.NewBaseEvent(),
			BundleID:   bundleID,
			RemovedIDs: removed,
		}); err != nil {
			s.logger.Warn("cleanup event publish failed", "bundleId", bundleID, "error", err)
		}
	}
	return removed, nil
}

// OnProductUpdated reacts to a product's fields changing. The cached snapshot
// is stale the moment the mutation is broadcast, so it is dropped instead of
// waiting out the TTL; the next validation fetches the live product.
func (s *Sweeper) OnProductUpdated(_ context.Context, productID uuid.UUID) error {
	s.cache.Invalidate(productID)
	return nil
}

// OnProductDeleted reacts to a product being removed from the catalog: every
// bundle still referencing it gets its orphaned lines cleaned up immediately.
func (s *Sweeper) OnProductDeleted(ctx context.Context, productID uuid.UUID) error {
	s.cache.Invalidate(productID)

	affected, err := s.findReferencingBundles(ctx, productID)
	if err != nil {
		return err
	}
	if len(affected) == 0 {
		return nil
	}

	for _, bundleID := range affected {
		if _, err := s.CleanupOrphans(ctx, bundleID); err != nil {
			s.logger.Warn("orphan cleanup failed", "bundleId", bundleID, "productId", productID, "error", err)
		}
	}

	return s.bus.PublishSync(ctx, events.ProductReferenceOrphaned{
		BaseEvent: events.NewBaseEvent(),
		ProductID: productID,
		BundleIDs: affected,
		Reason:    "product deleted from catalog",
	})
}

// OnProductDeactivated reacts to a product being deactivated. Deactivation is
// reversible, so nothing is removed; affected bundles are announced so
// interested parties can review them.
func (s *Sweeper) OnProductDeactivated(ctx context.Context, productID uuid.UUID) error {
	s.cache.Invalidate(productID)

	affected, err := s.findReferencingBundles(ctx, productID)
	if err != nil {
		return err
	}
	if len(affected) == 0 {
		return nil
	}

	return s.bus.PublishSync(ctx, events.ProductReferenceInvalid{
		BaseEvent: events.NewBaseEvent(),
		ProductID: productID,
		BundleIDs: affected,
		Reason:    "product deactivated",
	})
}

// findReferencingBundles scans every bundle's lines for the product. Catalogs
// are small, so a full scan beats maintaining a reverse index.
func (s *Sweeper) findReferencingBundles(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	bundleIDs, err := s.bundles.ListBundleIDs(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list bundles", err).WithOp("integrity.findReferencingBundles")
	}

	var affected []uuid.UUID
	for _, bundleID := range bundleIDs {
		lines, err := s.bundles.GetBundleLines(ctx, bundleID)
		if err != nil {
			s.logger.Warn("skipping bundle during reference scan", "bundleId", bundleID, "error", err)
			continue
		}
		for _, line := range lines {
			if line.ProductID == productID {
				affected = append(affected, bundleID)
				break
			}
		}
	}
	return affected, nil
}

// SchedulePeriodicSweep runs SweepAll on a fixed interval until the context
// is cancelled. Overlap is impossible: the single-flight guard rejects a tick
// that fires while the previous sweep still runs.
func (s *Sweeper) SchedulePeriodicSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.SweepAll(ctx); err != nil {
					if apperr.GetKind(err) != apperr.KindConflict {
						s.logger.Error("periodic sweep failed", "error", err)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// GetLastReport returns a copy of the most recent completed sweep report, or
// nil when no sweep has run yet.
func (s *Sweeper) GetLastReport() *SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

// IsSweepRunning reports whether a sweep is currently in flight.
func (s *Sweeper) IsSweepRunning() bool {
	return s.running.Load()
}

// CacheStats exposes the reference cache's current state for diagnostics.
func (s *Sweeper) CacheStats() CacheStats {
	return s.cache.Stats()
}

// criticalIssueCount counts products with at least one error-severity issue,
// not the issues themselves.
func criticalIssueCount(report BundleValidationReport) int {
	n := 0
	eachResult(report, func(r ValidationResult) {
		for _, issue := range r.Issues {
			if issue.Severity == SeverityError {
				n++
				break
			}
		}
	})
	return n
}

func issueMessages(report BundleValidationReport) []string {
	var msgs []string
	eachResult(report, func(r ValidationResult) {
		for _, issue := range r.Issues {
			msgs = append(msgs, issue.Message)
		}
	})
	return msgs
}

func eachResult(report BundleValidationReport, fn func(ValidationResult)) {
	for _, r := range report.InvalidResults {
		fn(r)
	}
	for _, r := range report.OrphanedResults {
		fn(r)
	}
}

func orphanedIDs(report BundleValidationReport) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(report.OrphanedResults))
	for _, r := range report.OrphanedResults {
		ids = append(ids, r.ProductID)
	}
	return ids
}
