package integrity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/logger"
)

type fakeBundles struct {
	mu       sync.Mutex
	order    []uuid.UUID
	lines    map[uuid.UUID][]BundleLineSnapshot
	linesErr map[uuid.UUID]error
	listErr  error
	recalcs  []uuid.UUID
	onFetch  func(bundleID uuid.UUID)
}

func newFakeBundles() *fakeBundles {
	return &fakeBundles{
		lines:    make(map[uuid.UUID][]BundleLineSnapshot),
		linesErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeBundles) addBundle(id uuid.UUID, lines ...BundleLineSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, id)
	f.lines[id] = lines
}

func (f *fakeBundles) ListBundleIDs(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]uuid.UUID, len(f.order))
	copy(ids, f.order)
	return ids, nil
}

func (f *fakeBundles) GetBundleLines(_ context.Context, bundleID uuid.UUID) ([]BundleLineSnapshot, error) {
	f.mu.Lock()
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(bundleID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.linesErr[bundleID]; ok {
		return nil, err
	}
	lines, ok := f.lines[bundleID]
	if !ok {
		return nil, apperr.NotFound("bundle not found")
	}
	out := make([]BundleLineSnapshot, len(lines))
	copy(out, lines)
	return out, nil
}

func (f *fakeBundles) RemoveLine(_ context.Context, bundleID, productID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[bundleID]
	for i, line := range lines {
		if line.ProductID == productID {
			f.lines[bundleID] = append(lines[:i:i], lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBundles) UpdateLinePrice(_ context.Context, bundleID, productID uuid.UUID, priceCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, line := range f.lines[bundleID] {
		if line.ProductID == productID {
			f.lines[bundleID][i].BasePriceCents = priceCents
			return nil
		}
	}
	return apperr.NotFound("line not found")
}

func (f *fakeBundles) UpdateLineName(_ context.Context, bundleID, productID uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, line := range f.lines[bundleID] {
		if line.ProductID == productID {
			f.lines[bundleID][i].Name = name
			return nil
		}
	}
	return apperr.NotFound("line not found")
}

func (f *fakeBundles) RecalculateTotal(_ context.Context, bundleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recalcs = append(f.recalcs, bundleID)
	for i, line := range f.lines[bundleID] {
		f.lines[bundleID][i].SubtotalCents = line.BasePriceCents * int64(line.Quantity)
	}
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) byName(name string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type sweeperFixture struct {
	sweeper  *Sweeper
	catalog  *fakeCatalog
	bundles  *fakeBundles
	recorder *eventRecorder
	bus      events.Bus
}

func newSweeperFixture(t *testing.T, opts Options) *sweeperFixture {
	t.Helper()

	log := logger.New("development")
	catalog := newFakeCatalog()
	bundles := newFakeBundles()

	cache := NewReferenceCache(opts.CacheTimeout, 1000, time.Hour)
	t.Cleanup(cache.Close)

	bus := events.NewInMemoryBus(log)
	recorder := &eventRecorder{}
	for _, name := range []string{
		"product.reference.invalid",
		"product.reference.orphaned",
		"bundle.integrity.issues_found",
		"bundle.integrity.cleanup_completed",
	} {
		bus.Subscribe(name, recorder)
	}

	validator := NewValidator(cache, catalog, opts, log)
	return &sweeperFixture{
		sweeper:  NewSweeper(validator, cache, bundles, bus, opts, log),
		catalog:  catalog,
		bundles:  bundles,
		recorder: recorder,
		bus:      bus,
	}
}

func TestCheckBundleAutoFix(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	priced := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1200}
	fx.catalog.set(priced)
	orphan := uuid.New()

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: priced.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 2, SubtotalCents: 2000},
		BundleLineSnapshot{ProductID: orphan, Name: "Gone", BasePriceCents: 500, Quantity: 1, SubtotalCents: 500},
	)

	report, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.IsValid {
		t.Fatalf("report should be invalid before fixes")
	}

	lines := fx.bundles.lines[bundleID]
	if len(lines) != 1 {
		t.Fatalf("orphan line not removed, lines = %+v", lines)
	}
	if lines[0].BasePriceCents != 1200 {
		t.Fatalf("price not corrected, line = %+v", lines[0])
	}
	if lines[0].SubtotalCents != 2400 {
		t.Fatalf("total not recalculated, line = %+v", lines[0])
	}
	if got := fx.recorder.byName("bundle.integrity.issues_found"); len(got) != 1 {
		t.Fatalf("issues_found events = %d, want 1", len(got))
	}
}

func TestCheckBundleAutoFixIdempotent(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	p := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1200}
	fx.catalog.set(p)

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: p.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 2, SubtotalCents: 2000},
	)

	if _, err := fx.sweeper.CheckBundle(context.Background(), bundleID); err != nil {
		t.Fatalf("first check: %v", err)
	}
	second, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !second.IsValid || len(second.Actions) != 0 {
		t.Fatalf("second check = %+v, want clean no-op", second)
	}
}

func TestCheckBundleDryRun(t *testing.T) {
	opts := DefaultOptions()
	opts.DryRun = true
	fx := newSweeperFixture(t, opts)

	orphan := uuid.New()
	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: orphan, Name: "Gone", BasePriceCents: 500, Quantity: 1, SubtotalCents: 500},
	)

	report, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Actions) == 0 {
		t.Fatalf("dry run should still plan actions")
	}
	if len(fx.bundles.lines[bundleID]) != 1 {
		t.Fatalf("dry run must not mutate the bundle")
	}
}

func TestCheckBundleDryRunOverridesAutoFix(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	orphan := uuid.New()
	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: orphan, Name: "Gone", BasePriceCents: 500, Quantity: 1, SubtotalCents: 500},
	)

	report, err := fx.sweeper.CheckBundleDryRun(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Actions) == 0 {
		t.Fatalf("dry run should still plan actions")
	}
	if len(fx.bundles.lines[bundleID]) != 1 {
		t.Fatalf("per-request dry run must not mutate the bundle")
	}
}

func TestProductMutationEventsDropCachedSnapshot(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	p := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1000}
	fx.catalog.set(p)

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: p.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 2, SubtotalCents: 2000},
	)

	module := NewModule(fx.sweeper, logger.New("development"))
	module.RegisterHandlers(fx.bus)

	// First check warms the cache with the old snapshot.
	first, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if !first.IsValid || first.IssueCount != 0 {
		t.Fatalf("first check = %+v, want clean", first)
	}

	// The price changes in the catalog; the mutation event must drop the
	// cached snapshot so the next check sees the new price inside the TTL.
	p.PriceCents = 1200
	fx.catalog.set(p)
	err = fx.bus.PublishSync(context.Background(), events.ProductPriceChanged{
		BaseEvent:     events.NewBaseEvent(),
		ProductID:     p.ID,
		OldPriceCents: 1000,
		NewPriceCents: 1200,
	})
	if err != nil {
		t.Fatalf("publish price change: %v", err)
	}

	second, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if second.IssueCount == 0 {
		t.Fatalf("price change not detected, stale snapshot still served")
	}
	if got := fx.bundles.lines[bundleID][0].BasePriceCents; got != 1200 {
		t.Fatalf("line price = %d, want 1200", got)
	}

	// A plain update event invalidates too.
	p.Name = "Premium Tee"
	fx.catalog.set(p)
	err = fx.bus.PublishSync(context.Background(), events.ProductUpdated{
		BaseEvent:   events.NewBaseEvent(),
		ProductID:   p.ID,
		Name:        p.Name,
		NameChanged: true,
	})
	if err != nil {
		t.Fatalf("publish update: %v", err)
	}

	third, err := fx.sweeper.CheckBundle(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("third check: %v", err)
	}
	if third.IssueCount == 0 {
		t.Fatalf("name change not detected, stale snapshot still served")
	}
	if got := fx.bundles.lines[bundleID][0].Name; got != "Premium Tee" {
		t.Fatalf("line name = %q, want %q", got, "Premium Tee")
	}
}

func TestSweepAllIsolatesBundleFailure(t *testing.T) {
	opts := DefaultOptions()
	fx := newSweeperFixture(t, opts)

	p := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1000}
	fx.catalog.set(p)

	var broken uuid.UUID
	for i := 0; i < 25; i++ {
		id := uuid.New()
		fx.bundles.addBundle(id,
			BundleLineSnapshot{ProductID: p.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 1, SubtotalCents: 1000},
		)
		if i == 14 {
			broken = id
		}
	}
	fx.bundles.linesErr[broken] = errors.New("connection reset")

	report, err := fx.sweeper.SweepAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalBundles != 25 || report.BundlesChecked != 24 {
		t.Fatalf("counts = total %d checked %d, want 25/24", report.TotalBundles, report.BundlesChecked)
	}
	if len(report.CriticalIssues) != 1 {
		t.Fatalf("criticalIssues = %+v, want one entry", report.CriticalIssues)
	}
	if report.TerminatedEarly {
		t.Fatalf("sweep should run to completion")
	}

	last := fx.sweeper.GetLastReport()
	if last == nil || last.BundlesChecked != 24 {
		t.Fatalf("lastReport = %+v, want the completed sweep", last)
	}
}

func TestSweepAllSingleFlight(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID)

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	fx.bundles.onFetch = func(uuid.UUID) {
		once.Do(func() { close(entered) })
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := fx.sweeper.SweepAll(context.Background())
		done <- err
	}()

	<-entered
	if !fx.sweeper.IsSweepRunning() {
		t.Fatalf("sweep should report running")
	}
	if _, err := fx.sweeper.SweepAll(context.Background()); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("concurrent sweep error = %v, want conflict", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if fx.sweeper.IsSweepRunning() {
		t.Fatalf("sweep still reported running after completion")
	}
}

func TestSweepAllHonorsCancellation(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	p := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1000}
	fx.catalog.set(p)
	for i := 0; i < 20; i++ {
		fx.bundles.addBundle(uuid.New(),
			BundleLineSnapshot{ProductID: p.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 1, SubtotalCents: 1000},
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fx.bundles.onFetch = func(uuid.UUID) { cancel() }

	report, err := fx.sweeper.SweepAll(ctx)
	if err != nil {
		t.Fatalf("cancelled sweep must still return its partial report: %v", err)
	}
	if !report.TerminatedEarly {
		t.Fatalf("report = %+v, want terminatedEarly", report)
	}
	if report.BundlesChecked >= report.TotalBundles {
		t.Fatalf("checked %d of %d, expected early stop", report.BundlesChecked, report.TotalBundles)
	}
}

func TestCleanupOrphansRemovesOnlyOrphans(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	live := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1200}
	fx.catalog.set(live)
	orphan := uuid.New()

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		// Price mismatch on the live line must be left alone by cleanup.
		BundleLineSnapshot{ProductID: live.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 1, SubtotalCents: 1000},
		BundleLineSnapshot{ProductID: orphan, Name: "Gone", BasePriceCents: 500, Quantity: 1, SubtotalCents: 500},
	)

	removed, err := fx.sweeper.CleanupOrphans(context.Background(), bundleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 1 || removed[0] != orphan {
		t.Fatalf("removed = %v, want [%s]", removed, orphan)
	}

	lines := fx.bundles.lines[bundleID]
	if len(lines) != 1 || lines[0].ProductID != live.ID {
		t.Fatalf("lines = %+v, want only the live line", lines)
	}
	if lines[0].BasePriceCents != 1000 {
		t.Fatalf("cleanup must not touch prices, line = %+v", lines[0])
	}
	if len(fx.bundles.recalcs) != 1 {
		t.Fatalf("recalcs = %v, want one", fx.bundles.recalcs)
	}
	if got := fx.recorder.byName("bundle.integrity.cleanup_completed"); len(got) != 1 {
		t.Fatalf("cleanup events = %d, want 1", len(got))
	}
}

func TestOnProductDeletedCleansReferencingBundles(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	kept := ProductSnapshot{ID: uuid.New(), Name: "Tee", Active: true, PriceCents: 1000}
	fx.catalog.set(kept)
	deleted := uuid.New()

	affected := uuid.New()
	fx.bundles.addBundle(affected,
		BundleLineSnapshot{ProductID: kept.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 1, SubtotalCents: 1000},
		BundleLineSnapshot{ProductID: deleted, Name: "Old", BasePriceCents: 700, Quantity: 1, SubtotalCents: 700},
	)
	unaffected := uuid.New()
	fx.bundles.addBundle(unaffected,
		BundleLineSnapshot{ProductID: kept.ID, Name: "Tee", BasePriceCents: 1000, Quantity: 1, SubtotalCents: 1000},
	)

	if err := fx.sweeper.OnProductDeleted(context.Background(), deleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.bundles.lines[affected]) != 1 {
		t.Fatalf("deleted product's line not cleaned up")
	}
	if len(fx.bundles.lines[unaffected]) != 1 {
		t.Fatalf("unaffected bundle was touched")
	}

	got := fx.recorder.byName("product.reference.orphaned")
	if len(got) != 1 {
		t.Fatalf("orphaned events = %d, want 1", len(got))
	}
	evt := got[0].(events.ProductReferenceOrphaned)
	if evt.ProductID != deleted || len(evt.BundleIDs) != 1 || evt.BundleIDs[0] != affected {
		t.Fatalf("event = %+v, want the affected bundle", evt)
	}
}

func TestOnProductDeactivatedBroadcastsWithoutRemoval(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	deactivated := ProductSnapshot{ID: uuid.New(), Name: "Cap", Active: false, PriceCents: 1500}
	fx.catalog.set(deactivated)

	bundleID := uuid.New()
	fx.bundles.addBundle(bundleID,
		BundleLineSnapshot{ProductID: deactivated.ID, Name: "Cap", BasePriceCents: 1500, Quantity: 1, SubtotalCents: 1500},
	)

	if err := fx.sweeper.OnProductDeactivated(context.Background(), deactivated.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.bundles.lines[bundleID]) != 1 {
		t.Fatalf("deactivation must not remove lines")
	}
	got := fx.recorder.byName("product.reference.invalid")
	if len(got) != 1 {
		t.Fatalf("invalid events = %d, want 1", len(got))
	}
	evt := got[0].(events.ProductReferenceInvalid)
	if evt.ProductID != deactivated.ID || len(evt.BundleIDs) != 1 {
		t.Fatalf("event = %+v, want one affected bundle", evt)
	}
}

func TestSweepAllListFailureKeepsLastReport(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())
	fx.bundles.addBundle(uuid.New())

	if _, err := fx.sweeper.SweepAll(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	before := fx.sweeper.GetLastReport()

	fx.bundles.mu.Lock()
	fx.bundles.listErr = errors.New("database gone")
	fx.bundles.mu.Unlock()

	if _, err := fx.sweeper.SweepAll(context.Background()); err == nil {
		t.Fatalf("expected list failure to be fatal to the sweep")
	}
	after := fx.sweeper.GetLastReport()
	if after == nil || !after.StartedAt.Equal(before.StartedAt) {
		t.Fatalf("failed sweep must leave lastReport unchanged")
	}
}
