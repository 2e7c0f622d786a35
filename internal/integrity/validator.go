package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/logger"
)

// Validator checks bundle lines against the live catalog and reports every
// divergence as a typed issue. Product lookups go through the reference cache
// so a sweep over many bundles hits the catalog at most once per product.
type Validator struct {
	cache   *ReferenceCache
	catalog CatalogSource
	planner *ActionPlanner
	opts    Options
	logger  *logger.Logger
}

func NewValidator(cache *ReferenceCache, catalog CatalogSource, opts Options, log *logger.Logger) *Validator {
	return &Validator{
		cache:   cache,
		catalog: catalog,
		planner: NewActionPlanner(opts),
		opts:    opts,
		logger:  log,
	}
}

// resolve fetches a product snapshot through the cache. The cache mutex is
// never held across the catalog call; on a miss we fetch first and cache the
// outcome afterwards, negative results included.
func (v *Validator) resolve(ctx context.Context, productID uuid.UUID) (ProductSnapshot, bool, error) {
	if snapshot, found, ok := v.cache.Get(productID); ok {
		return snapshot, found, nil
	}

	snapshot, err := v.catalog.GetProduct(ctx, productID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			v.cache.PutNotFound(productID)
			return ProductSnapshot{}, false, nil
		}
		return ProductSnapshot{}, false, err
	}

	v.cache.Put(snapshot)
	return snapshot, true, nil
}

// ValidateReference checks that a single product reference still resolves to
// a live, active product.
func (v *Validator) ValidateReference(ctx context.Context, productID uuid.UUID) (ValidationResult, error) {
	result := ValidationResult{
		IsValid:   true,
		ProductID: productID,
	}

	snapshot, found, err := v.resolve(ctx, productID)
	if err != nil {
		return ValidationResult{}, err
	}

	if !found {
		result.IsValid = false
		result.Issues = append(result.Issues, Issue{
			Type:      IssueNotFound,
			Severity:  SeverityError,
			ProductID: productID,
			Message:   "product no longer exists in the catalog",
		})
		result.Recommendations = append(result.Recommendations, "remove this product from the bundle")
		return result, nil
	}

	result.Exists = true
	result.IsActive = snapshot.Active
	result.Snapshot = &snapshot

	if !snapshot.Active && !v.opts.AllowInactiveProducts {
		severity := SeverityWarning
		if v.opts.StrictValidation {
			severity = SeverityError
			result.IsValid = false
		}
		result.Issues = append(result.Issues, Issue{
			Type:        IssueInactive,
			Severity:    severity,
			ProductID:   productID,
			ProductName: snapshot.Name,
			Message:     fmt.Sprintf("product %q is deactivated", snapshot.Name),
		})
		result.Recommendations = append(result.Recommendations, "reactivate the product or remove it from the bundle")
	}

	return result, nil
}

// ValidateBundleLine validates a line's product reference and then compares
// the line's recorded price, name, category and subtotal against the live
// snapshot.
func (v *Validator) ValidateBundleLine(ctx context.Context, line BundleLineSnapshot) (ValidationResult, error) {
	result, err := v.ValidateReference(ctx, line.ProductID)
	if err != nil {
		return ValidationResult{}, err
	}
	if result.Snapshot == nil {
		return result, nil
	}
	live := *result.Snapshot

	if line.BasePriceCents != live.PriceCents {
		issue := Issue{
			Type:        IssuePriceMismatch,
			Severity:    SeverityWarning,
			ProductID:   line.ProductID,
			ProductName: live.Name,
			Message: fmt.Sprintf("bundle records price %d but catalog price is %d",
				line.BasePriceCents, live.PriceCents),
		}
		result.Issues = append(result.Issues, issue)
		if v.opts.AutoCorrectPrices {
			result.Recommendations = append(result.Recommendations, "price will be corrected automatically")
		} else {
			result.Recommendations = append(result.Recommendations, "update the bundle line's price manually")
		}
	}

	if line.Name != "" && line.Name != live.Name {
		result.Issues = append(result.Issues, Issue{
			Type:        IssueNameChanged,
			Severity:    SeverityInfo,
			ProductID:   line.ProductID,
			ProductName: live.Name,
			Message:     fmt.Sprintf("product renamed from %q to %q", line.Name, live.Name),
		})
	}

	if line.CategoryID != "" && live.CategoryID != "" && line.CategoryID != live.CategoryID {
		result.Issues = append(result.Issues, Issue{
			Type:        IssueCategoryChanged,
			Severity:    SeverityInfo,
			ProductID:   line.ProductID,
			ProductName: live.Name,
			Message:     "product moved to a different category",
		})
	}

	if expected := line.BasePriceCents * int64(line.Quantity); line.SubtotalCents != expected {
		result.Issues = append(result.Issues, Issue{
			Type:        IssueStaleTotal,
			Severity:    SeverityInfo,
			ProductID:   line.ProductID,
			ProductName: live.Name,
			Message: fmt.Sprintf("line subtotal %d does not match price*quantity %d",
				line.SubtotalCents, expected),
		})
	}

	result.IsValid = !hasErrorIssue(result.Issues)
	return result, nil
}

// ValidateBundle validates every line concurrently and assembles the full
// report, including the remediation plan. A single line's validation failing
// (a transient catalog error, say) is reported for that line only and never
// aborts the rest.
func (v *Validator) ValidateBundle(ctx context.Context, bundleID uuid.UUID, lines []BundleLineSnapshot) (BundleValidationReport, error) {
	report := BundleValidationReport{
		BundleID:      bundleID,
		IsValid:       true,
		TotalProducts: len(lines),
		ValidatedAt:   time.Now(),
	}
	if len(lines) == 0 {
		return report, nil
	}

	type lineResult struct {
		line   BundleLineSnapshot
		result ValidationResult
	}
	results := make([]lineResult, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		g.Go(func() error {
			res, err := v.ValidateBundleLine(gctx, line)
			if err != nil {
				v.logger.Warn("bundle line validation failed",
					"bundleId", bundleID,
					"productId", line.ProductID,
					"error", err)
				res = ValidationResult{
					ProductID: line.ProductID,
					Issues: []Issue{{
						Type:        IssueNotFound,
						Severity:    SeverityError,
						ProductID:   line.ProductID,
						ProductName: line.Name,
						Message:     fmt.Sprintf("could not verify product: %v", err),
					}},
					Recommendations: []string{"retry validation once the catalog is reachable"},
				}
			}
			results[i] = lineResult{line: line, result: res}
			return nil
		})
	}
	// Workers never return errors; failures are folded into per-line results.
	_ = g.Wait()

	planned := make([]LineResult, 0, len(results))
	for _, lr := range results {
		planned = append(planned, LineResult{Line: lr.line, Result: lr.result})
		report.IssueCount += len(lr.result.Issues)
		switch {
		case lr.result.IsValid:
			report.ValidCount++
		case !lr.result.Exists:
			report.OrphanedResults = append(report.OrphanedResults, lr.result)
		default:
			report.InvalidResults = append(report.InvalidResults, lr.result)
		}
	}
	report.IsValid = len(report.InvalidResults) == 0 && len(report.OrphanedResults) == 0
	report.Actions = v.planner.Prioritize(v.planner.Plan(planned))
	return report, nil
}

func hasErrorIssue(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
