// Package integrity implements the cross-domain referential integrity engine
// that keeps bundle aggregates consistent with the live product catalog.
package integrity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductSnapshot is an immutable view of a catalog product at validation time.
type ProductSnapshot struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	PriceCents int64     `json:"priceCents"`
	CategoryID string    `json:"categoryId"`
}

// BundleLineSnapshot is a bundle's recorded view of one product: the
// "expected" state compared against the live catalog.
type BundleLineSnapshot struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	BasePriceCents int64     `json:"basePriceCents"`
	Quantity       int       `json:"quantity"`
	SubtotalCents  int64     `json:"subtotalCents"`
	CategoryID     string    `json:"categoryId"`
}

// IssueType classifies a divergence between a bundle line and the catalog.
type IssueType string

const (
	IssueNotFound        IssueType = "not_found"
	IssueInactive        IssueType = "inactive"
	IssuePriceMismatch   IssueType = "price_mismatch"
	IssueNameChanged     IssueType = "name_changed"
	IssueCategoryChanged IssueType = "category_changed"
	IssueStaleTotal      IssueType = "stale_total"
)

// Severity ranks how serious an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one classified divergence found during validation.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Message     string    `json:"message"`
}

// ValidationResult is produced per product reference.
// IsValid is derived purely from Issues: true iff no issue is an error.
type ValidationResult struct {
	IsValid         bool             `json:"isValid"`
	ProductID       uuid.UUID        `json:"productId"`
	Exists          bool             `json:"exists"`
	IsActive        bool             `json:"isActive"`
	Snapshot        *ProductSnapshot `json:"snapshot,omitempty"`
	Issues          []Issue          `json:"issues"`
	Recommendations []string         `json:"recommendations"`
}

// ActionType identifies a remediation action.
type ActionType string

const (
	ActionRemoveOrphan ActionType = "remove_orphan"
	ActionUpdatePrice  ActionType = "update_price"
	ActionUpdateName   ActionType = "update_name"
	ActionReactivate   ActionType = "reactivate"
	ActionRecalcTotal  ActionType = "recalc_total"
	ActionNotify       ActionType = "notify"
)

// Priority ranks remediation actions.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Action is one remediation step derived from validation issues.
type Action struct {
	Type           ActionType `json:"type"`
	ProductID      uuid.UUID  `json:"productId"`
	ProductName    string     `json:"productName"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority"`
	AutoExecutable bool       `json:"autoExecutable"`
}

// BundleValidationReport aggregates validation over one bundle.
// IsValid holds iff both InvalidResults and OrphanedResults are empty.
type BundleValidationReport struct {
	BundleID       uuid.UUID          `json:"bundleId"`
	IsValid        bool               `json:"isValid"`
	TotalProducts  int                `json:"totalProducts"`
	ValidCount     int                `json:"validCount"`
	IssueCount     int                `json:"issueCount"`
	InvalidResults []ValidationResult `json:"invalidResults"`
	OrphanedResults []ValidationResult `json:"orphanedResults"`
	Actions        []Action           `json:"actions"`
	ValidatedAt    time.Time          `json:"validatedAt"`
}

// SweepReport aggregates an integrity sweep over many bundles.
type SweepReport struct {
	StartedAt        time.Time   `json:"startedAt"`
	TotalBundles     int         `json:"totalBundles"`
	BundlesChecked   int         `json:"bundlesChecked"`
	BundlesWithIssues int        `json:"bundlesWithIssues"`
	IssuesFound      int         `json:"issuesFound"`
	ActionsExecuted  int         `json:"actionsExecuted"`
	OrphansRemoved   int         `json:"orphansRemoved"`
	BundlesFixed     []uuid.UUID `json:"bundlesFixed"`
	CriticalIssues   []string    `json:"criticalIssues"`
	TerminatedEarly  bool        `json:"terminatedEarly"`
	DurationMs       int64       `json:"durationMs"`
}

// Options configures validation and sweep behavior. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	StrictValidation      bool
	AllowInactiveProducts bool
	CacheTimeout          time.Duration
	AutoCorrectPrices     bool
	AutoCorrectNames      bool
	AutoFix               bool
	DryRun                bool
	BatchSize             int
	MaxConcurrency        int
}

// DefaultOptions mirrors the engine's documented defaults.
func DefaultOptions() Options {
	return Options{
		StrictValidation:      true,
		AllowInactiveProducts: false,
		CacheTimeout:          5 * time.Minute,
		AutoCorrectPrices:     true,
		AutoCorrectNames:      true,
		AutoFix:               true,
		DryRun:                false,
		BatchSize:             10,
		MaxConcurrency:        3,
	}
}

// CatalogSource is the minimal contract this engine needs from the product
// catalog. Not-found is signaled with an apperr.KindNotFound error; any other
// error is treated as transient.
type CatalogSource interface {
	GetProduct(ctx context.Context, id uuid.UUID) (ProductSnapshot, error)
}

// BundleSource is the minimal contract this engine needs from the bundle
// catalog.
type BundleSource interface {
	ListBundleIDs(ctx context.Context) ([]uuid.UUID, error)
	GetBundleLines(ctx context.Context, bundleID uuid.UUID) ([]BundleLineSnapshot, error)
	RemoveLine(ctx context.Context, bundleID, productID uuid.UUID) (bool, error)
	UpdateLinePrice(ctx context.Context, bundleID, productID uuid.UUID, priceCents int64) error
	UpdateLineName(ctx context.Context, bundleID, productID uuid.UUID, name string) error
	RecalculateTotal(ctx context.Context, bundleID uuid.UUID) error
}
