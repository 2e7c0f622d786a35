// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"campaignmerch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Catalog Domain Events
// =============================================================================

// ProductCreated is published when a new catalog product is created.
type ProductCreated struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
}

func (e ProductCreated) EventName() string { return "catalog.product.created" }

// ProductUpdated is published when a catalog product is updated.
type ProductUpdated struct {
	BaseEvent
	ProductID    uuid.UUID `json:"productId"`
	Name         string    `json:"name"`
	PriceChanged bool      `json:"priceChanged"`
	NameChanged  bool      `json:"nameChanged"`
}

func (e ProductUpdated) EventName() string { return "catalog.product.updated" }

// ProductPriceChanged is published alongside ProductUpdated when the price moved.
type ProductPriceChanged struct {
	BaseEvent
	ProductID     uuid.UUID `json:"productId"`
	OldPriceCents int64     `json:"oldPriceCents"`
	NewPriceCents int64     `json:"newPriceCents"`
}

func (e ProductPriceChanged) EventName() string { return "catalog.product.price_changed" }

// ProductDeleted is published when a catalog product is removed out-of-band.
// The integrity sweeper reacts by cleaning orphaned bundle lines.
type ProductDeleted struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
}

func (e ProductDeleted) EventName() string { return "catalog.product.deleted" }

// ProductDeactivated is published when a product's active flag is cleared.
// Deactivation may be reversible, so no destructive cleanup follows.
type ProductDeactivated struct {
	BaseEvent
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
}

func (e ProductDeactivated) EventName() string { return "catalog.product.deactivated" }

// =============================================================================
// Bundle Domain Events
// =============================================================================

// BundleUpdated is published when a bundle's own fields change.
type BundleUpdated struct {
	BaseEvent
	BundleID uuid.UUID `json:"bundleId"`
}

func (e BundleUpdated) EventName() string { return "bundles.bundle.updated" }

// BundleLineRemoved is published when a product line is removed from a bundle.
type BundleLineRemoved struct {
	BaseEvent
	BundleID  uuid.UUID `json:"bundleId"`
	ProductID uuid.UUID `json:"productId"`
}

func (e BundleLineRemoved) EventName() string { return "bundles.line.removed" }

// BundleRecalculated is published after a bundle's totals are recomputed.
type BundleRecalculated struct {
	BaseEvent
	BundleID      uuid.UUID `json:"bundleId"`
	NewTotalCents int64     `json:"newTotalCents"`
}

func (e BundleRecalculated) EventName() string { return "bundles.bundle.recalculated" }

// =============================================================================
// Integrity Domain Events
// =============================================================================

// ProductReferenceInvalid is published when bundles reference a product that
// exists but should no longer be sold (e.g. deactivated).
type ProductReferenceInvalid struct {
	BaseEvent
	ProductID uuid.UUID   `json:"productId"`
	BundleIDs []uuid.UUID `json:"bundleIds"`
	Reason    string      `json:"reason"`
}

func (e ProductReferenceInvalid) EventName() string { return "product.reference.invalid" }

// ProductReferenceOrphaned is published when bundles reference a product that
// no longer exists in the catalog.
type ProductReferenceOrphaned struct {
	BaseEvent
	ProductID uuid.UUID   `json:"productId"`
	BundleIDs []uuid.UUID `json:"bundleIds"`
	Reason    string      `json:"reason"`
}

func (e ProductReferenceOrphaned) EventName() string { return "product.reference.orphaned" }

// BundleIntegrityIssuesFound is published when a bundle check finds issues.
type BundleIntegrityIssuesFound struct {
	BaseEvent
	BundleID       uuid.UUID   `json:"bundleId"`
	Issues         []string    `json:"issues"`
	OrphanedIDs    []uuid.UUID `json:"orphanedProductIds"`
	CriticalIssues int         `json:"criticalIssues"`
}

func (e BundleIntegrityIssuesFound) EventName() string { return "bundle.integrity.issues_found" }

// BundleCleanupCompleted is published after orphaned lines were removed from a bundle.
type BundleCleanupCompleted struct {
	BaseEvent
	BundleID   uuid.UUID   `json:"bundleId"`
	RemovedIDs []uuid.UUID `json:"removedProductIds"`
}

func (e BundleCleanupCompleted) EventName() string { return "bundle.integrity.cleanup_completed" }
