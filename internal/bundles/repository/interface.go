package repository

import (
	"context"

	"github.com/google/uuid"
)

// Bundle is a curated named set of catalog products sold as one offer.
type Bundle struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Description     *string   `db:"description"`
	DiscountPercent int       `db:"discount_percent"`
	TotalCents      int64     `db:"total_cents"`
	Active          bool      `db:"active"`
	CreatedAt       string    `db:"created_at"`
	UpdatedAt       string    `db:"updated_at"`
}

// Line is one product entry in a bundle, with the product state recorded at
// the time it was added. The recorded name and price can drift from the
// catalog; the integrity engine reconciles them.
type Line struct {
	BundleID       uuid.UUID `db:"bundle_id"`
	ProductID      uuid.UUID `db:"product_id"`
	Name           string    `db:"name"`
	BasePriceCents int64     `db:"base_price_cents"`
	Quantity       int       `db:"quantity"`
	SubtotalCents  int64     `db:"subtotal_cents"`
	CategoryID     *string   `db:"category_id"`
}

// CreateParams contains parameters for creating a bundle.
type CreateParams struct {
	Name            string
	Description     *string
	DiscountPercent int
}

// UpdateParams contains parameters for updating a bundle.
// Nil fields are left unchanged.
type UpdateParams struct {
	ID              uuid.UUID
	Name            *string
	Description     *string
	DiscountPercent *int
}

// AddLineParams contains parameters for adding a product line to a bundle.
type AddLineParams struct {
	BundleID       uuid.UUID
	ProductID      uuid.UUID
	Name           string
	BasePriceCents int64
	Quantity       int
	CategoryID     *string
}

// BundleReader provides read operations for bundles.
type BundleReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Bundle, error)
	List(ctx context.Context) ([]Bundle, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetLines(ctx context.Context, bundleID uuid.UUID) ([]Line, error)
}

// BundleWriter provides write operations for bundles and their lines.
type BundleWriter interface {
	Create(ctx context.Context, params CreateParams) (Bundle, error)
	Update(ctx context.Context, params UpdateParams) (Bundle, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddLine(ctx context.Context, params AddLineParams) (Line, error)
	RemoveLine(ctx context.Context, bundleID, productID uuid.UUID) (bool, error)
	UpdateLineQuantity(ctx context.Context, bundleID, productID uuid.UUID, quantity int) error
	UpdateLinePrice(ctx context.Context, bundleID, productID uuid.UUID, priceCents int64) error
	UpdateLineName(ctx context.Context, bundleID, productID uuid.UUID, name string) error
	RecalculateTotal(ctx context.Context, bundleID uuid.UUID) (int64, error)
}

// Repository combines all bundle repository operations.
type Repository interface {
	BundleReader
	BundleWriter
}
