package repository

import (
	"context"

	"github.com/google/uuid"
)

// Product represents one merchandise item in the campaign catalog.
type Product struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Reference   string    `db:"reference"`
	Description *string   `db:"description"`
	PriceCents  int64     `db:"price_cents"`
	Active      bool      `db:"active"`
	CategoryID  *string   `db:"category_id"`
	Tags        []string  `db:"tags"`
	CreatedAt   string    `db:"created_at"`
	UpdatedAt   string    `db:"updated_at"`
}

// CreateParams contains parameters for creating a product.
type CreateParams struct {
	Name        string
	Reference   string
	Description *string
	PriceCents  int64
	CategoryID  *string
	Tags        []string
}

// UpdateParams contains parameters for updating a product.
// Nil fields are left unchanged.
type UpdateParams struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	PriceCents  *int64
	CategoryID  *string
	Tags        []string
}

// ListParams filters and paginates product listings.
type ListParams struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}

// ProductReader provides read operations for products.
type ProductReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetByReference(ctx context.Context, reference string) (Product, error)
	List(ctx context.Context, params ListParams) ([]Product, int, error)
	ListActive(ctx context.Context) ([]Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProductWriter provides write operations for products.
type ProductWriter interface {
	Create(ctx context.Context, params CreateParams) (Product, error)
	Update(ctx context.Context, params UpdateParams) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Repository combines all product repository operations.
type Repository interface {
	ProductReader
	ProductWriter
}
