package transport

import "github.com/google/uuid"

// CreateBundleRequest contains data for creating a new bundle.
type CreateBundleRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=200"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	DiscountPercent int     `json:"discountPercent" validate:"min=0,max=90"`
}

// UpdateBundleRequest contains data for updating an existing bundle.
type UpdateBundleRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	DiscountPercent *int    `json:"discountPercent,omitempty" validate:"omitempty,min=0,max=90"`
}

// AddLineRequest adds a product to a bundle.
type AddLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

// UpdateLineQuantityRequest changes a line's quantity.
type UpdateLineQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

// LineResponse represents one bundle line in API responses.
type LineResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	BasePriceCents int64     `json:"basePriceCents"`
	Quantity       int       `json:"quantity"`
	SubtotalCents  int64     `json:"subtotalCents"`
	CategoryID     *string   `json:"categoryId,omitempty"`
}

// BundleResponse represents a bundle in API responses.
type BundleResponse struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Description     *string        `json:"description,omitempty"`
	DiscountPercent int            `json:"discountPercent"`
	TotalCents      int64          `json:"totalCents"`
	Active          bool           `json:"active"`
	Lines           []LineResponse `json:"lines,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

// BundleListResponse wraps a list of bundles.
type BundleListResponse struct {
	Items []BundleResponse `json:"items"`
	Total int              `json:"total"`
}
