package transport

import "github.com/google/uuid"

// CreateProductRequest contains data for creating a new product.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Reference   string   `json:"reference" validate:"required,min=1,max=64"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents  int64    `json:"priceCents" validate:"required,gt=0"`
	CategoryID  *string  `json:"categoryId,omitempty" validate:"omitempty,max=64"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// UpdateProductRequest contains data for updating an existing product.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents  *int64   `json:"priceCents,omitempty" validate:"omitempty,gt=0"`
	CategoryID  *string  `json:"categoryId,omitempty" validate:"omitempty,max=64"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// ListProductsRequest filters product listings.
type ListProductsRequest struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Reference   string    `json:"reference"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Active      bool      `json:"active"`
	CategoryID  *string   `json:"categoryId,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

// ProductListResponse wraps a paginated list of products.
type ProductListResponse struct {
	Items    []ProductResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}
