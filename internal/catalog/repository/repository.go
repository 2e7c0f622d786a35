package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignmerch_backend/platform/apperr"
)

const productNotFoundMessage = "product not found"

const productColumns = `id, name, reference, description, price_cents, active, category_id, tags, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new products repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a product by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM merch_products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// GetByReference retrieves a product by its catalog reference code.
func (r *Repo) GetByReference(ctx context.Context, reference string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM merch_products WHERE reference = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("get product by reference: %w", err)
	}
	return p, nil
}

// List retrieves products with optional search, active filter and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var activeParam interface{}
	if params.Active != nil {
		activeParam = *params.Active
	}

	countQuery := `
		SELECT COUNT(*)
		FROM merch_products
		WHERE ($1::text IS NULL OR name ILIKE $1 OR reference ILIKE $1)
			AND ($2::boolean IS NULL OR active = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, searchParam, activeParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT ` + productColumns + `
		FROM merch_products
		WHERE ($1::text IS NULL OR name ILIKE $1 OR reference ILIKE $1)
			AND ($2::boolean IS NULL OR active = $2)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, searchParam, activeParam, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActive retrieves only active products ordered by name.
func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM merch_products WHERE active = true ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Exists checks if a product exists by ID.
func (r *Repo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM merch_products WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}

// Create creates a new product.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Product, error) {
	query := `
		INSERT INTO merch_products (name, reference, description, price_cents, category_id, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query,
		params.Name, params.Reference, params.Description, params.PriceCents, params.CategoryID, params.Tags,
	))
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update updates an existing product. Nil params leave the column unchanged.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Product, error) {
	query := `
		UPDATE merch_products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			category_id = COALESCE($5, category_id),
			tags = COALESCE($6, tags),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Description, params.PriceCents, params.CategoryID, params.Tags,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Delete removes a product by ID (hard delete).
// Use SetActive(false) for soft delete.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM merch_products WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(productNotFoundMessage)
	}
	return nil
}

// SetActive sets the active flag for a product.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE merch_products SET active = $2, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(productNotFoundMessage)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&p.ID, &p.Name, &p.Reference, &p.Description, &p.PriceCents,
		&p.Active, &p.CategoryID, &p.Tags, &createdAt, &updatedAt,
	)
	if err != nil {
		return Product{}, err
	}

	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var results []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return results, nil
}
