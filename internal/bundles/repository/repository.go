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

const (
	bundleNotFoundMessage = "bundle not found"
	lineNotFoundMessage   = "bundle line not found"
)

const bundleColumns = `id, name, description, discount_percent, total_cents, active, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new bundles repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a bundle by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM merch_bundles WHERE id = $1`

	b, err := scanBundle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, apperr.NotFound(bundleNotFoundMessage)
		}
		return Bundle{}, fmt.Errorf("get bundle by id: %w", err)
	}
	return b, nil
}

// List retrieves all bundles ordered by name.
func (r *Repo) List(ctx context.Context) ([]Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM merch_bundles ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var results []Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bundle: %w", err)
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundles: %w", err)
	}
	return results, nil
}

// ListIDs retrieves every bundle ID. Used by integrity sweeps.
func (r *Repo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM merch_bundles ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bundle ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bundle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundle ids: %w", err)
	}
	return ids, nil
}

// GetLines retrieves all product lines of a bundle in insertion order.
func (r *Repo) GetLines(ctx context.Context, bundleID uuid.UUID) ([]Line, error) {
	query := `
		SELECT bundle_id, product_id, name, base_price_cents, quantity, subtotal_cents, category_id
		FROM merch_bundle_products
		WHERE bundle_id = $1
		ORDER BY added_at ASC`

	rows, err := r.pool.Query(ctx, query, bundleID)
	if err != nil {
		return nil, fmt.Errorf("get bundle lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.BundleID, &l.ProductID, &l.Name, &l.BasePriceCents, &l.Quantity, &l.SubtotalCents, &l.CategoryID); err != nil {
			return nil, fmt.Errorf("scan bundle line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundle lines: %w", err)
	}
	return lines, nil
}

// Create creates a new bundle.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Bundle, error) {
	query := `
		INSERT INTO merch_bundles (name, description, discount_percent)
		VALUES ($1, $2, $3)
		RETURNING ` + bundleColumns

	b, err := scanBundle(r.pool.QueryRow(ctx, query, params.Name, params.Description, params.DiscountPercent))
	if err != nil {
		return Bundle{}, fmt.Errorf("create bundle: %w", err)
	}
	return b, nil
}

// Update updates an existing bundle. Nil params leave the column unchanged.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Bundle, error) {
	query := `
		UPDATE merch_bundles SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			discount_percent = COALESCE($4, discount_percent),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + bundleColumns

	b, err := scanBundle(r.pool.QueryRow(ctx, query, params.ID, params.Name, params.Description, params.DiscountPercent))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, apperr.NotFound(bundleNotFoundMessage)
		}
		return Bundle{}, fmt.Errorf("update bundle: %w", err)
	}
	return b, nil
}

// Delete removes a bundle and its lines.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM merch_bundles WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(bundleNotFoundMessage)
	}
	return nil
}

// AddLine adds a product line to a bundle. The subtotal is computed from the
// recorded price and quantity at insert time.
func (r *Repo) AddLine(ctx context.Context, params AddLineParams) (Line, error) {
	query := `
		INSERT INTO merch_bundle_products (bundle_id, product_id, name, base_price_cents, quantity, subtotal_cents, category_id)
		VALUES ($1, $2, $3, $4, $5, $4 * $5, $6)
		ON CONFLICT (bundle_id, product_id) DO UPDATE SET
			quantity = merch_bundle_products.quantity + EXCLUDED.quantity,
			subtotal_cents = merch_bundle_products.base_price_cents * (merch_bundle_products.quantity + EXCLUDED.quantity)
		RETURNING bundle_id, product_id, name, base_price_cents, quantity, subtotal_cents, category_id`

	var l Line
	err := r.pool.QueryRow(ctx, query,
		params.BundleID, params.ProductID, params.Name, params.BasePriceCents, params.Quantity, params.CategoryID,
	).Scan(&l.BundleID, &l.ProductID, &l.Name, &l.BasePriceCents, &l.Quantity, &l.SubtotalCents, &l.CategoryID)
	if err != nil {
		return Line{}, fmt.Errorf("add bundle line: %w", err)
	}
	return l, nil
}

// RemoveLine removes a product line from a bundle. Returns false when no such
// line existed.
func (r *Repo) RemoveLine(ctx context.Context, bundleID, productID uuid.UUID) (bool, error) {
	query := `DELETE FROM merch_bundle_products WHERE bundle_id = $1 AND product_id = $2`

	result, err := r.pool.Exec(ctx, query, bundleID, productID)
	if err != nil {
		return false, fmt.Errorf("remove bundle line: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdateLineQuantity changes a line's quantity and refreshes its subtotal.
func (r *Repo) UpdateLineQuantity(ctx context.Context, bundleID, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE merch_bundle_products
		SET quantity = $3, subtotal_cents = base_price_cents * $3
		WHERE bundle_id = $1 AND product_id = $2`

	result, err := r.pool.Exec(ctx, query, bundleID, productID, quantity)
	if err != nil {
		return fmt.Errorf("update line quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(lineNotFoundMessage)
	}
	return nil
}

// UpdateLinePrice corrects a line's recorded price and refreshes its subtotal.
func (r *Repo) UpdateLinePrice(ctx context.Context, bundleID, productID uuid.UUID, priceCents int64) error {
	query := `
		UPDATE merch_bundle_products
		SET base_price_cents = $3, subtotal_cents = $3 * quantity
		WHERE bundle_id = $1 AND product_id = $2`

	result, err := r.pool.Exec(ctx, query, bundleID, productID, priceCents)
	if err != nil {
		return fmt.Errorf("update line price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(lineNotFoundMessage)
	}
	return nil
}

// UpdateLineName corrects a line's recorded product name.
func (r *Repo) UpdateLineName(ctx context.Context, bundleID, productID uuid.UUID, name string) error {
	query := `
		UPDATE merch_bundle_products
		SET name = $3
		WHERE bundle_id = $1 AND product_id = $2`

	result, err := r.pool.Exec(ctx, query, bundleID, productID, name)
	if err != nil {
		return fmt.Errorf("update line name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(lineNotFoundMessage)
	}
	return nil
}

// RecalculateTotal refreshes every line subtotal and the bundle total, with
// the bundle discount applied, in one transaction. Returns the new total.
func (r *Repo) RecalculateTotal(ctx context.Context, bundleID uuid.UUID) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin recalculate: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE merch_bundle_products
		SET subtotal_cents = base_price_cents * quantity
		WHERE bundle_id = $1`, bundleID); err != nil {
		return 0, fmt.Errorf("refresh line subtotals: %w", err)
	}

	query := `
		UPDATE merch_bundles b
		SET total_cents = (
				SELECT COALESCE(SUM(subtotal_cents), 0)
				FROM merch_bundle_products
				WHERE bundle_id = b.id
			) * (100 - b.discount_percent) / 100,
			updated_at = now()
		WHERE b.id = $1
		RETURNING b.total_cents`

	var total int64
	if err := tx.QueryRow(ctx, query, bundleID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(bundleNotFoundMessage)
		}
		return 0, fmt.Errorf("recalculate bundle total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit recalculate: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBundle(row rowScanner) (Bundle, error) {
	var b Bundle
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.DiscountPercent, &b.TotalCents,
		&b.Active, &createdAt, &updatedAt,
	)
	if err != nil {
		return Bundle{}, err
	}

	b.CreatedAt = createdAt.Format(time.RFC3339)
	b.UpdatedAt = updatedAt.Format(time.RFC3339)
	return b, nil
}
