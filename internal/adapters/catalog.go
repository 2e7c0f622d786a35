// Package adapters wires bounded contexts together without letting their
// packages import each other directly. Each adapter translates one module's
// repository model into the narrow interface another module consumes.
package adapters

import (
	"context"

	"github.com/google/uuid"

	bundlesvc "campaignmerch_backend/internal/bundles/service"
	catalogrepo "campaignmerch_backend/internal/catalog/repository"
	"campaignmerch_backend/internal/integrity"
	"campaignmerch_backend/internal/quotes"
)

// CatalogSnapshotSource adapts the catalog repository to the integrity
// engine's product lookup contract.
type CatalogSnapshotSource struct {
	repo catalogrepo.Repository
}

func NewCatalogSnapshotSource(repo catalogrepo.Repository) *CatalogSnapshotSource {
	return &CatalogSnapshotSource{repo: repo}
}

var _ integrity.CatalogSource = (*CatalogSnapshotSource)(nil)

// GetProduct returns the live snapshot of a product. Not-found errors pass
// through unchanged so the integrity cache can record them as negative hits.
func (a *CatalogSnapshotSource) GetProduct(ctx context.Context, id uuid.UUID) (integrity.ProductSnapshot, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return integrity.ProductSnapshot{}, err
	}
	return integrity.ProductSnapshot{
		ID:         p.ID,
		Name:       p.Name,
		Active:     p.Active,
		PriceCents: p.PriceCents,
		CategoryID: derefString(p.CategoryID),
	}, nil
}

// CatalogReader adapts the catalog repository to the bundle module's product
// lookup contract.
type CatalogReader struct {
	repo catalogrepo.Repository
}

func NewCatalogReader(repo catalogrepo.Repository) *CatalogReader {
	return &CatalogReader{repo: repo}
}

var _ bundlesvc.CatalogReader = (*CatalogReader)(nil)

func (a *CatalogReader) GetProduct(ctx context.Context, id uuid.UUID) (bundlesvc.ProductInfo, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return bundlesvc.ProductInfo{}, err
	}
	return bundlesvc.ProductInfo{
		ID:         p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Active:     p.Active,
		CategoryID: p.CategoryID,
	}, nil
}

// QuoteProductSource adapts the catalog repository to the quote calculator's
// product lookup contract.
type QuoteProductSource struct {
	repo catalogrepo.Repository
}

func NewQuoteProductSource(repo catalogrepo.Repository) *QuoteProductSource {
	return &QuoteProductSource{repo: repo}
}

var _ quotes.ProductSource = (*QuoteProductSource)(nil)

func (a *QuoteProductSource) GetProduct(ctx context.Context, id uuid.UUID) (quotes.Product, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return quotes.Product{}, err
	}
	return quotes.Product{
		ID:             p.ID,
		Name:           p.Name,
		BasePriceCents: p.PriceCents,
		Active:         p.Active,
	}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
