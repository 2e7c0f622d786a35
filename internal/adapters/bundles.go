package adapters

import (
	"context"

	"github.com/google/uuid"

	bundlerepo "campaignmerch_backend/internal/bundles/repository"
	"campaignmerch_backend/internal/integrity"
)

// BundleLineSource adapts the bundles repository to the integrity engine's
// bundle contract.
type BundleLineSource struct {
	repo bundlerepo.Repository
}

func NewBundleLineSource(repo bundlerepo.Repository) *BundleLineSource {
	return &BundleLineSource{repo: repo}
}

var _ integrity.BundleSource = (*BundleLineSource)(nil)

func (a *BundleLineSource) ListBundleIDs(ctx context.Context) ([]uuid.UUID, error) {
	return a.repo.ListIDs(ctx)
}

func (a *BundleLineSource) GetBundleLines(ctx context.Context, bundleID uuid.UUID) ([]integrity.BundleLineSnapshot, error) {
	lines, err := a.repo.GetLines(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]integrity.BundleLineSnapshot, 0, len(lines))
	for _, l := range lines {
		snapshots = append(snapshots, integrity.BundleLineSnapshot{
			ProductID:      l.ProductID,
			Name:           l.Name,
			BasePriceCents: l.BasePriceCents,
			Quantity:       l.Quantity,
			SubtotalCents:  l.SubtotalCents,
			CategoryID:     derefString(l.CategoryID),
		})
	}
	return snapshots, nil
}

func (a *BundleLineSource) RemoveLine(ctx context.Context, bundleID, productID uuid.UUID) (bool, error) {
	return a.repo.RemoveLine(ctx, bundleID, productID)
}

func (a *BundleLineSource) UpdateLinePrice(ctx context.Context, bundleID, productID uuid.UUID, priceCents int64) error {
	return a.repo.UpdateLinePrice(ctx, bundleID, productID, priceCents)
}

func (a *BundleLineSource) UpdateLineName(ctx context.Context, bundleID, productID uuid.UUID, name string) error {
	return a.repo.UpdateLineName(ctx, bundleID, productID, name)
}

func (a *BundleLineSource) RecalculateTotal(ctx context.Context, bundleID uuid.UUID) error {
	_, err := a.repo.RecalculateTotal(ctx, bundleID)
	return err
}
