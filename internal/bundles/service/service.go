package service

import (
	"context"

	"github.com/google/uuid"

	"campaignmerch_backend/internal/bundles/repository"
	"campaignmerch_backend/internal/bundles/transport"
	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/logger"
)

// ProductInfo is the slice of catalog state a bundle records per line.
type ProductInfo struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
	Active     bool
	CategoryID *string
}

// CatalogReader is the bundle module's view of the product catalog. The
// concrete implementation lives in the adapters package to keep the two
// bounded contexts decoupled.
type CatalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (ProductInfo, error)
}

// Service provides business logic for product bundles.
type Service struct {
	repo    repository.Repository
	catalog CatalogReader
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new bundles service.
func New(repo repository.Repository, catalog CatalogReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, bus: bus, log: log}
}

// GetByID retrieves a bundle with its lines.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.BundleResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BundleResponse{}, err
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return transport.BundleResponse{}, err
	}
	return toResponse(b, lines), nil
}

// List retrieves all bundles without lines.
func (s *Service) List(ctx context.Context) (transport.BundleListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return transport.BundleListResponse{}, err
	}

	responses := make([]transport.BundleResponse, 0, len(items))
	for _, b := range items {
		responses = append(responses, toResponse(b, nil))
	}
	return transport.BundleListResponse{Items: responses, Total: len(items)}, nil
}

// Create creates a new empty bundle.
func (s *Service) Create(ctx context.Context, req transport.CreateBundleRequest) (transport.BundleResponse, error) {
	b, err := s.repo.Create(ctx, repository.CreateParams{
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		return transport.BundleResponse{}, err
	}

	s.log.Info("bundle created", "id", b.ID, "name", b.Name)
	return toResponse(b, nil), nil
}

// Update updates a bundle's own fields. A discount change invalidates the
// stored total, so it is recalculated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateBundleRequest) (transport.BundleResponse, error) {
	b, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		return transport.BundleResponse{}, err
	}

	if req.DiscountPercent != nil {
		if _, err := s.RecalculateTotal(ctx, id); err != nil {
			return transport.BundleResponse{}, err
		}
		b, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return transport.BundleResponse{}, err
		}
	}

	s.publish(ctx, events.BundleUpdated{BaseEvent: events.NewBaseEvent(), BundleID: id})

	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return transport.BundleResponse{}, err
	}
	return toResponse(b, lines), nil
}

// Delete removes a bundle and all its lines.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("bundle deleted", "id", id)
	return nil
}

// AddLine adds a product to a bundle, recording the product's current name,
// price and category on the line. Inactive products cannot be added.
func (s *Service) AddLine(ctx context.Context, bundleID uuid.UUID, req transport.AddLineRequest) (transport.BundleResponse, error) {
	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return transport.BundleResponse{}, err
	}
	if !product.Active {
		return transport.BundleResponse{}, apperr.Validation("cannot add a deactivated product to a bundle")
	}

	if _, err := s.repo.AddLine(ctx, repository.AddLineParams{
		BundleID:       bundleID,
		ProductID:      product.ID,
		Name:           product.Name,
		BasePriceCents: product.PriceCents,
		Quantity:       req.Quantity,
		CategoryID:     product.CategoryID,
	}); err != nil {
		return transport.BundleResponse{}, err
	}

	if _, err := s.RecalculateTotal(ctx, bundleID); err != nil {
		return transport.BundleResponse{}, err
	}
	return s.GetByID(ctx, bundleID)
}

// RemoveLine removes a product line and refreshes the bundle total.
func (s *Service) RemoveLine(ctx context.Context, bundleID, productID uuid.UUID) (transport.BundleResponse, error) {
	removed, err := s.repo.RemoveLine(ctx, bundleID, productID)
	if err != nil {
		return transport.BundleResponse{}, err
	}
	if !removed {
		return transport.BundleResponse{}, apperr.NotFound("bundle line not found")
	}

	s.publish(ctx, events.BundleLineRemoved{
		BaseEvent: events.NewBaseEvent(),
		BundleID:  bundleID,
		ProductID: productID,
	})

	if _, err := s.RecalculateTotal(ctx, bundleID); err != nil {
		return transport.BundleResponse{}, err
	}
	return s.GetByID(ctx, bundleID)
}

// UpdateLineQuantity changes a line's quantity and refreshes the total.
func (s *Service) UpdateLineQuantity(ctx context.Context, bundleID, productID uuid.UUID, quantity int) (transport.BundleResponse, error) {
	if err := s.repo.UpdateLineQuantity(ctx, bundleID, productID, quantity); err != nil {
		return transport.BundleResponse{}, err
	}
	if _, err := s.RecalculateTotal(ctx, bundleID); err != nil {
		return transport.BundleResponse{}, err
	}
	return s.GetByID(ctx, bundleID)
}

// RecalculateTotal refreshes line subtotals and the discounted bundle total.
func (s *Service) RecalculateTotal(ctx context.Context, bundleID uuid.UUID) (int64, error) {
	total, err := s.repo.RecalculateTotal(ctx, bundleID)
	if err != nil {
		return 0, err
	}

	s.publish(ctx, events.BundleRecalculated{
		BaseEvent:     events.NewBaseEvent(),
		BundleID:      bundleID,
		NewTotalCents: total,
	})
	return total, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.log.Warn("event delivery incomplete", "event", event.EventName(), "error", err)
	}
}

func toResponse(b repository.Bundle, lines []repository.Line) transport.BundleResponse {
	resp := transport.BundleResponse{
		ID:              b.ID,
		Name:            b.Name,
		Description:     b.Description,
		DiscountPercent: b.DiscountPercent,
		TotalCents:      b.TotalCents,
		Active:          b.Active,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, transport.LineResponse{
			ProductID:      l.ProductID,
			Name:           l.Name,
			BasePriceCents: l.BasePriceCents,
			Quantity:       l.Quantity,
			SubtotalCents:  l.SubtotalCents,
			CategoryID:     l.CategoryID,
		})
	}
	return resp
}
