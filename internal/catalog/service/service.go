package service

import (
	"context"

	"github.com/google/uuid"

	"campaignmerch_backend/internal/catalog/repository"
	"campaignmerch_backend/internal/catalog/transport"
	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/platform/logger"
)

// Service provides business logic for the merchandise catalog. Lifecycle
// changes are announced on the event bus so dependent aggregates (bundles)
// can react.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// GetByID retrieves a product by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ProductResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// GetByReference retrieves a product by its catalog reference code.
func (s *Service) GetByReference(ctx context.Context, reference string) (transport.ProductResponse, error) {
	p, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// List retrieves products with search, filters and pagination.
func (s *Service) List(ctx context.Context, req transport.ListProductsRequest) (transport.ProductListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search: req.Search,
		Active: req.Active,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return transport.ProductListResponse{}, err
	}
	return toListResponse(items, total, page, pageSize), nil
}

// ListActive retrieves only active products.
func (s *Service) ListActive(ctx context.Context) (transport.ProductListResponse, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return transport.ProductListResponse{}, err
	}
	return toListResponse(items, len(items), 1, len(items)), nil
}

// Create creates a new product and announces it.
func (s *Service) Create(ctx context.Context, req transport.CreateProductRequest) (transport.ProductResponse, error) {
	p, err := s.repo.Create(ctx, repository.CreateParams{
		Name:        req.Name,
		Reference:   req.Reference,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	s.log.Info("product created", "id", p.ID, "name", p.Name, "reference", p.Reference)
	if err := s.bus.PublishSync(ctx, events.ProductCreated{
		BaseEvent: events.NewBaseEvent(),
		ProductID: p.ID,
		Name:      p.Name,
	}); err != nil {
		s.log.Warn("product created event delivery incomplete", "id", p.ID, "error", err)
	}
	return toResponse(p), nil
}

// Update updates a product. Price and name changes are announced explicitly
// so bundle integrity checks can invalidate cached snapshots.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateProductRequest) (transport.ProductResponse, error) {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ProductResponse{}, err
	}

	p, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	priceChanged := p.PriceCents != before.PriceCents
	nameChanged := p.Name != before.Name

	if err := s.bus.PublishSync(ctx, events.ProductUpdated{
		BaseEvent:    events.NewBaseEvent(),
		ProductID:    p.ID,
		Name:         p.Name,
		PriceChanged: priceChanged,
		NameChanged:  nameChanged,
	}); err != nil {
		s.log.Warn("product updated event delivery incomplete", "id", p.ID, "error", err)
	}

	if priceChanged {
		s.log.Info("product price changed", "id", p.ID, "old", before.PriceCents, "new", p.PriceCents)
		if err := s.bus.PublishSync(ctx, events.ProductPriceChanged{
			BaseEvent:     events.NewBaseEvent(),
			ProductID:     p.ID,
			OldPriceCents: before.PriceCents,
			NewPriceCents: p.PriceCents,
		}); err != nil {
			s.log.Warn("price changed event delivery incomplete", "id", p.ID, "error", err)
		}
	}

	return toResponse(p), nil
}

// Delete removes a product. Bundles referencing it are cleaned up by the
// integrity sweeper reacting to the event, not here.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("product deleted", "id", id)
	if err := s.bus.PublishSync(ctx, events.ProductDeleted{
		BaseEvent: events.NewBaseEvent(),
		ProductID: id,
	}); err != nil {
		s.log.Warn("product deleted event delivery incomplete", "id", id, "error", err)
	}
	return nil
}

// SetActive flips a product's active flag. Deactivation is announced so
// bundles referencing the product can be flagged for review.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	if !active {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		s.log.Info("product deactivated", "id", id, "name", p.Name)
		if err := s.bus.PublishSync(ctx, events.ProductDeactivated{
			BaseEvent:   events.NewBaseEvent(),
			ProductID:   id,
			ProductName: p.Name,
		}); err != nil {
			s.log.Warn("deactivation event delivery incomplete", "id", id, "error", err)
		}
	}
	return nil
}

func toResponse(p repository.Product) transport.ProductResponse {
	return transport.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Reference:   p.Reference,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Active:      p.Active,
		CategoryID:  p.CategoryID,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toListResponse(items []repository.Product, total, page, pageSize int) transport.ProductListResponse {
	responses := make([]transport.ProductResponse, 0, len(items))
	for _, p := range items {
		responses = append(responses, toResponse(p))
	}
	return transport.ProductListResponse{
		Items:    responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}
