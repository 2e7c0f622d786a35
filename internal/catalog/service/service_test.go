package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"campaignmerch_backend/internal/catalog/repository"
	"campaignmerch_backend/internal/catalog/transport"
	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/logger"
)

type fakeRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]repository.Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[uuid.UUID]repository.Product)}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return repository.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (f *fakeRepo) GetByReference(_ context.Context, reference string) (repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Reference == reference {
			return p, nil
		}
	}
	return repository.Product{}, apperr.NotFound("product not found")
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]repository.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.Product
	for _, p := range f.products {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (f *fakeRepo) ListActive(_ context.Context) ([]repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.Product
	for _, p := range f.products {
		if p.Active {
			items = append(items, p)
		}
	}
	return items, nil
}

func (f *fakeRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.products[id]
	return ok, nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := repository.Product{
		ID:          uuid.New(),
		Name:        params.Name,
		Reference:   params.Reference,
		Description: params.Description,
		PriceCents:  params.PriceCents,
		Active:      true,
		CategoryID:  params.CategoryID,
		Tags:        params.Tags,
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[params.ID]
	if !ok {
		return repository.Product{}, apperr.NotFound("product not found")
	}
	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = params.Description
	}
	if params.PriceCents != nil {
		p.PriceCents = *params.PriceCents
	}
	if params.CategoryID != nil {
		p.CategoryID = params.CategoryID
	}
	if params.Tags != nil {
		p.Tags = params.Tags
	}
	f.products[params.ID] = p
	return p, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return apperr.NotFound("product not found")
	}
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return apperr.NotFound("product not found")
	}
	p.Active = active
	f.products[id] = p
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *recorder) {
	t.Helper()
	log := logger.New("development")
	repo := newFakeRepo()
	bus := events.NewInMemoryBus(log)
	rec := &recorder{}
	for _, name := range []string{
		"catalog.product.created",
		"catalog.product.updated",
		"catalog.product.price_changed",
		"catalog.product.deleted",
		"catalog.product.deactivated",
	} {
		bus.Subscribe(name, rec)
	}
	return New(repo, bus, log), repo, rec
}

func seedProduct(t *testing.T, svc *Service) transport.ProductResponse {
	t.Helper()
	p, err := svc.Create(context.Background(), transport.CreateProductRequest{
		Name:       "Campaign Tee",
		Reference:  "TEE-001",
		PriceCents: 1995,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestUpdatePublishesPriceChange(t *testing.T) {
	svc, _, rec := newTestService(t)
	p := seedProduct(t, svc)

	newPrice := int64(2495)
	updated, err := svc.Update(context.Background(), p.ID, transport.UpdateProductRequest{
		PriceCents: &newPrice,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PriceCents != newPrice {
		t.Fatalf("price = %d, want %d", updated.PriceCents, newPrice)
	}

	var sawUpdate, sawPriceChange bool
	rec.mu.Lock()
	for _, e := range rec.events {
		switch evt := e.(type) {
		case events.ProductUpdated:
			sawUpdate = true
			if !evt.PriceChanged {
				t.Errorf("ProductUpdated.PriceChanged = false, want true")
			}
		case events.ProductPriceChanged:
			sawPriceChange = true
			if evt.OldPriceCents != 1995 || evt.NewPriceCents != newPrice {
				t.Errorf("price change event = %+v", evt)
			}
		}
	}
	rec.mu.Unlock()
	if !sawUpdate || !sawPriceChange {
		t.Fatalf("events = %v, want updated and price_changed", rec.names())
	}
}

func TestUpdateWithoutPriceChangeOmitsPriceEvent(t *testing.T) {
	svc, _, rec := newTestService(t)
	p := seedProduct(t, svc)

	name := "Premium Campaign Tee"
	if _, err := svc.Update(context.Background(), p.ID, transport.UpdateProductRequest{
		Name: &name,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	for _, n := range rec.names() {
		if n == "catalog.product.price_changed" {
			t.Fatalf("unexpected price change event: %v", rec.names())
		}
	}
}

func TestDeletePublishesEvent(t *testing.T) {
	svc, repo, rec := newTestService(t)
	p := seedProduct(t, svc)

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), p.ID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("product still present after delete")
	}

	var saw bool
	for _, n := range rec.names() {
		if n == "catalog.product.deleted" {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("events = %v, want deleted", rec.names())
	}
}

func TestDeactivatePublishesEventWithName(t *testing.T) {
	svc, _, rec := newTestService(t)
	p := seedProduct(t, svc)

	if err := svc.SetActive(context.Background(), p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var found bool
	for _, e := range rec.events {
		if evt, ok := e.(events.ProductDeactivated); ok {
			found = true
			if evt.ProductName != "Campaign Tee" {
				t.Fatalf("event name = %q, want product name", evt.ProductName)
			}
		}
	}
	if !found {
		t.Fatalf("no deactivation event published")
	}
}

func TestReactivateDoesNotPublishDeactivation(t *testing.T) {
	svc, _, rec := newTestService(t)
	p := seedProduct(t, svc)

	if err := svc.SetActive(context.Background(), p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	before := len(rec.names())

	if err := svc.SetActive(context.Background(), p.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if len(rec.names()) != before {
		t.Fatalf("reactivation published an event: %v", rec.names())
	}
}
