package integrity

import (
	"context"
	"fmt"

	"campaignmerch_backend/internal/events"
	apphttp "campaignmerch_backend/internal/http"
	"campaignmerch_backend/platform/logger"
)

// Module wires the integrity engine into the HTTP server and the event bus.
type Module struct {
	sweeper *Sweeper
	handler *Handler
	logger  *logger.Logger
}

func NewModule(sweeper *Sweeper, log *logger.Logger) *Module {
	return &Module{
		sweeper: sweeper,
		handler: NewHandler(sweeper),
		logger:  log,
	}
}

func (m *Module) Name() string { return "integrity" }

// SetSweepScheduler makes the admin sweep endpoint enqueue sweeps on the
// background queue instead of running them in-request.
func (m *Module) SetSweepScheduler(scheduler SweepScheduler) {
	m.handler.SetSweepScheduler(scheduler)
}

// RegisterRoutes mounts the integrity admin endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin

	admin.POST("/integrity/sweep", m.handler.Sweep)
	admin.GET("/integrity/report", m.handler.Report)
	admin.GET("/integrity/status", m.handler.Status)
	admin.GET("/integrity/cache-stats", m.handler.CacheStats)
	admin.POST("/bundles/:id/check", m.handler.CheckBundle)
	admin.POST("/bundles/:id/cleanup-orphans", m.handler.CleanupOrphans)
}

// RegisterHandlers subscribes the sweeper to the catalog lifecycle events it
// reacts to. Update and price-change events only drop the cached snapshot;
// delete and deactivate additionally drive cleanup or broadcasts.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ProductUpdated{}.EventName(), m)
	bus.Subscribe(events.ProductPriceChanged{}.EventName(), m)
	bus.Subscribe(events.ProductDeleted{}.EventName(), m)
	bus.Subscribe(events.ProductDeactivated{}.EventName(), m)
}

// Handle dispatches catalog events to the sweeper's hooks.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ProductUpdated:
		return m.sweeper.OnProductUpdated(ctx, e.ProductID)
	case events.ProductPriceChanged:
		return m.sweeper.OnProductUpdated(ctx, e.ProductID)
	case events.ProductDeleted:
		return m.sweeper.OnProductDeleted(ctx, e.ProductID)
	case events.ProductDeactivated:
		return m.sweeper.OnProductDeactivated(ctx, e.ProductID)
	default:
		return fmt.Errorf("unexpected event type %q", event.EventName())
	}
}
