// Package bundles provides the product bundle bounded context module.
// A bundle records a snapshot of each product at the time it is added; the
// integrity module reconciles those snapshots against the live catalog.
package bundles

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignmerch_backend/internal/bundles/handler"
	"campaignmerch_backend/internal/bundles/repository"
	"campaignmerch_backend/internal/bundles/service"
	"campaignmerch_backend/internal/events"
	apphttp "campaignmerch_backend/internal/http"
	"campaignmerch_backend/platform/logger"
	"campaignmerch_backend/platform/validator"
)

// Module is the bundles bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the bundles module with all its dependencies.
func NewModule(pool *pgxpool.Pool, catalog service.CatalogReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bundles"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts bundle routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public storefront endpoints
	ctx.V1.GET("/bundles", m.handler.List)
	ctx.V1.GET("/bundles/:id", m.handler.GetByID)

	// Admin bundle management
	ctx.Admin.POST("/bundles", m.handler.Create)
	ctx.Admin.PATCH("/bundles/:id", m.handler.Update)
	ctx.Admin.DELETE("/bundles/:id", m.handler.Delete)
	ctx.Admin.POST("/bundles/:id/lines", m.handler.AddLine)
	ctx.Admin.DELETE("/bundles/:id/lines/:productId", m.handler.RemoveLine)
	ctx.Admin.PATCH("/bundles/:id/lines/:productId", m.handler.UpdateLineQuantity)
	ctx.Admin.POST("/bundles/:id/recalculate", m.handler.Recalculate)
}
