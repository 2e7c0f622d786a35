// Package catalog provides the merchandise catalog bounded context module.
// Products are the upstream domain for bundle integrity: every lifecycle
// change here is published so downstream aggregates stay coherent.
package catalog

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignmerch_backend/internal/catalog/handler"
	"campaignmerch_backend/internal/catalog/repository"
	"campaignmerch_backend/internal/catalog/service"
	"campaignmerch_backend/internal/events"
	apphttp "campaignmerch_backend/internal/http"
	"campaignmerch_backend/platform/logger"
	"campaignmerch_backend/platform/validator"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public storefront endpoints
	ctx.V1.GET("/products", m.handler.ListActive)
	ctx.V1.GET("/products/:id", m.handler.GetByID)
	ctx.V1.GET("/products/reference/:reference", m.handler.GetByReference)

	// Admin catalog management
	ctx.Admin.GET("/products", m.handler.List)
	ctx.Admin.POST("/products", m.handler.Create)
	ctx.Admin.PATCH("/products/:id", m.handler.Update)
	ctx.Admin.DELETE("/products/:id", m.handler.Delete)
	ctx.Admin.PATCH("/products/:id/active", m.handler.SetActive)
}
