package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campaignmerch_backend/internal/bundles/service"
	"campaignmerch_backend/internal/bundles/transport"
	"campaignmerch_backend/internal/http/response"
	"campaignmerch_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid bundle ID"
	msgInvalidProductID = "invalid product ID"
)

// Handler handles HTTP requests for bundles.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bundles handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves all bundles.
// GET /api/v1/bundles
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// GetByID retrieves a bundle with its lines.
// GET /api/v1/bundles/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// Create creates a new bundle (admin).
// POST /api/v1/admin/bundles
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, result)
}

// Update updates a bundle (admin).
// PATCH /api/v1/admin/bundles/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete removes a bundle (admin).
// DELETE /api/v1/admin/bundles/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// AddLine adds a product to a bundle (admin).
// POST /api/v1/admin/bundles/:id/lines
func (h *Handler) AddLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddLine(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// RemoveLine removes a product from a bundle (admin).
// DELETE /api/v1/admin/bundles/:id/lines/:productId
func (h *Handler) RemoveLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}

	result, err := h.svc.RemoveLine(c.Request.Context(), id, productID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateLineQuantity changes a line's quantity (admin).
// PATCH /api/v1/admin/bundles/:id/lines/:productId
func (h *Handler) UpdateLineQuantity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}

	var req transport.UpdateLineQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateLineQuantity(c.Request.Context(), id, productID, req.Quantity)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// Recalculate refreshes a bundle's totals (admin).
// POST /api/v1/admin/bundles/:id/recalculate
func (h *Handler) Recalculate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	total, err := h.svc.RecalculateTotal(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"totalCents": total})
}
