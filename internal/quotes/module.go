package quotes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "campaignmerch_backend/internal/http"
	"campaignmerch_backend/internal/http/response"
	"campaignmerch_backend/platform/validator"
)

// Module exposes the quote calculator on the public API.
type Module struct {
	calc *Calculator
	val  *validator.Validator
}

func NewModule(products ProductSource, val *validator.Validator) *Module {
	return &Module{calc: NewCalculator(products), val: val}
}

func (m *Module) Name() string { return "quotes" }

// RegisterRoutes mounts the quoting endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/quotes/calculate", m.calculate)
}

// calculate prices a cart.
// POST /api/v1/quotes/calculate
func (m *Module) calculate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	quote, err := m.calc.Calculate(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, quote)
}
