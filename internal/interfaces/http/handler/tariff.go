package handler

import (
	tariffapp "github.com/concierge/backend/internal/application/tariff"
	tariffdto "github.com/concierge/backend/internal/application/tariff/dto"
	"github.com/concierge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// TariffHandler exposes rate resolution, administration, valuation, bulk
// operations and impact previews over HTTP
type TariffHandler struct {
	BaseHandler
	rates *tariffapp.RateService
	bulk  *tariffapp.BulkService
}

// NewTariffHandler creates a new TariffHandler
func NewTariffHandler(rates *tariffapp.RateService, bulk *tariffapp.BulkService) *TariffHandler {
	return &TariffHandler{
		rates: rates,
		bulk:  bulk,
	}
}

// RateHistoryFilter represents filter parameters for the override history list
type RateHistoryFilter struct {
	Kind               string `form:"kind" binding:"required"`
	Continent          string `form:"continent"`
	Region             string `form:"region"`
	CountryCode        string `form:"country"`
	ClassificationCode string `form:"classification"`
	Page               int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize           int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// RegisterRoutes registers tariff routes
func (h *TariffHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tariff := rg.Group("/tariff")
	{
		services := tariff.Group("/services")
		{
			services.GET("/:key/rates/resolve", h.ResolveRate)
			services.PUT("/:key/rates", h.SetRate)
			services.GET("/:key/rates/matrix", h.RateMatrix)
			services.GET("/:key/rates/history", h.RateHistory)
			services.POST("/:key/rates/bulk", h.ApplyBulkOperation)
			services.POST("/:key/rates/impact", h.EstimateImpact)
		}

		tariff.POST("/valuation/dutiable-base", h.ComputeDutiableBase)
		tariff.DELETE("/cache", h.InvalidateCache)
	}
}

// ResolveRate resolves the effective rate for a service, country and
// optional classification code
func (h *TariffHandler) ResolveRate(c *gin.Context) {
	serviceKey := c.Param("key")
	country := c.Query("country")
	if country == "" {
		h.BadRequest(c, "country query parameter is required")
		return
	}
	classification := c.Query("classification")

	result, err := h.rates.ResolveRate(c.Request.Context(), serviceKey, country, classification)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SetRate writes a rate override for one scope, superseding any active
// override in the same slot
func (h *TariffHandler) SetRate(c *gin.Context) {
	serviceKey := c.Param("key")

	var req tariffdto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.rates.SetRate(c.Request.Context(), serviceKey, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RateMatrix returns the effective country-level rate for every known country
func (h *TariffHandler) RateMatrix(c *gin.Context) {
	serviceKey := c.Param("key")

	result, err := h.rates.RateMatrix(c.Request.Context(), serviceKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RateHistory lists the supersession chain of overrides for one scope slot,
// newest first
func (h *TariffHandler) RateHistory(c *gin.Context) {
	serviceKey := c.Param("key")

	var filter RateHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	scope := tariffdto.ScopeDTO{
		Kind:               filter.Kind,
		Continent:          filter.Continent,
		Region:             filter.Region,
		CountryCode:        filter.CountryCode,
		ClassificationCode: filter.ClassificationCode,
	}

	repoFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}

	result, err := h.rates.RateHistory(c.Request.Context(), serviceKey, scope, repoFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ApplyBulkOperation applies one rate operation across a country list with
// per-country failure isolation
func (h *TariffHandler) ApplyBulkOperation(c *gin.Context) {
	serviceKey := c.Param("key")

	var req tariffdto.BulkOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.bulk.ApplyBulkOperation(c.Request.Context(), serviceKey, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// EstimateImpact previews the revenue effect of a proposed rate change
// without writing anything
func (h *TariffHandler) EstimateImpact(c *gin.Context) {
	serviceKey := c.Param("key")

	var req tariffdto.ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.bulk.EstimateImpact(c.Request.Context(), serviceKey, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ComputeDutiableBase computes the customs-dutiable base for a declared
// value under the requested valuation policy
func (h *TariffHandler) ComputeDutiableBase(c *gin.Context) {
	var req tariffdto.ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.rates.ComputeDutiableBase(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// InvalidateCache flushes every cached resolution and matrix entry
func (h *TariffHandler) InvalidateCache(c *gin.Context) {
	if err := h.rates.InvalidateCache(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
