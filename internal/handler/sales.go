package handler

import (
	"net/http"

	"maaztelecom/internal/dto"
	"maaztelecom/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// Record godoc
// @Summary Record a sale
// @Description Validates the sale, stores it and queues the invoice. Validation stops at the first failing rule.
// @Tags sales
// @Accept json
// @Produce json
// @Param body body dto.RecordSaleRequest true "Sale"
// @Success 201 {object} dto.SaleResponse
// @Failure 422 {object} apierror.APIError
// @Failure 500 {object} apierror.APIError
// @Router /v1/sales [post]
func (h *SalesHandler) Record(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Record(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Preview godoc
// @Summary Price a sale without recording it
// @Tags sales
// @Accept json
// @Produce json
// @Param body body dto.RecordSaleRequest true "Sale form"
// @Success 200 {object} dto.PreviewResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/sales/preview [post]
func (h *SalesHandler) Preview(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary Sales dashboard
// @Tags sales
// @Produce json
// @Param search query string false "Customer name, phone or product name"
// @Param date query string false "Sold on (YYYY-MM-DD)"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.SaleListResponse
// @Router /v1/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.ListFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a sale
// @Tags sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 200 {object} dto.SaleResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sales/{id} [get]
func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Delete a sale
// @Tags sales
// @Param id path string true "Sale ID"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/sales/{id} [delete]
func (h *SalesHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RetryInvoice godoc
// @Summary Retry a failed invoice
// @Tags sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 202 {object} dto.RetryResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/sales/{id}/invoice/retry [post]
func (h *SalesHandler) RetryInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RetryInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// RetryNotification godoc
// @Summary Retry the WhatsApp notification
// @Tags sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 202 {object} dto.RetryResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/sales/{id}/notification/retry [post]
func (h *SalesHandler) RetryNotification(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RetryNotification(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
