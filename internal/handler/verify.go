package handler

import (
	"net/http"

	"maaztelecom/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyHandler serves the public sale verification endpoint.
// No authentication required; read-only.
type VerifyHandler struct{ svc service.SaleService }

func NewVerifyHandler(svc service.SaleService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

// Verify godoc
// @Summary Verify a sale (no authentication)
// @Tags verify
// @Produce json
// @Param id path string true "Sale ID"
// @Success 200 {object} dto.VerifyResponse
// @Failure 404 {object} apierror.APIError
// @Failure 429 {object} apierror.APIError
// @Router /v1/verify/{id} [get]
func (h *VerifyHandler) Verify(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Verify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
