package handler

import (
	"net/http"

	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	quoteService service.QuoteService
	limit        gin.HandlerFunc
}

func NewPricingHandler(quoteService service.QuoteService, limit gin.HandlerFunc) *PricingHandler {
	return &PricingHandler{quoteService: quoteService, limit: limit}
}

func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{h.Quote}
	if h.limit != nil {
		handlers = append([]gin.HandlerFunc{h.limit}, handlers...)
	}
	router.POST("/api/pricing/quote", handlers...)
}

// Quote prices an order
// @Summary      Quote an order
// @Description  Price, duration, applicable automatic discounts and promo code result for a car and a list of services
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        payload  body      service.QuoteRequest  true  "Order"
// @Success      200      {object}  response.Response{data=service.Quote}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	var req service.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.quoteService.Quote(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, q))
}
