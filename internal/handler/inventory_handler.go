package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/pagination"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	stockService service.StockService
	secret       []byte
}

func NewInventoryHandler(stockService service.StockService, secret []byte) *InventoryHandler {
	return &InventoryHandler{stockService: stockService, secret: secret}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/products")
	inventory.Use(middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleStaff))
	{
		inventory.GET("", h.GetProducts)
		inventory.POST("/:id/receive", h.Receive)
	}
}

// GetProducts handles retrieving paginated stock levels
// @Summary      Get products
// @Description  Retrieves a paginated list of consumables with current stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        car_wash_id  query     string  true   "Car wash ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        search       query     string  false  "Search by product name"
// @Success      200          {object}  response.Response{data=response.Page}
// @Failure      400          {object}  response.Response
// @Router       /api/products [get]
func (h *InventoryHandler) GetProducts(c *gin.Context) {
	carWashID, err := uuid.Parse(c.Query("car_wash_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "car_wash_id is required"))
		return
	}
	p := pagination.Parse(c)

	products, total, err := h.stockService.List(c.Request.Context(), carWashID, c.Query("search"), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve products: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: products, Meta: p.MetaFor(total)}))
}

// Receive books a delivery into stock
// @Summary      Receive stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Product ID"
// @Param        payload  body      service.ReceiveStockRequest  true  "Delivery"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id}/receive [post]
func (h *InventoryHandler) Receive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ReceiveStockRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.stockService.Receive(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}
