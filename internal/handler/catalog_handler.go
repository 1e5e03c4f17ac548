package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/model"
	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	secret         []byte
}

func NewCatalogHandler(catalogService service.CatalogService, secret []byte) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, secret: secret}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api")
	group.Use(middleware.RequireRole(h.secret, middleware.RoleAdmin))
	{
		group.POST("/services", h.CreateService)
		group.PUT("/services/:id", h.UpdateService)
		group.PUT("/services/:id/prices", h.SavePrice)
		group.POST("/discounts", h.CreateDiscount)
	}
}

// CreateService adds a service to a car wash catalog
// @Summary      Create service
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      model.WashService  true  "Service"
// @Success      201      {object}  response.Response{data=model.WashService}
// @Failure      400      {object}  response.Response
// @Router       /api/services [post]
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var svc model.WashService
	if !bindJSON(c, &svc) {
		return
	}
	if err := h.catalogService.SaveService(c.Request.Context(), &svc, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, svc))
}

// UpdateService replaces a service definition
// @Summary      Update service
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Service ID"
// @Param        payload  body      model.WashService  true  "Service"
// @Success      200      {object}  response.Response{data=model.WashService}
// @Failure      400      {object}  response.Response
// @Router       /api/services/{id} [put]
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var svc model.WashService
	if !bindJSON(c, &svc) {
		return
	}
	svc.ID = id
	if err := h.catalogService.SaveService(c.Request.Context(), &svc, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, svc))
}

// SavePrice sets the body type price of a service
// @Summary      Save body type price
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Service ID"
// @Param        payload  body      model.ServicePrice  true  "Price"
// @Success      200      {object}  response.Response{data=model.ServicePrice}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/services/{id}/prices [put]
func (h *CatalogHandler) SavePrice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var price model.ServicePrice
	if !bindJSON(c, &price) {
		return
	}
	if err := h.catalogService.SavePrice(c.Request.Context(), id, &price, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, price))
}

// CreateDiscount adds an automatic discount with its rules
// @Summary      Create auto discount
// @Tags         discounts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      model.AutoDiscount  true  "Discount"
// @Success      201      {object}  response.Response{data=model.AutoDiscount}
// @Failure      400      {object}  response.Response
// @Router       /api/discounts [post]
func (h *CatalogHandler) CreateDiscount(c *gin.Context) {
	var d model.AutoDiscount
	if !bindJSON(c, &d) {
		return
	}
	if err := h.catalogService.CreateDiscount(c.Request.Context(), &d, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, d))
}
