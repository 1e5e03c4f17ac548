package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	appointmentService service.AppointmentService
	usageService       service.DiscountUsageService
	secret             []byte
}

func NewDiscountHandler(appointmentService service.AppointmentService, usageService service.DiscountUsageService, secret []byte) *DiscountHandler {
	return &DiscountHandler{appointmentService: appointmentService, usageService: usageService, secret: secret}
}

func (h *DiscountHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/discount-usages")
	group.Use(middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleStaff))
	{
		group.GET("", h.List)
		group.POST("/toggle", h.Toggle)
	}
}

// List returns the auto discount usages recorded for an order
// @Summary      List discount usages
// @Tags         discounts
// @Security     BearerAuth
// @Produce      json
// @Param        context_type  query     string  true  "Appointment, Booking or MobileAttempt"
// @Param        context_id    query     string  true  "Order ID"
// @Success      200           {object}  response.Response{data=[]model.AutoDiscountUsage}
// @Failure      400           {object}  response.Response
// @Router       /api/discount-usages [get]
func (h *DiscountHandler) List(c *gin.Context) {
	var uc service.UsageContext
	if err := c.ShouldBindQuery(&uc); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return
	}
	rows, err := h.usageService.List(c.Request.Context(), uc)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// Toggle disables discounts on an order and re-totals it
// @Summary      Toggle discount usages
// @Tags         discounts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ToggleDiscountsRequest  true  "Discounts to disable"
// @Success      200      {object}  response.Response{data=[]model.AutoDiscountUsage}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/discount-usages/toggle [post]
func (h *DiscountHandler) Toggle(c *gin.Context) {
	var req service.ToggleDiscountsRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := h.appointmentService.ToggleDiscounts(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
