package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
	secret         []byte
}

func NewBookingHandler(bookingService service.BookingService, secret []byte) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, secret: secret}
}

func (h *BookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/bookings")
	group.Use(middleware.RequireRole(h.secret))
	{
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.POST("/:id/cancel", h.Cancel)
		group.DELETE("/:id", middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleStaff), h.Delete)
	}
}

// Create places a booking in the queue
// @Summary      Create booking
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBookingRequest  true  "Booking"
// @Success      201      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Router       /api/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookingService.Create(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, b))
}

// Get returns a booking
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=model.Booking}
// @Failure      404  {object}  response.Response
// @Router       /api/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookingService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, b))
}

// Update changes desired time, services or links an appointment
// @Summary      Update booking
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Booking ID"
// @Param        payload  body      service.UpdateBookingRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bookings/{id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookingService.Update(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, b))
}

// Cancel takes a booking out of the queue
// @Summary      Cancel booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=model.Booking}
// @Failure      404  {object}  response.Response
// @Router       /api/bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookingService.Cancel(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, b))
}

// Delete hides a booking
// @Summary      Delete booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookingService.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
