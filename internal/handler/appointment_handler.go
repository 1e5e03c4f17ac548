package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	appointmentService service.AppointmentService
	secret             []byte
}

func NewAppointmentHandler(appointmentService service.AppointmentService, secret []byte) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService, secret: secret}
}

func (h *AppointmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/appointments")
	group.Use(middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleStaff))
	{
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.POST("/:id/status", h.SetStatus)
		group.POST("/:id/pay", h.MarkPaid)
		group.DELETE("/:id", h.Delete)
	}
}

// Create opens an appointment
// @Summary      Create appointment
// @Description  Prices the services, applies automatic discounts, issues consumables and links the booking when given
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAppointmentRequest  true  "Appointment"
// @Success      201      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.appointmentService.Create(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, a))
}

// Get returns an appointment with its services
// @Summary      Get appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response{data=model.Appointment}
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.appointmentService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// Update edits an appointment and re-totals it
// @Summary      Update appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Appointment ID"
// @Param        payload  body      service.UpdateAppointmentRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/appointments/{id} [put]
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.appointmentService.Update(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// SetStatus moves an appointment through its workflow
// @Summary      Set appointment status
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Appointment ID"
// @Param        payload  body      service.SetStatusRequest  true  "Workflow state"
// @Success      200      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Router       /api/appointments/{id}/status [post]
func (h *AppointmentHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.appointmentService.SetStatus(c.Request.Context(), id, req.State, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// MarkPaid records payment of an appointment
// @Summary      Mark appointment paid
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Appointment ID"
// @Param        payload  body      service.MarkPaidRequest  true  "Payment"
// @Success      200      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Router       /api/appointments/{id}/pay [post]
func (h *AppointmentHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MarkPaidRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.appointmentService.MarkPaid(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// Delete soft-deletes an appointment, returning stock and releasing discounts
// @Summary      Delete appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.appointmentService.SoftDelete(c.Request.Context(), id, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
