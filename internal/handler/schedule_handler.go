package handler

import (
	"net/http"
	"strconv"
	"time"

	"carwash/internal/scheduler"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduler *scheduler.Scheduler
	limit     gin.HandlerFunc
	location  *time.Location
}

// NewScheduleHandler serves free slots. Dates are read in loc; limit may be nil.
func NewScheduleHandler(s *scheduler.Scheduler, limit gin.HandlerFunc, loc *time.Location) *ScheduleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleHandler{scheduler: s, limit: limit, location: loc}
}

func (h *ScheduleHandler) RegisterRoutes(router *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{h.FreeSlots}
	if h.limit != nil {
		handlers = append([]gin.HandlerFunc{h.limit}, handlers...)
	}
	router.GET("/api/car-washes/:id/free-slots", handlers...)
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+key+": "+raw))
		return 0, false
	}
	return v, true
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// FreeSlots lists bookable start times of a car wash day
// @Summary      Free slots
// @Description  Start times on a day where at least one box is free, honouring working hours, appointments and the queue
// @Tags         schedule
// @Produce      json
// @Param        id        path      string  true   "Car wash ID"
// @Param        date      query     string  true   "Day (YYYY-MM-DD)"
// @Param        step      query     int     false  "Slot step in minutes (default 15)"
// @Param        max       query     int     false  "Maximum number of slots"
// @Param        capacity  query     bool    false  "Include free box count per slot"
// @Param        queue     query     bool    false  "Reserve capacity for queued bookings (default true)"
// @Success      200       {object}  response.Response{data=[]scheduler.Slot}
// @Failure      400       {object}  response.Response
// @Failure      429       {object}  response.Response
// @Router       /api/car-washes/{id}/free-slots [get]
func (h *ScheduleHandler) FreeSlots(c *gin.Context) {
	carWashID, ok := pathID(c, "id")
	if !ok {
		return
	}
	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), h.location)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD"))
		return
	}

	opts := scheduler.DefaultOptions()
	if opts.StepMinutes, ok = queryInt(c, "step", opts.StepMinutes); !ok {
		return
	}
	if opts.MaxResults, ok = queryInt(c, "max", 0); !ok {
		return
	}
	opts.IncludeCapacity = queryBool(c, "capacity", false)
	opts.RespectQueue = queryBool(c, "queue", true)

	slots, err := h.scheduler.FreeSlots(c.Request.Context(), carWashID, date, opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, slots))
}
