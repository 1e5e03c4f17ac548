package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the service actor from the values set by RequireRole.
// Unauthenticated requests get an anonymous, non-admin actor.
func actorFrom(c *gin.Context) service.Actor {
	var actor service.Actor
	if raw := c.GetString(middleware.CtxUserID); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.UserID = &id
		}
	}
	actor.IsAdmin = c.GetString(middleware.CtxUserRole) == middleware.RoleAdmin
	return actor
}

// pathID parses a uuid path parameter, writing a 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+": "+c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

func fail(c *gin.Context, err error) {
	code, body := response.FromError(err)
	c.JSON(code, body)
}
