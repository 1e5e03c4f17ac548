package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/pagination"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	secret       []byte
}

func NewAuditHandler(auditService service.AuditService, secret []byte) *AuditHandler {
	return &AuditHandler{auditService: auditService, secret: secret}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", middleware.RequireRole(h.secret, middleware.RoleAdmin), h.List)
}

// List pages audit entries, newest first
// @Summary      Audit trail
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query     string  false  "Entity ID"
// @Param        action     query     string  false  "Action, e.g. PAY_APPOINTMENT"
// @Param        user_id    query     string  false  "Acting user ID"
// @Param        from       query     string  false  "From (RFC3339)"
// @Param        to         query     string  false  "To (RFC3339)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Failure      400        {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var q service.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return
	}
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), q, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: logs, Meta: p.MetaFor(total)}))
}
