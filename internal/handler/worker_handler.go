package handler

import (
	"net/http"

	"carwash/internal/middleware"
	"carwash/internal/service"
	"carwash/pkg/pagination"
	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkerHandler struct {
	ledgerService service.LedgerService
	secret        []byte
}

func NewWorkerHandler(ledgerService service.LedgerService, secret []byte) *WorkerHandler {
	return &WorkerHandler{ledgerService: ledgerService, secret: secret}
}

func (h *WorkerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/workers")
	group.Use(middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleStaff))
	{
		group.GET("/:id/balance", h.Balance)
		group.GET("/:id/ledger", h.Ledger)
		group.POST("/:id/ledger", middleware.RequireRole(h.secret, middleware.RoleAdmin), h.Post)
	}
}

// Balance returns the submitted balance of a worker
// @Summary      Worker balance
// @Tags         workers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Worker ID"
// @Success      200  {object}  response.Response{data=service.BalanceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/workers/{id}/balance [get]
func (h *WorkerHandler) Balance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.ledgerService.Balance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Ledger pages the ledger entries of a worker
// @Summary      Worker ledger
// @Tags         workers
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Worker ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/workers/{id}/ledger [get]
func (h *WorkerHandler) Ledger(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	entries, total, err := h.ledgerService.List(c.Request.Context(), id, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: entries, Meta: p.MetaFor(total)}))
}

// Post adds a manual ledger entry
// @Summary      Post ledger entry
// @Tags         workers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Worker ID"
// @Param        payload  body      service.PostEntryRequest  true  "Entry"
// @Success      201      {object}  response.Response{data=model.WorkerLedgerEntry}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/workers/{id}/ledger [post]
func (h *WorkerHandler) Post(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PostEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.ledgerService.Post(c.Request.Context(), id, req, actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}
