package workorder

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/domain"
	"propertyhub/internal/middleware"
	"propertyhub/internal/pkg/response"
	"propertyhub/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts /repairs on a JWT protected group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	owner := middleware.RequireRole(domain.RoleOwner)
	worker := middleware.RequireRole(domain.RoleWorker)

	g := protected.Group("/repairs")
	{
		g.POST("", owner, h.Create)
		g.GET("/:id", h.Get)
		g.POST("/:id/assign", middleware.ManagerOnly(), h.Assign)
		g.POST("/:id/start", worker, h.Start)
		g.POST("/:id/complete", worker, h.Complete)
		g.POST("/:id/pay", owner, h.Pay)
		g.POST("/:id/evaluate", owner, h.Evaluate)
		g.POST("/:id/cancel", middleware.RequireRole(domain.RoleOwner, domain.RoleManager), h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Create(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"order": o})
}

func (h *Handler) Get(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Get(c.Request.Context(), id, orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order": o})
}

func (h *Handler) Assign(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Assign(c.Request.Context(), id, orderID, req.WorkerID)
	respond(c, o, err)
}

func (h *Handler) Start(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Start(c.Request.Context(), id, orderID)
	respond(c, o, err)
}

func (h *Handler) Complete(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Complete(c.Request.Context(), id, orderID, req)
	respond(c, o, err)
}

func (h *Handler) Pay(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Pay(c.Request.Context(), id, orderID)
	respond(c, o, err)
}

func (h *Handler) Evaluate(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req EvaluateRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Evaluate(c.Request.Context(), id, orderID, req)
	respond(c, o, err)
}

func (h *Handler) Cancel(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	o, err := h.service.Cancel(c.Request.Context(), id, orderID)
	respond(c, o, err)
}

func respond(c *gin.Context, o *domain.WorkOrder, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order": o})
}

func parseOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid order id")
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return false
	}
	return true
}
