package complaint

import (
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

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	owner := middleware.RequireRole(domain.RoleOwner)
	manager := middleware.ManagerOnly()

	g := protected.Group("/complaints")
	{
		g.POST("", owner, h.Create)
		g.POST("/:id/process", manager, h.Process)
		g.POST("/:id/complete", manager, h.Complete)
		g.POST("/:id/cancel", owner, h.Cancel)
		g.POST("/:id/rate", owner, h.Rate)
		g.DELETE("/:id", manager, h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	out, err := h.service.Create(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"complaint": out})
}

func (h *Handler) Process(c *gin.Context) {
	complaintID, ok := parseComplaintID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	out, err := h.service.Process(c.Request.Context(), id, complaintID)
	respond(c, out, err)
}

func (h *Handler) Complete(c *gin.Context) {
	complaintID, ok := parseComplaintID(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	out, err := h.service.Complete(c.Request.Context(), id, complaintID, req)
	respond(c, out, err)
}

func (h *Handler) Cancel(c *gin.Context) {
	complaintID, ok := parseComplaintID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	out, err := h.service.Cancel(c.Request.Context(), id, complaintID)
	respond(c, out, err)
}

func (h *Handler) Rate(c *gin.Context) {
	complaintID, ok := parseComplaintID(c)
	if !ok {
		return
	}
	var req RateRequest
	if !bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	out, err := h.service.Rate(c.Request.Context(), id, complaintID, req.Rating)
	respond(c, out, err)
}

func (h *Handler) Delete(c *gin.Context) {
	complaintID, ok := parseComplaintID(c)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(c)

	if err := h.service.Delete(c.Request.Context(), id, complaintID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": complaintID})
}

func respond(c *gin.Context, out *domain.Complaint, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"complaint": out})
}

func parseComplaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid complaint id")
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
