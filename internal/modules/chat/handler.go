package chat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"propertyhub/internal/domain"
	"propertyhub/internal/middleware"
	"propertyhub/internal/modules/notification"
	"propertyhub/internal/pkg/response"
)

type Handler struct {
	service  *Service
	registry *notification.Registry
	verifier notification.IdentityVerifier
	upgrader websocket.Upgrader
	opts     notification.ClientOptions
	logger   *zap.Logger
}

func NewHandler(
	service *Service,
	registry *notification.Registry,
	verifier notification.IdentityVerifier,
	upgrader websocket.Upgrader,
	opts notification.ClientOptions,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:  service,
		registry: registry,
		verifier: verifier,
		upgrader: upgrader,
		opts:     opts,
		logger:   logger.Named("chat_ws"),
	}
}

// RegisterRoutes registers the history endpoint under the protected group.
// Base path is /api/v1/chat
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/chat/history/:order_id", h.History)
}

// RegisterWS mounts the chat socket. The token rides in the query string.
func (h *Handler) RegisterWS(r gin.IRoutes) {
	r.GET("/ws/chat/:order_id", h.Connect)
}

// Connect handles GET /ws/chat/:order_id?token=...
// The first frame must identify the peer; membership is checked after that.
func (h *Handler) Connect(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required")
		return
	}
	id, err := h.verifier.Verify(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := notification.NewSession(conn, notification.ChatChannel(orderID), h.registry, notification.SessionConfig{
		Identity:     id,
		RequireHello: true,
		Authorize: func(ctx context.Context, id domain.Identity) error {
			_, err := h.service.Authorize(ctx, id, orderID)
			return err
		},
		OnMessage: func(ctx context.Context, from domain.Identity, text string) error {
			_, err := h.service.Post(ctx, from, orderID, text)
			return err
		},
		Greeting: "chat connected",
	}, h.opts, h.logger.With(zap.Int64("order_id", orderID)))
	session.Run(c.Request.Context())
}

func (h *Handler) History(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = n
	}
	viewer, _ := middleware.IdentityFrom(c)

	msgs, err := h.service.HistoryFor(c.Request.Context(), viewer, orderID, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"order_id": orderID,
		"messages": msgs,
	})
}

func parseOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid order id")
		return 0, false
	}
	return id, true
}
