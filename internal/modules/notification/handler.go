package notification

import (
	"net/http"
	"strconv"

	"propertyhub/internal/domain"
	"propertyhub/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// IdentityVerifier turns a bearer token into a verified identity.
type IdentityVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// NewUpgrader accepts any origin when allowed is empty or contains "*".
func NewUpgrader(allowed []string) websocket.Upgrader {
	origins := make(map[string]struct{}, len(allowed))
	wildcard := len(allowed) == 0
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		origins[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if wildcard {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := origins[origin]
			return ok
		},
	}
}

type Handler struct {
	registry *Registry
	verifier IdentityVerifier
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *zap.Logger
}

func NewHandler(registry *Registry, verifier IdentityVerifier, upgrader websocket.Upgrader, opts ClientOptions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		verifier: verifier,
		upgrader: upgrader,
		opts:     opts,
		logger:   logger.Named("ws"),
	}
}

// RegisterRoutes mounts one notification endpoint per role path segment.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	for _, segment := range []string{"owner", "worker", "maintenance", "manager"} {
		role, _ := domain.ParseRole(segment)
		r.GET("/ws/"+segment+"/:user_id", h.roleChannel(role))
	}
	r.GET("/healthz", h.Health)
}

// roleChannel handles GET /ws/{role}/{user_id}?token=...
func (h *Handler) roleChannel(role domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user id")
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
		if id != domain.NewIdentity(role, userID) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Token does not match channel")
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		session := NewSession(conn, NotificationChannel, h.registry, SessionConfig{
			Identity: id,
			Greeting: "notification channel connected",
		}, h.opts, h.logger)
		session.Run(c.Request.Context())
	}
}

// Health reports live connection counts per role.
func (h *Handler) Health(c *gin.Context) {
	stats := h.registry.Stats()
	response.Success(c, http.StatusOK, gin.H{
		"status": "ok",
		"connections": gin.H{
			"owner":   stats[domain.RoleOwner],
			"worker":  stats[domain.RoleWorker],
			"manager": stats[domain.RoleManager],
		},
	})
}
