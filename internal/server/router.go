package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"propertyhub/internal/config"
	"propertyhub/internal/middleware"
	"propertyhub/internal/modules/auth"
	"propertyhub/internal/modules/chat"
	"propertyhub/internal/modules/complaint"
	"propertyhub/internal/modules/notification"
	"propertyhub/internal/modules/workorder"
	jwtsvc "propertyhub/internal/pkg/jwt"
	"propertyhub/internal/pkg/response"
	"propertyhub/internal/repository"
)

// App is the assembled hub: one registry shared by every socket and service.
type App struct {
	Router   *gin.Engine
	Registry *notification.Registry
	Tokens   *jwtsvc.Service
}

// New wires repositories, services and handlers onto a gin engine.
// journal may be nil.
func New(cfg *config.Config, db *gorm.DB, journal notification.Journal, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewWorkOrderRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	chatRepo := repository.NewChatRepository(db)

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	registry := notification.NewRegistry()

	var opts []notification.Option
	if journal != nil {
		opts = append(opts, notification.WithJournal(journal))
	}
	dispatcher := notification.NewDispatcher(registry, logger, opts...)

	clientOpts := notification.ClientOptions{
		WriteWait:      cfg.WS.WriteWait,
		PongWait:       cfg.WS.PongWait,
		PingPeriod:     cfg.WS.PingPeriod(),
		SendBuffer:     cfg.WS.SendBuffer,
		MaxMessageSize: cfg.WS.MaxMessageSize,
	}
	upgrader := notification.NewUpgrader(cfg.CORSAllowedOrigins)

	authService := auth.NewService(userRepo, tokens)
	authHandler := auth.NewHandler(authService)

	workorderService := workorder.NewService(orderRepo, userRepo, dispatcher, logger)
	workorderHandler := workorder.NewHandler(workorderService)

	complaintService := complaint.NewService(complaintRepo, userRepo, dispatcher, logger)
	complaintHandler := complaint.NewHandler(complaintService)

	chatService := chat.NewService(chatRepo, orderRepo, userRepo, dispatcher, cfg.ChatHistoryLimit, logger)
	chatHandler := chat.NewHandler(chatService, registry, tokens, upgrader, clientOpts, logger)

	notificationHandler := notification.NewHandler(registry, tokens, upgrader, clientOpts, logger)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.ErrorLogger(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	notificationHandler.RegisterRoutes(r)
	chatHandler.RegisterWS(r)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{"time": time.Now().UTC()})
		})
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			workorderHandler.RegisterRoutes(protected)
			complaintHandler.RegisterRoutes(protected)
			chatHandler.RegisterRoutes(protected)
		}
	}

	return &App{Router: r, Registry: registry, Tokens: tokens}
}
