package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"location-service/internal/auth"
	"location-service/internal/db"
	"location-service/internal/dispatch"
	"location-service/internal/handlers"
	"location-service/internal/logger"
	"location-service/internal/middleware"
	"location-service/internal/observability"
	"location-service/internal/presence"
	"location-service/internal/privacy"
	"location-service/internal/rabbitmq"
	"location-service/internal/repositories"
	"location-service/internal/telemetry"
	"location-service/internal/ws"
)

const serviceName = "location-service"

func main() {
	zlog, err := logger.New()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName)
	if err != nil {
		zlog.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zlog.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	database, err := db.Connect()
	if err != nil {
		zlog.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		zlog.Fatal("JWT_SECRET is required")
	}
	verifier := auth.NewVerifier(secret)

	amqpURL := os.Getenv("AMQP_URL")
	exchange := getEnv("AMQP_EXCHANGE", "location_events")

	eventPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		zlog.Warn("ws event publishing disabled", zap.Error(err))
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, exchange, zlog)
	defer auditPublisher.Close()
	zlog.Info("audit publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(auditPublisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(auditPublisher)))

	audit := telemetry.NewAuditEmitter(
		auditPublisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.location"),
		serviceName,
		getEnv("ENVIRONMENT", "development"),
		zlog,
	)

	userRepo := repositories.NewUserRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	sosRepo := repositories.NewSOSRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	parentalRepo := repositories.NewParentalRepo(database)

	registry := presence.NewRegistry()
	gate := privacy.NewGate(userRepo, zlog)
	dispatcher := dispatch.NewDispatcher(registry, gate, userRepo, friendRepo, messageRepo, sosRepo, notificationRepo, parentalRepo, zlog)

	socketHandler := ws.NewSocketHandler(registry, dispatcher, friendRepo, userRepo, verifier, zlog)

	userHandler := handlers.NewUserHandler(userRepo, gate, audit)
	friendHandler := handlers.NewFriendHandler(friendRepo, userRepo, notificationRepo, gate)
	chatHandler := handlers.NewChatHandler(messageRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	sosHandler := handlers.NewSOSHandler(dispatcher, sosRepo, audit)
	parentalHandler := handlers.NewParentalHandler(parentalRepo, userRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(verifier)

	api := router.Group("/api", authMiddleware)

	api.GET("/users/profile", userHandler.GetProfile)
	api.GET("/users/search", userHandler.SearchUsers)
	api.POST("/users/ghost-mode", userHandler.SetGhostMode)
	api.GET("/users/ghost-mode", userHandler.GhostModeStatus)
	api.POST("/location", userHandler.UpdateLocation)

	api.GET("/friends", friendHandler.ListFriends)
	api.POST("/friends/request", friendHandler.SendRequest)
	api.GET("/friends/requests", friendHandler.ListRequests)
	api.POST("/friends/accept/:request_id", friendHandler.AcceptRequest)
	api.POST("/friends/reject/:request_id", friendHandler.RejectRequest)
	api.DELETE("/friends/:friend_id", friendHandler.RemoveFriend)

	api.GET("/chat/:friend_id", chatHandler.GetMessages)
	api.GET("/chat/unread/count", chatHandler.GetUnreadCount)
	api.POST("/chat/read/:friend_id", chatHandler.MarkAsRead)

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read/:id", notificationHandler.MarkRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	api.GET("/notifications/unread/count", notificationHandler.UnreadCount)

	api.POST("/sos", sosHandler.Send)
	api.POST("/sos/resolve/:id", sosHandler.Resolve)
	api.GET("/sos/active", sosHandler.Active)

	api.POST("/parental/request", parentalHandler.SendRequest)
	api.GET("/parental/children", parentalHandler.GetChildren)
	api.GET("/parental/requests", parentalHandler.GetRequests)
	api.POST("/parental/accept/:id", parentalHandler.Accept)
	api.POST("/parental/reject/:id", parentalHandler.Reject)

	router.GET("/ws", socketHandler.Handle)

	handlers.RegisterDebugRoutes(router, audit, os.Getenv("DEBUG_ROUTES") == "true")

	port := getEnv("PORT", "8080")
	zlog.Info("starting server", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
