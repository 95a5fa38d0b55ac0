package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vaidarjogo/go-confirmation-service/internal/consumer"
	"github.com/vaidarjogo/go-confirmation-service/internal/dlq"
	"github.com/vaidarjogo/go-confirmation-service/internal/handler"
	"github.com/vaidarjogo/go-confirmation-service/internal/middleware"
	"github.com/vaidarjogo/go-confirmation-service/internal/repository"
	"github.com/vaidarjogo/go-confirmation-service/internal/scheduler"
	"github.com/vaidarjogo/go-confirmation-service/internal/service"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/config"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/mongodb"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/rabbitmq"
	"github.com/vaidarjogo/go-confirmation-service/internal/webhook"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Confirmation Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize RabbitMQ
	rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQClient.Close()

	// Initialize repositories
	gameRepo := repository.NewGameRepository(mongoClient)
	playerRepo := repository.NewPlayerRepository(mongoClient)
	sendLogRepo := repository.NewSendLogRepository(mongoClient)
	confirmationRepo := repository.NewConfirmationRepository(mongoClient)
	deadLetterRepo := repository.NewDeadLetterRepository(mongoClient)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"games":         gameRepo.EnsureIndexes,
		"players":       playerRepo.EnsureIndexes,
		"send_logs":     sendLogRepo.EnsureIndexes,
		"confirmations": confirmationRepo.EnsureIndexes,
		"dead_letters":  deadLetterRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			log.Error("Failed to ensure indexes", "collection", name, "error", err)
		}
	}
	cancelIndexes()

	// Resolve the default timezone for games without one
	defaultLoc, err := time.LoadLocation(cfg.Scheduler.DefaultTimezone)
	if err != nil {
		log.Warn("Invalid default timezone, falling back to UTC", "timezone", cfg.Scheduler.DefaultTimezone)
		defaultLoc = time.UTC
	}

	// Initialize WhatsApp transport
	whatsappClient := whatsapp.NewClient(cfg.WhatsApp, log.With("whatsapp"))

	// Initialize services
	confirmationService := service.NewConfirmationService(
		gameRepo,
		playerRepo,
		sendLogRepo,
		confirmationRepo,
		deadLetterRepo,
		whatsappClient,
		defaultLoc,
		cfg.Scheduler.MaxSendAttempts,
		log.With("confirmations"),
	)
	responseService := service.NewResponseService(playerRepo, gameRepo, confirmationRepo, log.With("responses"))

	broadcastService := service.NewBroadcastService(whatsappClient, playerRepo, gameRepo, cfg.Server.BroadcastWorkers, log.With("broadcast"))
	broadcastService.Start()
	defer broadcastService.Stop()

	// Initialize Dead Letter Queue
	deadLetterQueue := dlq.NewDeadLetterQueue(deadLetterRepo, log.With("dlq"))

	// Initialize Scheduler
	confirmationScheduler := scheduler.NewConfirmationScheduler(confirmationService, cfg.Scheduler.IntervalMinutes, log.With("scheduler"))
	if err := confirmationScheduler.Start(); err != nil {
		log.Error("Failed to start scheduler", "error", err)
	}
	defer confirmationScheduler.Stop()

	// Initialize HTTP handlers
	confirmationHandler := handler.NewConfirmationHandler(confirmationService, confirmationScheduler, log)
	schedulerHandler := handler.NewSchedulerHandler(confirmationScheduler, log)
	broadcastHandler := handler.NewBroadcastHandler(broadcastService, log)
	dlqHandler := handler.NewDLQHandler(deadLetterQueue, confirmationService, log)
	whatsappWebhook := webhook.NewWhatsAppHandler(whatsappClient, rabbitMQClient, log.With("webhook"))

	// Initialize rate limiter
	rateLimiter := middleware.NewGameRateLimiter(cfg.Server.RateLimitPerGame, cfg.Server.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Confirmations
		confirmations := v1.Group("/confirmations")
		{
			confirmations.POST("/process", confirmationHandler.ProcessAll)
			confirmations.POST("/process/:game_id", confirmationHandler.ProcessGame)
			confirmations.POST("/manual", confirmationHandler.SendManual)
			confirmations.GET("/logs", confirmationHandler.GetSendLogs)
		}

		// Scheduler control
		sched := v1.Group("/scheduler")
		{
			sched.GET("/status", schedulerHandler.Status)
			sched.POST("/start", schedulerHandler.Start)
			sched.POST("/stop", schedulerHandler.Stop)
			sched.PUT("/interval", schedulerHandler.SetInterval)
		}

		// Broadcasts
		v1.POST("/messages/broadcast", broadcastHandler.Send)

		// Dead Letter Queue
		dlqRoutes := v1.Group("/dlq")
		{
			dlqRoutes.GET("", dlqHandler.List)
			dlqRoutes.POST("/:id/requeue", dlqHandler.Requeue)
		}

		// Transport account health
		v1.GET("/whatsapp/status", whatsappWebhook.AccountStatus)
	}

	// Webhooks (no rate limiting for the transport provider)
	webhooks := router.Group("/webhooks")
	{
		webhooks.GET("/whatsapp", whatsappWebhook.Verify)
		webhooks.POST("/whatsapp", whatsappWebhook.Receive)
	}

	// Start RabbitMQ reply consumer
	replyConsumer := consumer.NewReplyConsumer(rabbitMQClient, responseService, log.With("consumer"))
	go func() {
		if err := replyConsumer.Start(); err != nil {
			log.Error("Failed to start reply consumer", "error", err)
		}
	}()

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Confirmation Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Confirmation Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Confirmation Service stopped")
}
