package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zapagenda/config"
	"zapagenda/cron"
	"zapagenda/database"
	bookingRepoPkg "zapagenda/database/repository/booking"
	conversationRepoPkg "zapagenda/database/repository/conversation"
	tenantRepoPkg "zapagenda/database/repository/tenant"
	"zapagenda/handlers"
	"zapagenda/middleware"
	"zapagenda/routes"
	"zapagenda/services/assistant"
	"zapagenda/services/booking"
	"zapagenda/services/messaging"
	"zapagenda/services/notification"
	"zapagenda/services/transcription"
	"zapagenda/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitLockClient()
	utils.FirebaseInit()

	stripe.Key = config.AppConfig.StripeKey

	// Repositories.
	tenantRepo := tenantRepoPkg.NewMongoTenantRepo()
	convoRepo := conversationRepoPkg.NewMongoConversationRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()

	if err := tenantRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: tenant indexes: %v", err)
	}
	if err := convoRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: conversation indexes: %v", err)
	}
	if err := bookingRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: booking indexes: %v", err)
	}

	// Services.
	notifier, err := notification.NewDefaultNotificationService(tenantRepo)
	if err != nil {
		logger.Sugar().Fatalf("main: notification service: %v", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queue.Close()

	executor := booking.NewExecutor(tenantRepo, bookingRepo, notifier, queue)

	engine, err := assistant.NewGeminiTurnEngine(config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
	if err != nil {
		logger.Sugar().Fatalf("main: turn engine: %v", err)
	}

	turnLock := assistant.NewTurnLock(utils.GetLockClient())
	orchestrator := assistant.NewOrchestrator(tenantRepo, convoRepo, executor, engine, turnLock, utils.GetCacheClient())
	sender := messaging.NewEvolutionClient()

	// Handler wiring.
	handlers.TenantRepo = tenantRepo
	handlers.ConvoRepo = convoRepo
	handlers.BookingRepo = bookingRepo
	handlers.Orchestrator = orchestrator
	handlers.Sender = sender
	handlers.Transcriber = transcription.NewGoogleTranscriber()
	handlers.Executor = executor

	// Hold-expiry worker.
	cron.InitHoldExpiryWorker(bookingRepo, tenantRepo, sender, notifier)

	// Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	routes.RegisterRoutes(router)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
