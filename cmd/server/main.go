package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/internal/infrastructure/config"
	"killua-service-provider/internal/infrastructure/oauth"
	"killua-service-provider/internal/infrastructure/persistence"
	"killua-service-provider/internal/infrastructure/router"
	"killua-service-provider/internal/interface/api"
	"killua-service-provider/internal/interface/broker"
	"killua-service-provider/internal/interface/gmail"
	storeRepo "killua-service-provider/internal/interface/repository"
	"killua-service-provider/internal/usecase"
	"killua-service-provider/pkg/logger"
	"killua-service-provider/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Killua Service Provider", "version", cfg.AppVersion)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(cfg.MetricsNamespace)

	// Set up PostgreSQL connection
	log.Info("Connecting to PostgreSQL")
	gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI, persistence.PostgresOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}
	if cfg.DBAutoMigrate {
		if err := storeRepo.AutoMigrate(gormDB); err != nil {
			log.Fatal("Failed to migrate PostgreSQL schema", "error", err)
		}
	}

	serviceRepo := storeRepo.NewGormServiceRepository(gormDB)
	notificationRepo := storeRepo.NewGormNotificationRepository(gormDB)

	// Delivery log is optional
	var (
		mongoClient  *mongo.Client
		deliveryRepo repository.DeliveryRepository
	)
	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB")
		client, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		mongoClient = client
		deliveryRepo = storeRepo.NewMongoDeliveryRepository(db)
	}

	// Expiry notice guard
	var (
		redisClient *redis.Client
		expiryGuard repository.ExpiryNoticeGuard
	)
	if cfg.RedisAddr != "" {
		log.Info("Connecting to Redis")
		redisClient, err = persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		if cfg.ExpiredNoticePolicy == config.ExpiredNoticeOnce {
			expiryGuard = storeRepo.NewRedisExpiryGuard(redisClient)
		}
	}

	serviceManager := usecase.NewServiceManager(serviceRepo, m, log, usecase.ServiceManagerOptions{
		Location:         cfg.Location,
		ExpiryGuard:      expiryGuard,
		ExpiredNoticeTTL: cfg.ExpiredNoticeTTL,
	})
	notificationService := usecase.NewNotificationService(notificationRepo, deliveryRepo, log)

	// Outbound sinks
	eventRouter := router.NewEventRouter(log)

	var publisher *broker.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = broker.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, entity.NewEventSet(cfg.RabbitMQEvents))
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		eventRouter.Register(publisher)
	}

	if cfg.GmailEnabled() {
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			log,
		)
		mailer, err := gmail.NewGmailMailer(ctx, gmailOAuth.GetTokenSource(ctx), gmail.MailerOptions{
			From:     cfg.NotifyEmailFrom,
			To:       cfg.NotifyEmailTo,
			Events:   entity.NewEventSet(cfg.NotifyEmailEvents),
			Location: cfg.Location,
		}, log)
		if err != nil {
			log.Fatal("Failed to create Gmail mailer", "error", err)
		}
		eventRouter.Register(mailer)
	}

	if cfg.WebhookURL != "" {
		eventRouter.Register(storeRepo.NewWebhookSink(cfg.WebhookURL, cfg.WebhookToken, entity.NewEventSet(cfg.WebhookEvents), log))
	}

	if eventRouter.Len() > 0 {
		dispatcher := usecase.NewNotificationDispatcher(notificationRepo, deliveryRepo, eventRouter, m, log, usecase.DispatcherOptions{
			BatchSize:   cfg.DispatchBatchSize,
			MaxAttempts: cfg.DispatchMaxAttempts,
		})
		go dispatcher.Start(ctx, cfg.DispatchInterval)
	} else {
		log.Info("No notification sinks configured, dispatcher disabled")
	}

	if cfg.ExpiryScanInterval > 0 {
		worker := usecase.NewExpiryWorker(serviceManager, cfg.ExpiryScanInterval, log)
		go worker.Start(ctx)
	}

	// Set up HTTP server
	gin.SetMode(cfg.GinMode)
	handler := api.InitRoutes(
		api.NewServiceHandler(serviceManager),
		api.NewNotificationHandler(notificationService),
		m,
		log,
		api.RouterOptions{
			Version:        cfg.AppVersion,
			RequestTimeout: cfg.RequestTimeout,
			MetricsHandler: promhttp.Handler(),
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error("RabbitMQ close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", "error", err)
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}
	if err := persistence.ClosePostgresDB(gormDB); err != nil {
		log.Error("PostgreSQL close error", "error", err)
	}

	log.Info("Killua Service Provider stopped")
}
