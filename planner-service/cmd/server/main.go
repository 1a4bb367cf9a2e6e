package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ganita-server/planner-service/internal/api"
	"ganita-server/planner-service/internal/compiler"
	"ganita-server/planner-service/internal/config"
	"ganita-server/planner-service/internal/inflight"
	"ganita-server/planner-service/internal/intent"
	"ganita-server/planner-service/internal/messaging"
	"ganita-server/planner-service/internal/planner"
	"ganita-server/planner-service/internal/service"
	"ganita-server/shared/database"
	sharedLogger "ganita-server/shared/logger"
	sharedMiddleware "ganita-server/shared/middleware"
	"ganita-server/shared/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	zap.L().Info("Connected to RabbitMQ")

	// --- Dependency Injection ---
	aiClient, err := planner.NewAIClient(cfg)
	if err != nil {
		zap.L().Fatal("Failed to create AI client", zap.Error(err))
	}

	renderCache := database.NewRedisRenderCache(redisClient, cfg.CacheTTL, logger)
	taskPublisher, err := messaging.NewRabbitMQRenderTaskPublisher(mqConn)
	if err != nil {
		zap.L().Fatal("Failed to create RenderTaskPublisher", zap.Error(err))
	}

	limits := planner.Limits{
		DefaultStepDuration: cfg.DefaultStepDuration,
		MaxTotalDuration:    cfg.MaxTotalDuration,
	}
	sceneService := service.NewSceneService(
		intent.NewExtractor(logger),
		planner.NewGenerator(aiClient, cfg.AIMaxAttempts, cfg.AIBaseRetryDelay, logger),
		planner.NewFallbackEngine(),
		compiler.New(cfg.DefaultStepDuration),
		limits,
		renderCache,
		inflight.NewRegistry(),
		taskPublisher,
		models.NormalizeQuality(cfg.DefaultQuality),
		logger,
	)
	sceneHandler := api.NewSceneHandler(sceneService, logger)

	// Консьюмер результатов рендеринга будит ожидающих по fingerprint
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	resultConsumer := messaging.NewResultConsumer(mqConn, sceneService, logger)
	if err := resultConsumer.Start(consumerCtx); err != nil {
		zap.L().Fatal("Failed to start render result consumer", zap.Error(err))
	}

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.ZapLoggingMiddlewareForGin(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sceneHandler.RegisterRoutes(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // пайплайн держит запрос на время вызова AI
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	consumerCancel()
	if err := resultConsumer.Stop(); err != nil {
		zap.L().Error("Error stopping result consumer", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupRedis подключается к Redis и проверяет соединение.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second

	for i := 1; i <= maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", i),
			zap.Int("maxRetries", maxRetries),
			zap.Duration("delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
