package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/afrydman/AuditTrail/internal/config"
	"github.com/afrydman/AuditTrail/internal/handlers"
	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := pkg.NewLogger(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mongodb, err := repository.Connect(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongodb.Disconnect()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// The limiter fails open without Redis; the server still runs.
		logger.Warn("redis unavailable, login throttling disabled", zap.Error(err))
	}
	defer redisClient.Close()

	storage, err := services.NewStorageProvider(&services.StorageConfig{
		Provider:    cfg.Storage.Provider,
		Bucket:      cfg.Storage.Bucket,
		Region:      cfg.Storage.Region,
		AccessKey:   cfg.Storage.AccessKey,
		SecretKey:   cfg.Storage.SecretKey,
		Endpoint:    cfg.Storage.Endpoint,
		LocalPath:   cfg.Storage.LocalPath,
		MaxFileSize: cfg.Storage.MaxFileSize,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage provider", zap.Error(err))
	}

	jwtManager := pkg.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
	)

	repos := repository.NewRepositories(mongodb)

	auditService := services.NewAuditService(repos.Audit, logger)
	changes := services.NewChangeRecorder(auditService, logger, cfg.Audit.FailClosed)
	permissionService := services.NewPermissionService(
		repos.User, repos.Role, repos.Folder, repos.File, repos.Access, changes, logger)
	authService := services.NewAuthService(
		repos.User, repos.Role, repos.LoginAttempt, auditService, changes, jwtManager, logger)
	folderService := services.NewFolderService(
		repos.Folder, repos.File, permissionService, changes, logger)
	fileService := services.NewFileService(
		repos.File, repos.Folder, storage, permissionService, changes, auditService, logger,
		cfg.Storage.MaxFileSize)
	userService := services.NewUserService(repos.User, repos.Role, changes, logger)

	if err := userService.EnsureSeedRoles(context.Background()); err != nil {
		logger.Fatal("failed to seed roles", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, repos.User, logger)
	loginLimiter := middleware.NewRateLimiter(
		redisClient, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, "ratelimit:login", logger)

	handlers.RegisterRoutes(engine, &handlers.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Folder:     handlers.NewFolderHandler(folderService, fileService),
		File:       handlers.NewFileHandler(fileService),
		Permission: handlers.NewPermissionHandler(permissionService),
		Audit:      handlers.NewAuditHandler(auditService),
		User:       handlers.NewUserHandler(userService, authService),
	}, authMiddleware, loginLimiter)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
