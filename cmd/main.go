package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Dosada05/sports-registration/config"
	"github.com/Dosada05/sports-registration/db"
	"github.com/Dosada05/sports-registration/handlers"
	"github.com/Dosada05/sports-registration/middleware"
	"github.com/Dosada05/sports-registration/repositories"
	api "github.com/Dosada05/sports-registration/routes"
	"github.com/Dosada05/sports-registration/services"
	"github.com/Dosada05/sports-registration/sessions"
	"github.com/Dosada05/sports-registration/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("failed to apply database schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	// Хранилище документов (S3-совместимое), опционально
	var uploader storage.FileUploader
	if cfg.StorageEnabled() {
		uploader, err = storage.NewS3Uploader(ctx, storage.S3UploaderConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3Bucket,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("object storage initialized", slog.String("bucket", cfg.S3Bucket))
	} else {
		logger.Warn("object storage is not configured, document uploads are disabled")
	}

	// Реестр сессий: Redis при наличии REDIS_URL, иначе в памяти
	var registry sessions.Registry
	if cfg.RedisURL != "" {
		redisClient, err := sessions.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		registry = sessions.NewRedisRegistry(redisClient, sessions.DefaultActiveTTL, sessions.DefaultRevokedTTL)
		logger.Info("redis session registry initialized")
	} else {
		registry = sessions.NewMemoryRegistry(sessions.DefaultActiveTTL, sessions.DefaultRevokedTTL)
		logger.Info("in-memory session registry initialized")
	}

	// Инициализация репозиториев
	store := repositories.NewPostgresRegistrationStore(dbConn)
	sportRepo := repositories.NewPostgresSportRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	documentRepo := repositories.NewPostgresDocumentRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	documentService := services.NewDocumentService(store, documentRepo, uploader, logger)
	teamService := services.NewTeamService(store, documentService, logger)
	queryService := services.NewRegistrationQueryService(store, eventRepo, cfg.PublicURL)
	accessService := services.NewAccessService(store)
	catalogService := services.NewCatalogService(sportRepo, eventRepo)
	qrCodeService := services.NewQRCodeService(store, nil, cfg.PublicURL)
	adminService := services.NewAdminService(store, eventRepo, userRepo, adminRepo, documentService, logger)
	logger.Info("Services initialized")

	// Сверка сессий и доставка SESSION_INVALIDATED
	hub := sessions.NewHub(logger)
	reconciler := sessions.NewReconciler(registry, userRepo, cfg.SessionCheckInterval, logger)

	var background sync.WaitGroup
	background.Add(3)
	go func() {
		defer background.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer background.Done()
		reconciler.Run(ctx)
	}()
	go func() {
		defer background.Done()
		hub.Forward(reconciler.Events())
	}()
	logger.Info("session reconciler started", slog.Duration("interval", cfg.SessionCheckInterval))

	// Инициализация обработчиков HTTP
	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey, registry, logger)
	h := api.Handlers{
		Health:       handlers.NewHealthHandler(dbConn, logger),
		Catalog:      handlers.NewCatalogHandler(catalogService, logger),
		Registration: handlers.NewRegistrationHandler(teamService, queryService, accessService, qrCodeService, logger),
		Invite:       handlers.NewInviteHandler(teamService, queryService, qrCodeService, logger),
		Document:     handlers.NewDocumentHandler(documentService, logger),
		Admin:        handlers.NewAdminHandler(adminService, logger),
		Session:      handlers.NewSessionHandler(hub, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, h, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Authenticator:  authenticator,
		RequireAdmin:   middleware.RequireAdmin(adminService, logger),
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Останавливаем сверку сессий и закрываем websocket-соединения
	stop()
	background.Wait()
	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
