package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jerryawoyele/markezon-backend/internal/config"
	"github.com/jerryawoyele/markezon-backend/internal/db"
	httpHandlers "github.com/jerryawoyele/markezon-backend/internal/http/handlers"
	httpRouter "github.com/jerryawoyele/markezon-backend/internal/http/router"
	"github.com/jerryawoyele/markezon-backend/internal/logger"
	"github.com/jerryawoyele/markezon-backend/internal/payment"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/service"
	"github.com/jerryawoyele/markezon-backend/internal/storage"
	"github.com/jerryawoyele/markezon-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	serviceRepo := repository.NewServiceRepository(dbConn)
	bookingRepo := repository.NewBookingRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	postRepo := repository.NewPostRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	outboxRepo := repository.NewOutboxRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	cache := service.NewCacheService()
	notificationService := service.NewNotificationService(notificationRepo, hub, outboxRepo)
	authService := service.NewAuthService(userRepo, tokenManager)
	profileService := service.NewProfileService(userRepo, notificationService, cache)
	catalogService := service.NewCatalogService(serviceRepo)
	bookingService := service.NewBookingService(bookingRepo, escrowRepo, userRepo, serviceRepo, notificationService, cfg.DisputeWindow)
	disputeService := service.NewDisputeService(escrowRepo, notificationService)
	postService := service.NewPostService(postRepo, notificationService)
	mediaService := service.NewMediaService(mediaRepo, photoStorage)

	feedCfg := service.DefaultFeedConfig()
	feedCfg.PageSize = cfg.FeedPageSize
	feedCfg.DecayHalfLife = cfg.FeedDecayHalfLife
	feedCfg.BoostBasic = cfg.BoostBasic
	feedCfg.BoostPremium = cfg.BoostPremium
	feedCfg.BoostFeatured = cfg.BoostFeatured
	feedService := service.NewFeedService(postRepo, userRepo, cache, feedCfg)

	// Воркер отложенных операций: возвраты и отложенные уведомления.
	var gateway service.PaymentGateway
	if cfg.PaymentGatewayURL != "" {
		gateway = payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayKey, cfg.ExternalTimeout)
	} else {
		gateway = payment.NewLogGateway()
	}
	outboxWorker := service.NewOutboxWorker(outboxRepo, escrowRepo, gateway, notificationService, service.OutboxConfig{
		PollInterval:    cfg.OutboxPollInterval,
		MaxAttempts:     cfg.OutboxMaxAttempts,
		ExternalTimeout: cfg.ExternalTimeout,
	})
	outboxWorker.Start(ctx)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(profileService)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	bookingHandler := httpHandlers.NewBookingHandler(bookingService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	postHandler := httpHandlers.NewPostHandler(postService)
	feedHandler := httpHandlers.NewFeedHandler(feedService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, outboxRepo)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		profileHandler,
		catalogHandler,
		bookingHandler,
		disputeHandler,
		postHandler,
		feedHandler,
		notificationHandler,
		mediaHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
