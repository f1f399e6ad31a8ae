package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/engineer-market-backend/internal/address"
	"github.com/ignatzorin/engineer-market-backend/internal/config"
	"github.com/ignatzorin/engineer-market-backend/internal/db"
	httpHandlers "github.com/ignatzorin/engineer-market-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/engineer-market-backend/internal/http/router"
	"github.com/ignatzorin/engineer-market-backend/internal/logger"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
	"github.com/ignatzorin/engineer-market-backend/internal/service"
	"github.com/ignatzorin/engineer-market-backend/internal/ws"
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
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
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

	// Токены выпускает внешний сервис идентификации, здесь только проверка.
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	requestRepo := repository.NewRequestRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы.
	addressClient := address.NewClient(cfg.AddressResolverURL)
	requestService := service.NewRequestService(requestRepo, addressClient, hub)
	adminService := service.NewAdminService(requestRepo, hub)

	// Фоновая чистка просроченных заявок.
	sweepService := service.NewSweepService(requestRepo, hub, cfg.RequestTTL, cfg.SweepInterval, cfg.CounterResetInterval)
	go sweepService.Run(ctx)

	// HTTP хэндлеры.
	requestHandler := httpHandlers.NewRequestHandler(requestService)
	offerHandler := httpHandlers.NewOfferHandler(requestService)
	adminHandler := httpHandlers.NewAdminHandler(adminService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, requestHandler, offerHandler, adminHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

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
