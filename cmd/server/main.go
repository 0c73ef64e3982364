package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/accmarket-backend/internal/accountdata"
	"github.com/ignatzorin/accmarket-backend/internal/config"
	"github.com/ignatzorin/accmarket-backend/internal/db"
	"github.com/ignatzorin/accmarket-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/accmarket-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/accmarket-backend/internal/http/router"
	"github.com/ignatzorin/accmarket-backend/internal/ledger"
	"github.com/ignatzorin/accmarket-backend/internal/logger"
	"github.com/ignatzorin/accmarket-backend/internal/repository"
	"github.com/ignatzorin/accmarket-backend/internal/service"
	"github.com/ignatzorin/accmarket-backend/internal/storage"
	"github.com/ignatzorin/accmarket-backend/internal/valuation"
	"github.com/ignatzorin/accmarket-backend/internal/ws"
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
	}
	logger.Init(logLevel, cfg.Env)

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

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить хранилище улик: %v", err)
	}

	// Внешние коллабораторы. Леджер здесь встроенный: внешний провайдер
	// подключается той же парой интерфейс + адаптер.
	accountData := accountdata.NewClient(cfg.AccountDataBaseURL)
	valuationClient := valuation.NewClient(cfg.ValuationBaseURL)
	ledgerClient := ledger.NewAdapter(ledger.NewMemoryLedger(), cfg.LedgerMaxRetries, cfg.LedgerRetryBase)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	listingRepo := repository.NewListingRepository(dbConn)
	transactionRepo := repository.NewTransactionRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGo(hub.Run)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	verificationService := service.NewVerificationService(accountData, service.VerificationConfig{
		MinRecentPosts:       cfg.MinRecentPosts,
		BotCadenceStdDev:     cfg.BotCadenceStdDev,
		GrowthSpikeThreshold: cfg.GrowthSpikeThreshold,
		GrowthMaxSpikes:      cfg.GrowthMaxSpikes,
		Timeout:              cfg.VerificationTimeout,
	})
	fraudService := service.NewFraudService(transactionRepo, service.FraudConfig{
		SingleTxThreshold: cfg.AMLSingleTxThreshold,
		DailyThreshold:    cfg.AMLDailyThreshold,
		PatternThreshold:  cfg.AMLPatternThreshold,
		SimilarityBand:    cfg.AMLSimilarityBand,
		PatternWindow:     cfg.AMLPatternWindow,
	})
	proofVerifier := service.NewEvidenceProofVerifier(evidenceStorage)
	listingService := service.NewListingService(
		listingRepo, transactionRepo, verificationRepo, disputeRepo,
		verificationService, proofVerifier, fraudService, ledgerClient, hub,
		cfg.FeeRateBps,
	)
	disputeService := service.NewDisputeService(disputeRepo, listingRepo, transactionRepo, ledgerClient, hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	listingHandler := httpHandlers.NewListingHandler(listingService, accountData, valuationClient)
	transactionHandler := httpHandlers.NewTransactionHandler(listingService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	evidenceHandler := httpHandlers.NewEvidenceHandler(evidenceStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, listingHandler, transactionHandler, disputeHandler, evidenceHandler, wsHandler, healthHandler, tokenManager)

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
