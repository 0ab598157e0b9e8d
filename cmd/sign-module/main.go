// Точка входа модуля подписания документов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует blob-хранилище, сервисный слой и API handlers,
// запускает регистратор аудита, topologymetrics, HTTP-сервер
// с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/docsign/internal/api/handlers"
	"github.com/bigkaa/docsign/internal/api/middleware"
	"github.com/bigkaa/docsign/internal/config"
	"github.com/bigkaa/docsign/internal/database"
	"github.com/bigkaa/docsign/internal/repository"
	"github.com/bigkaa/docsign/internal/server"
	"github.com/bigkaa/docsign/internal/service"
	"github.com/bigkaa/docsign/internal/stamp"
	"github.com/bigkaa/docsign/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Модуль подписания запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("SM_DEPHEALTH_GROUP") == "" {
		logger.Warn("SM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Blob-хранилище PDF
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов",
			slog.String("data_dir", cfg.DataDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище файлов инициализировано", slog.String("data_dir", cfg.DataDir))

	// 6. Repositories
	docRepo := repository.NewDocumentRepository(pool)
	sigRepo := repository.NewSignatureRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slotStore := repository.NewSignatureSlotStore(repository.NewTxRunner(pool))

	// 7. Регистратор аудита (асинхронный)
	recorder := service.NewAuditRecorder(auditRepo, sigRepo, cfg.AuditQueueSize, logger)
	recorder.Start()
	defer recorder.Stop()

	// 8. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	documentsSvc := service.NewDocumentService(docRepo, store, cache, recorder, logger)
	placementSvc := service.NewPlacementService(sigRepo, documentsSvc, recorder, logger)
	approvalSvc := service.NewApprovalService(sigRepo, slotStore, recorder, logger)
	finalizeSvc := service.NewFinalizeService(sigRepo, documentsSvc, store, stamp.New(), recorder, logger)
	inviteSvc := service.NewInviteService(
		documentsSvc, service.NewLogMailer(logger), recorder,
		cfg.InviteSecret, cfg.InviteTTL, cfg.PublicBaseURL,
		logger,
	)
	auditSvc := service.NewAuditService(auditRepo, docRepo)

	// 9. Health handler (PostgreSQL + хранилище)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, store)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		documentsSvc,
		placementSvc,
		approvalSvc,
		finalizeSvc,
		inviteSvc,
		auditSvc,
		logger,
	)

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTCACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"sign-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 13. HTTP-сервер.
	// JWT не применяется к health, метрикам и погашению приглашений.
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(
			jwtAuth.Middleware(),
			"/health/", "/metrics", "/api/v1/invites/redeem",
		),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
