package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civic-desk/complaint-service/internal/api/http"
	"github.com/civic-desk/complaint-service/internal/api/http/handlers"
	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/config"
	"github.com/civic-desk/complaint-service/internal/events"
	"github.com/civic-desk/complaint-service/internal/observability"
	"github.com/civic-desk/complaint-service/internal/persistence"
	"github.com/civic-desk/complaint-service/internal/repository"
	"github.com/civic-desk/complaint-service/internal/repository/memory"
	"github.com/civic-desk/complaint-service/internal/service"
	"github.com/civic-desk/complaint-service/internal/storage"
	"github.com/civic-desk/complaint-service/internal/worker"
)

type repositories struct {
	complaints  repository.ComplaintRepository
	history     repository.StatusHistoryRepository
	messages    repository.ComplaintMessageRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg, logger)

	files, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	var revoker auth.TokenRevoker = auth.NewMemoryTokenRevoker()
	if cfg.Auth.RevocationUsesRedis && redis.Enabled() {
		revoker = auth.NewRedisTokenRevoker(redis.Client)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(logger, cfg.Notification, metrics)
	notifier := worker.StartNotificationWorker(ctx, dispatcher, notifications, logger, 256)

	workflow := service.NewWorkflowService(service.WorkflowDependencies{
		ComplaintRepo: repos.complaints,
		HistoryRepo:   repos.history,
		MessageRepo:   repos.messages,
		Files:         files,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		ImageMaxBytes: cfg.Storage.ImageMaxBytes(),
	})
	identity := service.NewIdentityService(*cfg, service.IdentityDependencies{
		UserRepo:          repos.users,
		DepartmentRepo:    repos.departments,
		PasswordResetRepo: repos.resets,
		Tokens:            tokens,
		Revoker:           revoker,
		Files:             files,
		Logger:            logger,
	})
	departments := service.NewDepartmentService(repos.departments, logger, metrics)

	app := httptransport.NewApp(cfg.App, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(identity, cfg.App.Env != "production"),
		Complaints:     handlers.NewComplaintsHandler(workflow),
		Admin:          handlers.NewAdminHandler(workflow),
		Departments:    handlers.NewDepartmentsHandler(departments),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, revoker, identity, logger),
		LoginLimiter:   auth.NewLoginLimiter(cfg.Auth.LoginAttemptsPerMinute),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	shutdown(logger, app, notifier, cancel)
}

// shutdown stops intake first, then lets the worker drain its queue before
// the root context is cancelled.
func shutdown(logger *zap.Logger, app *fiber.App, notifier *worker.NotificationWorker, cancel context.CancelFunc) {
	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifier.Stop()
	cancel()
}

// buildRepositories uses Postgres when a pool is available and the
// in-process store otherwise.
func buildRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return repositories{
			complaints:  repository.NewComplaintRepository(pool),
			history:     repository.NewStatusHistoryRepository(pool),
			messages:    repository.NewComplaintMessageRepository(pool),
			departments: repository.NewDepartmentRepository(pool),
			users:       repository.NewUserRepository(pool),
			resets:      repository.NewPasswordResetRepository(pool),
		}
	}
	logger.Warn("using in-memory store; data is lost on restart")
	store := memory.NewStore()
	return repositories{
		complaints:  store.Complaints(),
		history:     store.History(),
		messages:    store.Messages(),
		departments: store.Departments(),
		users:       store.Users(),
		resets:      store.PasswordResets(),
	}
}

func buildStorage(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	if cfg.Backend == "minio" {
		return storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return storage.NewDiskStore(cfg.DiskDir)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
