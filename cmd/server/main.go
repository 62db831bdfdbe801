package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/zhenghaoli/qacollab/internal/application/service"
	"github.com/zhenghaoli/qacollab/internal/config"
	"github.com/zhenghaoli/qacollab/internal/infrastructure/identity"
	"github.com/zhenghaoli/qacollab/internal/infrastructure/notify"
	"github.com/zhenghaoli/qacollab/internal/infrastructure/persistence/repository"
	"github.com/zhenghaoli/qacollab/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/zhenghaoli/qacollab/internal/interfaces/http"
	"github.com/zhenghaoli/qacollab/pkg/database"
	"github.com/zhenghaoli/qacollab/pkg/utils"
)

func main() {
	// Load .env before viper reads the environment
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting QA proofreading service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	for _, dir := range []string{cfg.Upload.Dir, cfg.Export.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	txManager := sqlite.NewDB(db.DB, logger)

	taskRepo := repository.NewTaskRepository(db.DB, logger)
	fileRepo := repository.NewFileRepository(db.DB, logger)
	recordRepo := repository.NewRecordRepository(db.DB, logger)
	assignRepo := repository.NewAssignmentRepository(db.DB, logger)
	draftRepo := repository.NewDraftRepository(db.DB, logger)
	summaryRepo := repository.NewSummaryRepository(db.DB, logger)
	notifyRepo := repository.NewNotificationRepository(db.DB, logger)
	sessionRepo := repository.NewSessionRepository(db.DB, logger)

	notifier := notify.NewNotifier(notifyRepo, logger)
	identityProvider, err := identity.NewStaticProvider(cfg.Auth.Groups, logger)
	if err != nil {
		logger.Fatal("Failed to build identity provider", zap.Error(err))
	}

	serviceLogger := &zapLoggerAdapter{logger: logger}

	services := httpserver.Services{
		Tasks: service.NewTaskService(
			taskRepo, fileRepo, recordRepo, assignRepo, draftRepo,
			summaryRepo, sessionRepo, txManager, notifier,
			cfg.Upload.MaxRecords, serviceLogger,
		),
		Assignments: service.NewAssignmentService(
			taskRepo, assignRepo, draftRepo, summaryRepo, sessionRepo,
			txManager, identityProvider, notifier, serviceLogger,
		),
		Drafts: service.NewDraftService(
			taskRepo, assignRepo, recordRepo, draftRepo, sessionRepo,
			txManager, serviceLogger,
		),
		Submissions: service.NewSubmissionService(
			taskRepo, assignRepo, recordRepo, draftRepo, summaryRepo,
			sessionRepo, txManager, notifier, serviceLogger,
		),
		Progress:      service.NewProgressService(taskRepo, assignRepo, recordRepo, draftRepo, serviceLogger),
		Summaries:     service.NewSummaryService(taskRepo, assignRepo, recordRepo, summaryRepo, txManager, serviceLogger),
		Sessions:      service.NewSessionService(assignRepo, sessionRepo, txManager, serviceLogger),
		Notifications: service.NewNotificationService(notifyRepo, serviceLogger),
		Exports:       service.NewExportService(taskRepo, recordRepo, cfg.Export.Dir, serviceLogger),
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		JWTSecret:    cfg.Auth.JWTSecret,
	}, services, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// zapLoggerAdapter adapts zap.Logger to the service and http Logger
// interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
