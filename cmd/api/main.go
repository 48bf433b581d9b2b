package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/otel"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
	"docvault/internal/sweep"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing first so the DB and HTTP layers pick up the global provider
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// PostgreSQL via database/sql with the pgx stdlib driver
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Repositories
	txRunner := postgres.NewTxRunner(db)
	folderRepo := postgres.NewFolderPostgres(db)
	docRepo := postgres.NewDocumentPostgres(db)
	versionRepo := postgres.NewVersionPostgres(db)
	trashRepo := postgres.NewTrashPostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	shareRepo := postgres.NewSharePostgres(db)

	// Services
	folderSvc := service.NewFolderService(txRunner, folderRepo, docRepo, versionRepo, trashRepo, userRepo, objStore, cfg.Vault)
	docSvc := service.NewDocumentService(txRunner, folderRepo, docRepo, versionRepo, trashRepo, userRepo, objStore, cfg.Vault)
	trashSvc := service.NewTrashService(txRunner, folderRepo, docRepo, versionRepo, trashRepo, userRepo, objStore, cfg.Vault)
	sharingSvc := service.NewSharingService(shareRepo, folderRepo, docRepo, userRepo, objStore, service.NewLogNotifier(), cfg.Vault)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promMW, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, handlers.Services{
		Folders:   folderSvc,
		Documents: docSvc,
		Trash:     trashSvc,
		Sharing:   sharingSvc,
	})

	// Background sweeps: expired trash purge and share-link deactivation
	trashSweeper := sweep.New("trash", cfg.Vault.TrashSweepInterval, func(ctx context.Context) error {
		_, err := trashSvc.Sweep(ctx)
		return err
	})
	trashSweeper.Start(ctx)

	linkSweeper := sweep.New("share_links", cfg.Vault.LinkSweepInterval, func(ctx context.Context) error {
		_, err := sharingSvc.DeactivateExpiredLinks(ctx)
		return err
	})
	linkSweeper.Start(ctx)

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
