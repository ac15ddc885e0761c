package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/jhoicas/Trazabilidad-api/docs"
	"github.com/jhoicas/Trazabilidad-api/internal/application/auth"
	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Trazabilidad-api/internal/interfaces/http"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
	"github.com/jhoicas/Trazabilidad-api/pkg/logger"
	"github.com/jhoicas/Trazabilidad-api/pkg/metrics"
)

// @title        Trazabilidad API
// @version      1.0
// @description  Cadena de custodia de productos por código de barras.
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("persistence", cfg.App.Persistence).
		Str("storage", cfg.Storage.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner    custody.TxRunner
		productRepo repository.ProductRepository
		eventRepo   repository.CustodyEventRepository
		userRepo    repository.UserRepository
	)
	switch cfg.App.Persistence {
	case "memory":
		store := memory.NewStore()
		txRunner, productRepo, eventRepo, userRepo = store, store.Products(), store.Events(), store.Users()
		log.Warn().Msg("persistencia en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner = postgres.NewTxRunner(pool)
		productRepo = postgres.NewProductRepository(pool)
		eventRepo = postgres.NewCustodyEventRepository(pool)
		userRepo = postgres.NewUserRepository(pool)
	}

	evidenceStore, err := newEvidenceStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento de evidencias")
	}

	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if cfg.App.Persistence == "memory" && cfg.Seed.AdminPassword != "" {
		if _, err := authUC.EnsureAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("crear administrador inicial")
		}
		log.Info().Str("username", cfg.Seed.AdminUsername).Msg("administrador inicial disponible")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	custodySvc := custody.NewService(custody.ServiceDeps{
		Registry:         custody.NewRegistry(txRunner, productRepo),
		Ledger:           custody.NewLedger(txRunner, productRepo, eventRepo),
		Evidence:         evidenceStore,
		Owners:           auth.NewUserDirectory(userRepo),
		Recorder:         m,
		Reports:          pdf.NewMarotoReportGenerator(),
		Logger:           log.Zerolog(),
		UploadTimeout:    cfg.Evidence.UploadTimeout,
		MaxEvidenceBytes: cfg.Evidence.MaxBytes,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Zerolog()))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Trazabilidad API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Custody:  custodySvc,
		AuthUC:   authUC,
		Gate:     auth.NewTokenGate(cfg.JWT.Secret),
		Gatherer: prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func newEvidenceStore(ctx context.Context, cfg config.StorageConfig) (custody.EvidenceStore, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3)
	case "local":
		return storage.NewLocalStore(cfg.LocalDir)
	case "memory":
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("backend de almacenamiento desconocido %q", cfg.Backend)
}
