package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	infrapdf "github.com/jhoicas/inventario-lotes/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/redisstore"
	httpRouter "github.com/jhoicas/inventario-lotes/internal/interfaces/http"
	"github.com/jhoicas/inventario-lotes/pkg/config"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	deps := inventory.Deps{
		TxRunner:   postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		Warehouses: postgres.NewWarehouseRepository(pool),
		Retry: inventory.RetryPolicy{
			MaxAttempts: cfg.Ledger.RetryMaxAttempts,
			BaseDelay:   cfg.Ledger.RetryBaseDelay,
			MaxDelay:    cfg.Ledger.RetryMaxDelay,
		},
		Logger: log.Named("ledger"),
	}

	// Sin Redis la API sigue funcionando, pero las mutaciones no se deduplican.
	var idem httpRouter.IdempotencyStore
	redisClient, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible, idempotencia desactivada")
	} else {
		defer redisClient.Close()
		idem = redisstore.NewIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: cfg.App.SwaggerFile,
		Path:     "docs",
		Title:    "Inventario por lotes API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:         inventory.NewLedgerUseCase(deps),
		Allocator:      inventory.NewAllocatorUseCase(deps),
		Receipts:       inventory.NewReceiptUseCase(deps),
		Adjustments:    inventory.NewAdjustmentUseCase(deps),
		Reconcile:      inventory.NewReconcileUseCase(deps, cfg.Worker.Concurrency),
		Reservations:   inventory.NewReservationUseCase(deps),
		Dispatch:       inventory.NewDispatchUseCase(deps),
		Anulacion:      inventory.NewAnulacionUseCase(deps),
		Transfers:      inventory.NewTransferUseCase(deps),
		Kardex:         inventory.NewKardexUseCase(deps, infrapdf.NewMarotoKardexGenerator()),
		Idempotency:    idem,
		AllowShortfall: cfg.Ledger.AllowShortfall,
		JWTSecret:      cfg.JWT.Secret,
		Logger:         log.Named("http"),
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
