// worker procesa la conciliación kardex/existencias desde la cola asynq y la programa con cron.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-lotes/internal/jobs"
	"github.com/jhoicas/inventario-lotes/pkg/config"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-worker"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	deps := inventory.Deps{
		TxRunner:   postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		Warehouses: postgres.NewWarehouseRepository(pool),
		Logger:     log.Named("ledger"),
	}
	reconcile := jobs.NewReconcileJob(inventory.NewReconcileUseCase(deps, cfg.Worker.Concurrency), log)

	var cron []jobs.CronRegistration
	if cfg.Worker.ReconcileCron != "" {
		task, err := jobs.NewReconcileTask()
		if err != nil {
			log.Fatal().Err(err).Msg("tarea de conciliación")
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.Worker.ReconcileCron, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Concurrency: cfg.Worker.Concurrency,
		Logger:      log,
		Handlers:    []jobs.TaskHandler{{Type: jobs.TaskInventoryReconcile, Handler: reconcile.Handle}},
		Cron:        cron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("iniciar worker")
	}

	log.Info().Str("cron", cfg.Worker.ReconcileCron).Msg("worker iniciado")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker finalizado")
	}
	log.Info().Msg("worker detenido")
}
