package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
)

var tracer = otel.Tracer("inventario-lotes/postgres")

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED + SELECT FOR UPDATE;
// las lecturas de conciliación usan REPEATABLE READ de solo lectura).
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout > 0 acota la espera de cada bloqueo de fila;
// al agotarse Postgres responde 55P03 y el error sale como domain.ErrBusy.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	return r.traced(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// RunReadOnly ejecuta fn en una transacción REPEATABLE READ de solo lectura: todas las consultas
// ven la misma instantánea.
func (r *TxRunner) RunReadOnly(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	return r.traced(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) traced(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	ctx, span := tracer.Start(ctx, "inventory.tx",
		trace.WithAttributes(
			attribute.Int64("tx.lock_timeout_ms", r.lockTimeout.Milliseconds()),
			attribute.String("tx.isolation", string(opts.IsoLevel)),
			attribute.Bool("tx.read_only", opts.AccessMode == pgx.ReadOnly),
		))
	defer span.End()

	err := r.run(ctx, opts, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
			return wrap("set lock_timeout", err)
		}
	}

	if err := fn(ctx, NewTxRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// NewTxRepos ata todos los repositorios del motor a un Querier (tx o pool).
func NewTxRepos(q Querier) inventory.TxRepos {
	return inventory.TxRepos{
		Lots:         NewLotRepository(q),
		Stock:        NewStockRowRepository(q),
		Journal:      NewMovementRepository(q),
		Reservations: NewReservationRepository(q),
		Transfers:    NewTransferRepository(q),
		Consumptions: NewSaleConsumptionRepository(q),
		Sales:        NewSaleRepository(q),
		Receivables:  NewReceivableRepository(q),
		Warehouses:   NewWarehouseRepository(q),
	}
}
