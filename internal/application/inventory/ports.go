package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Lots         repository.LotRepository
	Stock        repository.StockRowRepository
	Journal      repository.MovementRepository
	Reservations repository.ReservationRepository
	Transfers    repository.TransferRepository
	Consumptions repository.SaleConsumptionRepository
	Sales        repository.SaleRepository
	Receivables  repository.ReceivableRepository
	Warehouses   repository.WarehouseRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback de todo lo escrito (filas de existencia y kardex juntos).
// RunReadOnly da a fn una vista única y consistente de todas las tablas (REPEATABLE READ, solo lectura).
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
	RunReadOnly(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Deps dependencias compartidas por los casos de uso del motor de inventario.
type Deps struct {
	TxRunner   TxRunner
	Warehouses repository.WarehouseRepository
	Retry      RetryPolicy
	Logger     *logger.Logger
	Clock      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Retry.MaxAttempts <= 0 {
		d.Retry = DefaultRetryPolicy()
	}
	return d
}
