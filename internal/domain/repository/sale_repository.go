package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// SaleConsumptionRepository define el puerto de venta_detalle_lote (append-only).
type SaleConsumptionRepository interface {
	Create(ctx context.Context, consumption *entity.SaleLotConsumption) error
	ListBySale(ctx context.Context, saleID int64) ([]*entity.SaleLotConsumption, error)
	ListByDeposit(ctx context.Context, depositID int64) ([]*entity.SaleLotConsumption, error)
}

// SaleRepository acceso mínimo a la cabecera de venta (dueño: módulo de ventas).
type SaleRepository interface {
	GetForUpdate(ctx context.Context, saleID int64) (*entity.Sale, error)
	MarkCancelled(ctx context.Context, saleID int64, reason string, at time.Time) error
}

// ReceivableRepository consulta de solo lectura a cuentas por cobrar.
type ReceivableRepository interface {
	// HasPaymentApplications indica si la cuenta por cobrar de la venta tiene pagos aplicados.
	HasPaymentApplications(ctx context.Context, saleID int64) (bool, error)
}
