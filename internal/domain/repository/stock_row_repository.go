package repository

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockRowRepository define el puerto para la existencia por (bodega, lote).
// Usado dentro de transacciones; toda mutación pasa por una fila bloqueada.
type StockRowRepository interface {
	// Get lee sin bloquear. Una fila ausente se devuelve como fila cero (Exists=false).
	Get(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). Devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error)
	// LockOrCreate crea la fila en cero si no existe y la bloquea.
	LockOrCreate(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error)
	// Save escribe available/reserved de una fila ya bloqueada.
	Save(ctx context.Context, row *entity.StockRow) error
	SetMinThreshold(ctx context.Context, warehouseID, lotID int64, threshold decimal.Decimal) error

	// ListByPresentation devuelve los lotes de la presentación en la bodega con cantidad > 0 en el pool,
	// ordenados por vencimiento ascendente y luego id de lote ascendente. No bloquea.
	ListByPresentation(ctx context.Context, warehouseID, presentationID int64, pool entity.StockPool) ([]entity.LotStock, error)
	// ListBelowMinimum devuelve filas con available < min_threshold (warehouseID 0 = todas).
	ListBelowMinimum(ctx context.Context, warehouseID int64) ([]*entity.StockRow, error)
	// ListByWarehouse devuelve todas las filas de la bodega (warehouseID 0 = todas).
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]*entity.StockRow, error)
}
