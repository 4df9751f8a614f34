package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// KardexFilter filtros para consultar el kardex. Campos cero no filtran.
type KardexFilter struct {
	WarehouseID  int64
	LotID        int64
	Kind         entity.MovementKind
	SourceModule entity.SourceModule
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// MovementRepository define el puerto del kardex. Solo se agrega; no hay update ni delete.
type MovementRepository interface {
	Append(ctx context.Context, entry *entity.MovementEntry) error
	ListBySource(ctx context.Context, module entity.SourceModule, sourceID string) ([]*entity.MovementEntry, error)
	List(ctx context.Context, filter KardexFilter) ([]*entity.MovementEntry, error)
	// ListForReplay devuelve los movimientos que afectan a la bodega en orden de id (warehouseID 0 = todos).
	ListForReplay(ctx context.Context, warehouseID int64) ([]*entity.MovementEntry, error)
}
