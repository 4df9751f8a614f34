package repository

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// WarehouseRepository define el puerto de lectura de bodegas (DIP).
type WarehouseRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Warehouse, error)
	ListActive(ctx context.Context) ([]*entity.Warehouse, error)
}
