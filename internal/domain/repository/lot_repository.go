package repository

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes. Los lotes no se actualizan ni se borran.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id int64) (*entity.Lot, error)
}
