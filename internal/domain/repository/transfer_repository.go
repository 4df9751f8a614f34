package repository

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// TransferRepository define el puerto de persistencia para traslados.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	GetByID(ctx context.Context, id int64) (*entity.Transfer, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error)
	UpdateState(ctx context.Context, transfer *entity.Transfer) error
}
