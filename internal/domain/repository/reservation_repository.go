package repository

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// ReservationRepository define el puerto para las líneas de anticipo (ReservationDetail).
type ReservationRepository interface {
	// GetForUpdate bloquea la línea; nil, nil si no existe.
	GetForUpdate(ctx context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error)
	// LockOrCreate crea la línea en cero si no existe y la bloquea.
	LockOrCreate(ctx context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error)
	Upsert(ctx context.Context, detail *entity.ReservationDetail) error
	// ListByDeposit devuelve las líneas del anticipo; forUpdate las bloquea.
	ListByDeposit(ctx context.Context, depositID int64, forUpdate bool) ([]*entity.ReservationDetail, error)
}
