package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

const reservationColumns = "deposit_id, presentation_id, warehouse_id, requested_qty, reserved_qty, created_at, updated_at"

// ReservationRepo implementación de anticipo_detalle sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador de líneas de anticipo.
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

// GetForUpdate bloquea la línea; nil, nil si no existe.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error) {
	var d entity.ReservationDetail
	err := pgxscan.Get(ctx, r.q, &d, `
		SELECT `+reservationColumns+` FROM anticipo_detalle
		WHERE deposit_id = $1 AND presentation_id = $2 AND warehouse_id = $3
		FOR UPDATE`,
		depositID, presentationID, warehouseID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("lock reservation detail", err)
	}
	return &d, nil
}

// LockOrCreate crea la línea en cero si falta y la bloquea.
func (r *ReservationRepo) LockOrCreate(ctx context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO anticipo_detalle (deposit_id, presentation_id, warehouse_id, requested_qty, reserved_qty, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
		ON CONFLICT (deposit_id, presentation_id, warehouse_id) DO NOTHING`,
		depositID, presentationID, warehouseID)
	if err != nil {
		return nil, wrap("create reservation detail", err)
	}
	d, err := r.GetForUpdate(ctx, depositID, presentationID, warehouseID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, wrap("lock reservation detail", domain.ErrNotFound)
	}
	return d, nil
}

// Upsert escribe cantidades de la línea (ya bloqueada o recién creada).
func (r *ReservationRepo) Upsert(ctx context.Context, d *entity.ReservationDetail) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO anticipo_detalle (deposit_id, presentation_id, warehouse_id, requested_qty, reserved_qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (deposit_id, presentation_id, warehouse_id)
		DO UPDATE SET requested_qty = EXCLUDED.requested_qty,
		              reserved_qty  = EXCLUDED.reserved_qty,
		              updated_at    = EXCLUDED.updated_at`,
		d.DepositID, d.PresentationID, d.WarehouseID, d.RequestedQty, d.ReservedQty, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return wrap("upsert reservation detail", err)
	}
	return nil
}

// ListByDeposit líneas del anticipo en orden (presentación, bodega); forUpdate las bloquea en ese orden.
func (r *ReservationRepo) ListByDeposit(ctx context.Context, depositID int64, forUpdate bool) ([]*entity.ReservationDetail, error) {
	sql := `SELECT ` + reservationColumns + ` FROM anticipo_detalle
		WHERE deposit_id = $1 ORDER BY presentation_id, warehouse_id`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var out []*entity.ReservationDetail
	if err := pgxscan.Select(ctx, r.q, &out, sql, depositID); err != nil {
		return nil, wrap("list reservation details", err)
	}
	return out, nil
}
