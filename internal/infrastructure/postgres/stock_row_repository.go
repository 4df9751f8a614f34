package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.StockRowRepository = (*StockRowRepo)(nil)

const stockColumns = "warehouse_id, lot_id, available, reserved, min_threshold, last_updated_at"

// StockRowRepo implementación del puerto StockRowRepository sobre existencia_por_lote.
type StockRowRepo struct {
	q Querier
}

// NewStockRowRepository construye el adaptador; q puede ser el pool o una tx.
func NewStockRowRepository(q Querier) *StockRowRepo {
	return &StockRowRepo{q: q}
}

type stockRowRecord struct {
	WarehouseID   int64           `db:"warehouse_id"`
	LotID         int64           `db:"lot_id"`
	Available     decimal.Decimal `db:"available"`
	Reserved      decimal.Decimal `db:"reserved"`
	MinThreshold  decimal.Decimal `db:"min_threshold"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}

func (r stockRowRecord) toEntity() *entity.StockRow {
	return &entity.StockRow{
		WarehouseID:   r.WarehouseID,
		LotID:         r.LotID,
		Available:     r.Available,
		Reserved:      r.Reserved,
		MinThreshold:  r.MinThreshold,
		LastUpdatedAt: r.LastUpdatedAt,
		Exists:        true,
	}
}

// Get lee la fila sin bloquear; si no existe devuelve la fila cero.
func (r *StockRowRepo) Get(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	var rec stockRowRecord
	err := pgxscan.Get(ctx, r.q, &rec,
		`SELECT `+stockColumns+` FROM existencia_por_lote WHERE warehouse_id = $1 AND lot_id = $2`,
		warehouseID, lotID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return entity.ZeroStockRow(warehouseID, lotID), nil
		}
		return nil, wrap("get stock row", err)
	}
	return rec.toEntity(), nil
}

// GetForUpdate bloquea la fila con SELECT FOR UPDATE; nil, nil si no existe.
func (r *StockRowRepo) GetForUpdate(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	var rec stockRowRecord
	err := pgxscan.Get(ctx, r.q, &rec,
		`SELECT `+stockColumns+` FROM existencia_por_lote WHERE warehouse_id = $1 AND lot_id = $2 FOR UPDATE`,
		warehouseID, lotID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("lock stock row", err)
	}
	return rec.toEntity(), nil
}

// LockOrCreate inserta la fila en cero si falta (ON CONFLICT DO NOTHING) y luego la bloquea.
// Dos transacciones que crean la misma fila a la vez terminan serializadas por el índice único.
func (r *StockRowRepo) LockOrCreate(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO existencia_por_lote (warehouse_id, lot_id, available, reserved, min_threshold, last_updated_at)
		VALUES ($1, $2, 0, 0, 0, NOW())
		ON CONFLICT (warehouse_id, lot_id) DO NOTHING`,
		warehouseID, lotID)
	if err != nil {
		return nil, wrap("create stock row", err)
	}
	row, err := r.GetForUpdate(ctx, warehouseID, lotID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, wrap("lock stock row", domain.ErrNotFound)
	}
	return row, nil
}

// Save escribe available/reserved de una fila ya bloqueada por la tx.
func (r *StockRowRepo) Save(ctx context.Context, row *entity.StockRow) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE existencia_por_lote SET available = $3, reserved = $4, last_updated_at = $5
		WHERE warehouse_id = $1 AND lot_id = $2`,
		row.WarehouseID, row.LotID, row.Available, row.Reserved, row.LastUpdatedAt)
	if err != nil {
		return wrap("save stock row", err)
	}
	if cmd.RowsAffected() == 0 {
		return wrap("save stock row", domain.ErrNotFound)
	}
	return nil
}

// SetMinThreshold actualiza el umbral de stock bajo; ErrNotFound si la fila no existe.
func (r *StockRowRepo) SetMinThreshold(ctx context.Context, warehouseID, lotID int64, threshold decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE existencia_por_lote SET min_threshold = $3 WHERE warehouse_id = $1 AND lot_id = $2`,
		warehouseID, lotID, threshold)
	if err != nil {
		return wrap("set min threshold", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type lotStockRecord struct {
	LotID          int64           `db:"lot_id"`
	PresentationID int64           `db:"presentation_id"`
	WarehouseID    int64           `db:"warehouse_id"`
	ExpiresAt      time.Time       `db:"expires_at"`
	Available      decimal.Decimal `db:"available"`
	Reserved       decimal.Decimal `db:"reserved"`
}

// ListByPresentation candidatos FEFO: vencimiento ascendente, luego id de lote ascendente.
func (r *StockRowRepo) ListByPresentation(ctx context.Context, warehouseID, presentationID int64, pool entity.StockPool) ([]entity.LotStock, error) {
	qb := psql.Select("e.lot_id", "l.presentation_id", "e.warehouse_id", "l.expires_at", "e.available", "e.reserved").
		From("existencia_por_lote e").
		Join("lotes l ON l.id = e.lot_id").
		Where(squirrel.Eq{"e.warehouse_id": warehouseID, "l.presentation_id": presentationID}).
		OrderBy("l.expires_at ASC", "e.lot_id ASC")
	switch pool {
	case entity.PoolReserved:
		qb = qb.Where("e.reserved > 0")
	case entity.PoolCombined:
		qb = qb.Where("e.available + e.reserved > 0")
	default:
		qb = qb.Where("e.available > 0")
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, wrap("build fefo query", err)
	}
	var recs []lotStockRecord
	if err := pgxscan.Select(ctx, r.q, &recs, sql, args...); err != nil {
		return nil, wrap("list fefo candidates", err)
	}
	out := make([]entity.LotStock, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entity.LotStock{
			LotID:          rec.LotID,
			PresentationID: rec.PresentationID,
			WarehouseID:    rec.WarehouseID,
			ExpiresAt:      rec.ExpiresAt,
			Available:      rec.Available,
			Reserved:       rec.Reserved,
		})
	}
	return out, nil
}

// ListBelowMinimum filas con available < min_threshold.
func (r *StockRowRepo) ListBelowMinimum(ctx context.Context, warehouseID int64) ([]*entity.StockRow, error) {
	qb := psql.Select(stockColumns).
		From("existencia_por_lote").
		Where("available < min_threshold").
		OrderBy("warehouse_id", "lot_id")
	if warehouseID != 0 {
		qb = qb.Where(squirrel.Eq{"warehouse_id": warehouseID})
	}
	return r.selectRows(ctx, qb, "list low stock")
}

// ListByWarehouse todas las filas (warehouseID 0 = todas las bodegas).
func (r *StockRowRepo) ListByWarehouse(ctx context.Context, warehouseID int64) ([]*entity.StockRow, error) {
	qb := psql.Select(stockColumns).
		From("existencia_por_lote").
		OrderBy("warehouse_id", "lot_id")
	if warehouseID != 0 {
		qb = qb.Where(squirrel.Eq{"warehouse_id": warehouseID})
	}
	return r.selectRows(ctx, qb, "list stock rows")
}

func (r *StockRowRepo) selectRows(ctx context.Context, qb squirrel.SelectBuilder, op string) ([]*entity.StockRow, error) {
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, wrap(op, err)
	}
	var recs []stockRowRecord
	if err := pgxscan.Select(ctx, r.q, &recs, sql, args...); err != nil {
		return nil, wrap(op, err)
	}
	out := make([]*entity.StockRow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toEntity())
	}
	return out, nil
}
