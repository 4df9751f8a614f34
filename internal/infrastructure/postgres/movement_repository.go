package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

var movementColumns = []string{
	"id", "operation_id", "ts", "kind", "origin_warehouse_id", "dest_warehouse_id",
	"lot_id", "quantity", "pool", "source_module", "source_id", "notes", "created_by",
}

// MovementRepo implementación del kardex (movimientos_inventario) sobre PostgreSQL. Solo INSERT y SELECT.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador del kardex.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

type movementRecord struct {
	ID                int64           `db:"id"`
	OperationID       string          `db:"operation_id"`
	Ts                time.Time       `db:"ts"`
	Kind              string          `db:"kind"`
	OriginWarehouseID *int64          `db:"origin_warehouse_id"`
	DestWarehouseID   *int64          `db:"dest_warehouse_id"`
	LotID             int64           `db:"lot_id"`
	Quantity          decimal.Decimal `db:"quantity"`
	Pool              *string         `db:"pool"`
	SourceModule      string          `db:"source_module"`
	SourceID          string          `db:"source_id"`
	Notes             string          `db:"notes"`
	CreatedBy         string          `db:"created_by"`
}

func (r movementRecord) toEntity() *entity.MovementEntry {
	m := &entity.MovementEntry{
		ID:                r.ID,
		OperationID:       r.OperationID,
		Timestamp:         r.Ts,
		Kind:              entity.MovementKind(r.Kind),
		OriginWarehouseID: r.OriginWarehouseID,
		DestWarehouseID:   r.DestWarehouseID,
		LotID:             r.LotID,
		Quantity:          r.Quantity,
		SourceModule:      entity.SourceModule(r.SourceModule),
		SourceID:          r.SourceID,
		Notes:             r.Notes,
		CreatedBy:         r.CreatedBy,
	}
	if r.Pool != nil {
		m.Pool = entity.StockPool(*r.Pool)
	}
	return m
}

// Append inserta el movimiento y asigna ID.
func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementEntry) error {
	var pool *string
	if m.Pool != "" {
		p := string(m.Pool)
		pool = &p
	}
	sql, args, err := psql.Insert("movimientos_inventario").
		Columns(movementColumns[1:]...).
		Values(m.OperationID, m.Timestamp, string(m.Kind), m.OriginWarehouseID, m.DestWarehouseID,
			m.LotID, m.Quantity, pool, string(m.SourceModule), m.SourceID, m.Notes, m.CreatedBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return wrap("build insert movement", err)
	}
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return wrap("create inventory movement", err)
	}
	return nil
}

// ListBySource movimientos originados por un registro de otro módulo, en orden de id.
func (r *MovementRepo) ListBySource(ctx context.Context, module entity.SourceModule, sourceID string) ([]*entity.MovementEntry, error) {
	qb := psql.Select(movementColumns...).
		From("movimientos_inventario").
		Where(squirrel.Eq{"source_module": string(module), "source_id": sourceID}).
		OrderBy("id")
	return r.selectEntries(ctx, qb, "list movements by source")
}

// List consulta el kardex con filtros; más reciente primero.
func (r *MovementRepo) List(ctx context.Context, f repository.KardexFilter) ([]*entity.MovementEntry, error) {
	qb := psql.Select(movementColumns...).From("movimientos_inventario")
	if f.WarehouseID != 0 {
		qb = qb.Where(squirrel.Or{
			squirrel.Eq{"origin_warehouse_id": f.WarehouseID},
			squirrel.Eq{"dest_warehouse_id": f.WarehouseID},
		})
	}
	if f.LotID != 0 {
		qb = qb.Where(squirrel.Eq{"lot_id": f.LotID})
	}
	if f.Kind != "" {
		qb = qb.Where(squirrel.Eq{"kind": string(f.Kind)})
	}
	if f.SourceModule != "" {
		qb = qb.Where(squirrel.Eq{"source_module": string(f.SourceModule)})
	}
	if f.From != nil {
		qb = qb.Where(squirrel.GtOrEq{"ts": *f.From})
	}
	if f.To != nil {
		qb = qb.Where(squirrel.Lt{"ts": *f.To})
	}
	qb = qb.OrderBy("id DESC")
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}
	return r.selectEntries(ctx, qb, "list kardex")
}

// ListForReplay movimientos que afectan a la bodega en orden de id (warehouseID 0 = todos).
func (r *MovementRepo) ListForReplay(ctx context.Context, warehouseID int64) ([]*entity.MovementEntry, error) {
	qb := psql.Select(movementColumns...).From("movimientos_inventario").OrderBy("id")
	if warehouseID != 0 {
		qb = qb.Where(squirrel.Or{
			squirrel.Eq{"origin_warehouse_id": warehouseID},
			squirrel.Eq{"dest_warehouse_id": warehouseID},
		})
	}
	return r.selectEntries(ctx, qb, "list movements for replay")
}

func (r *MovementRepo) selectEntries(ctx context.Context, qb squirrel.SelectBuilder, op string) ([]*entity.MovementEntry, error) {
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, wrap(op, err)
	}
	var recs []movementRecord
	if err := pgxscan.Select(ctx, r.q, &recs, sql, args...); err != nil {
		return nil, wrap(op, err)
	}
	out := make([]*entity.MovementEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toEntity())
	}
	return out, nil
}
