package postgres

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de traslados (traslados + traslado_lineas) sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

type transferRecord struct {
	ID                int64     `db:"id"`
	OriginWarehouseID int64     `db:"origin_warehouse_id"`
	DestWarehouseID   int64     `db:"dest_warehouse_id"`
	State             string    `db:"state"`
	Notes             string    `db:"notes"`
	CancelReason      string    `db:"cancel_reason"`
	CreatedBy         string    `db:"created_by"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Create inserta cabecera y líneas; asigna ID.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO traslados (origin_warehouse_id, dest_warehouse_id, state, notes, cancel_reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		t.OriginWarehouseID, t.DestWarehouseID, string(t.State), t.Notes, t.CancelReason, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return wrap("create transfer", err)
	}
	if len(t.Lines) == 0 {
		return nil
	}
	ins := psql.Insert("traslado_lineas").Columns("transfer_id", "line_no", "lot_id", "quantity")
	for i, l := range t.Lines {
		ins = ins.Values(t.ID, i+1, l.LotID, l.Quantity)
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return wrap("build insert transfer lines", err)
	}
	if _, err := r.q.Exec(ctx, sql, args...); err != nil {
		return wrap("create transfer lines", err)
	}
	return nil
}

// GetByID lee el traslado sin bloquear; nil, nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id int64) (*entity.Transfer, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate bloquea la cabecera del traslado.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error) {
	return r.get(ctx, id, true)
}

func (r *TransferRepo) get(ctx context.Context, id int64, forUpdate bool) (*entity.Transfer, error) {
	sql := `SELECT id, origin_warehouse_id, dest_warehouse_id, state, notes, cancel_reason, created_by, created_at, updated_at
		FROM traslados WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var rec transferRecord
	if err := pgxscan.Get(ctx, r.q, &rec, sql, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("get transfer", err)
	}
	t := &entity.Transfer{
		ID:                rec.ID,
		OriginWarehouseID: rec.OriginWarehouseID,
		DestWarehouseID:   rec.DestWarehouseID,
		State:             entity.TransferState(rec.State),
		Notes:             rec.Notes,
		CancelReason:      rec.CancelReason,
		CreatedBy:         rec.CreatedBy,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if err := pgxscan.Select(ctx, r.q, &t.Lines,
		`SELECT lot_id, quantity FROM traslado_lineas WHERE transfer_id = $1 ORDER BY line_no`, id); err != nil {
		return nil, wrap("list transfer lines", err)
	}
	return t, nil
}

// UpdateState persiste estado, motivo de cancelación y fecha de actualización.
func (r *TransferRepo) UpdateState(ctx context.Context, t *entity.Transfer) error {
	_, err := r.q.Exec(ctx,
		`UPDATE traslados SET state = $2, cancel_reason = $3, updated_at = $4 WHERE id = $1`,
		t.ID, string(t.State), t.CancelReason, t.UpdatedAt)
	if err != nil {
		return wrap("update transfer state", err)
	}
	return nil
}
