package postgres

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var (
	_ repository.SaleConsumptionRepository = (*SaleConsumptionRepo)(nil)
	_ repository.SaleRepository            = (*SaleRepo)(nil)
	_ repository.ReceivableRepository      = (*ReceivableRepo)(nil)
)

// SaleConsumptionRepo implementación de venta_detalle_lote (append-only).
type SaleConsumptionRepo struct {
	q Querier
}

// NewSaleConsumptionRepository construye el adaptador de consumos por lote.
func NewSaleConsumptionRepository(q Querier) *SaleConsumptionRepo {
	return &SaleConsumptionRepo{q: q}
}

type consumptionRecord struct {
	ID          int64           `db:"id"`
	SaleID      int64           `db:"sale_id"`
	SaleLineID  int64           `db:"sale_line_id"`
	WarehouseID int64           `db:"warehouse_id"`
	LotID       int64           `db:"lot_id"`
	Quantity    decimal.Decimal `db:"quantity"`
	Pool        string          `db:"pool"`
	DepositID   *int64          `db:"deposit_id"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r consumptionRecord) toEntity() *entity.SaleLotConsumption {
	c := &entity.SaleLotConsumption{
		ID:          r.ID,
		SaleID:      r.SaleID,
		SaleLineID:  r.SaleLineID,
		WarehouseID: r.WarehouseID,
		LotID:       r.LotID,
		Quantity:    r.Quantity,
		Pool:        entity.StockPool(r.Pool),
		CreatedAt:   r.CreatedAt,
	}
	if r.DepositID != nil {
		c.DepositID = *r.DepositID
	}
	return c
}

const consumptionColumns = "id, sale_id, sale_line_id, warehouse_id, lot_id, quantity, pool, deposit_id, created_at"

// Create inserta el consumo y asigna ID.
func (r *SaleConsumptionRepo) Create(ctx context.Context, c *entity.SaleLotConsumption) error {
	var deposit *int64
	if c.DepositID != 0 {
		deposit = &c.DepositID
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO venta_detalle_lote (sale_id, sale_line_id, warehouse_id, lot_id, quantity, pool, deposit_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.SaleID, c.SaleLineID, c.WarehouseID, c.LotID, c.Quantity, string(c.Pool), deposit, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return wrap("create sale lot consumption", err)
	}
	return nil
}

// ListBySale consumos de la venta en orden de lote.
func (r *SaleConsumptionRepo) ListBySale(ctx context.Context, saleID int64) ([]*entity.SaleLotConsumption, error) {
	return r.list(ctx, `SELECT `+consumptionColumns+` FROM venta_detalle_lote WHERE sale_id = $1 ORDER BY lot_id, id`, saleID)
}

// ListByDeposit consumos cargados al anticipo, incluidos los de ventas anuladas.
func (r *SaleConsumptionRepo) ListByDeposit(ctx context.Context, depositID int64) ([]*entity.SaleLotConsumption, error) {
	return r.list(ctx, `SELECT `+consumptionColumns+` FROM venta_detalle_lote WHERE deposit_id = $1 ORDER BY id`, depositID)
}

func (r *SaleConsumptionRepo) list(ctx context.Context, sql string, id int64) ([]*entity.SaleLotConsumption, error) {
	var recs []consumptionRecord
	if err := pgxscan.Select(ctx, r.q, &recs, sql, id); err != nil {
		return nil, wrap("list sale lot consumptions", err)
	}
	out := make([]*entity.SaleLotConsumption, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toEntity())
	}
	return out, nil
}

// SaleRepo acceso mínimo a la cabecera de ventas.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador de ventas.
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// GetForUpdate bloquea la cabecera de la venta; nil, nil si no existe.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID int64) (*entity.Sale, error) {
	var s entity.Sale
	err := pgxscan.Get(ctx, r.q, &s, `
		SELECT id, warehouse_id, receivable_id, status, COALESCE(cancel_reason, '') AS cancel_reason, cancelled_at
		FROM ventas WHERE id = $1 FOR UPDATE`, saleID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("lock sale", err)
	}
	return &s, nil
}

// MarkCancelled cambia el estado de la venta a ANULADA con motivo y fecha.
func (r *SaleRepo) MarkCancelled(ctx context.Context, saleID int64, reason string, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE ventas SET status = $2, cancel_reason = $3, cancelled_at = $4 WHERE id = $1`,
		saleID, entity.SaleStatusCancelled, reason, at)
	if err != nil {
		return wrap("cancel sale", err)
	}
	return nil
}

// ReceivableRepo consulta de solo lectura a cuentas por cobrar.
type ReceivableRepo struct {
	q Querier
}

// NewReceivableRepository construye el adaptador de cuentas por cobrar.
func NewReceivableRepository(q Querier) *ReceivableRepo {
	return &ReceivableRepo{q: q}
}

// HasPaymentApplications indica si la cuenta por cobrar de la venta tiene pagos aplicados.
func (r *ReceivableRepo) HasPaymentApplications(ctx context.Context, saleID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM aplicaciones_pago ap
			JOIN cuentas_por_cobrar c ON c.id = ap.receivable_id
			WHERE c.sale_id = $1
		)`, saleID).Scan(&exists)
	if err != nil {
		return false, wrap("check payment applications", err)
	}
	return exists, nil
}
