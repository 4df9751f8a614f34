package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var errJournalDown = errors.New("kardex no disponible")

func copyTransfer(t *entity.Transfer) *entity.Transfer {
	c := *t
	c.Lines = append([]entity.TransferLine(nil), t.Lines...)
	return &c
}

func sortWarehouses(ws []*entity.Warehouse) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

type lotRepo struct{ st *state }

func (r *lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	for _, l := range r.st.lots {
		if l.ReceiptLineID == lot.ReceiptLineID && l.Code == lot.Code {
			return domain.ErrDuplicate
		}
	}
	lot.ID = r.st.nextID()
	c := *lot
	r.st.lots[lot.ID] = &c
	return nil
}

func (r *lotRepo) GetByID(_ context.Context, id int64) (*entity.Lot, error) {
	l, ok := r.st.lots[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

// ── Existencias ───────────────────────────────────────────────────────────────

type stockRepo struct {
	st *state
	s  *Store
}

func (r *stockRepo) Get(_ context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	if row, ok := r.st.stock[rowKey{warehouseID, lotID}]; ok {
		c := *row
		return &c, nil
	}
	return entity.ZeroStockRow(warehouseID, lotID), nil
}

func (r *stockRepo) GetForUpdate(_ context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	k := rowKey{warehouseID, lotID}
	r.s.locked(r.st, k)
	row, ok := r.st.stock[k]
	if !ok {
		return nil, nil
	}
	c := *row
	return &c, nil
}

func (r *stockRepo) LockOrCreate(_ context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	k := rowKey{warehouseID, lotID}
	r.s.locked(r.st, k)
	row, ok := r.st.stock[k]
	if !ok {
		row = entity.ZeroStockRow(warehouseID, lotID)
		row.Exists = true
		row.LastUpdatedAt = time.Now()
		r.st.stock[k] = row
	}
	c := *row
	return &c, nil
}

func (r *stockRepo) Save(_ context.Context, row *entity.StockRow) error {
	if row.Available.IsNegative() || row.Reserved.IsNegative() {
		return errors.New("memory: existencia negativa")
	}
	c := *row
	c.Exists = true
	r.st.stock[rowKey{row.WarehouseID, row.LotID}] = &c
	return nil
}

func (r *stockRepo) SetMinThreshold(_ context.Context, warehouseID, lotID int64, threshold decimal.Decimal) error {
	row, ok := r.st.stock[rowKey{warehouseID, lotID}]
	if !ok {
		return domain.ErrNotFound
	}
	row.MinThreshold = threshold
	return nil
}

func (r *stockRepo) ListByPresentation(_ context.Context, warehouseID, presentationID int64, pool entity.StockPool) ([]entity.LotStock, error) {
	var out []entity.LotStock
	for k, row := range r.st.stock {
		if k.warehouse != warehouseID {
			continue
		}
		lot, ok := r.st.lots[k.lot]
		if !ok || lot.PresentationID != presentationID {
			continue
		}
		ls := entity.LotStock{
			LotID:          lot.ID,
			PresentationID: lot.PresentationID,
			WarehouseID:    warehouseID,
			ExpiresAt:      lot.ExpiresAt,
			Available:      row.Available,
			Reserved:       row.Reserved,
		}
		if ls.PoolQty(pool).IsPositive() {
			out = append(out, ls)
		}
	}
	dinv.SortFEFO(out)
	return out, nil
}

func (r *stockRepo) ListBelowMinimum(_ context.Context, warehouseID int64) ([]*entity.StockRow, error) {
	var out []*entity.StockRow
	for _, row := range r.sorted(warehouseID) {
		if row.Available.LessThan(row.MinThreshold) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stockRepo) ListByWarehouse(_ context.Context, warehouseID int64) ([]*entity.StockRow, error) {
	return r.sorted(warehouseID), nil
}

func (r *stockRepo) sorted(warehouseID int64) []*entity.StockRow {
	var out []*entity.StockRow
	for k, row := range r.st.stock {
		if warehouseID != 0 && k.warehouse != warehouseID {
			continue
		}
		c := *row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].LotID < out[j].LotID
	})
	return out
}

// ── Kardex ────────────────────────────────────────────────────────────────────

type journalRepo struct {
	st   *state
	fail bool
}

func (r *journalRepo) Append(_ context.Context, e *entity.MovementEntry) error {
	if r.fail {
		return errJournalDown
	}
	e.ID = r.st.nextID()
	c := *e
	r.st.journal = append(r.st.journal, &c)
	return nil
}

func (r *journalRepo) ListBySource(_ context.Context, module entity.SourceModule, sourceID string) ([]*entity.MovementEntry, error) {
	var out []*entity.MovementEntry
	for _, e := range r.st.journal {
		if e.SourceModule == module && e.SourceID == sourceID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *journalRepo) List(_ context.Context, f repository.KardexFilter) ([]*entity.MovementEntry, error) {
	var out []*entity.MovementEntry
	for _, e := range r.st.journal {
		if f.WarehouseID != 0 && !touches(e, f.WarehouseID) {
			continue
		}
		if f.LotID != 0 && e.LotID != f.LotID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.SourceModule != "" && e.SourceModule != f.SourceModule {
			continue
		}
		if f.From != nil && e.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Timestamp.After(*f.To) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *journalRepo) ListForReplay(_ context.Context, warehouseID int64) ([]*entity.MovementEntry, error) {
	var out []*entity.MovementEntry
	for _, e := range r.st.journal {
		if warehouseID == 0 || touches(e, warehouseID) {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func touches(e *entity.MovementEntry, warehouseID int64) bool {
	return (e.OriginWarehouseID != nil && *e.OriginWarehouseID == warehouseID) ||
		(e.DestWarehouseID != nil && *e.DestWarehouseID == warehouseID)
}

// ── Anticipos ─────────────────────────────────────────────────────────────────

type reservationRepo struct{ st *state }

func (r *reservationRepo) GetForUpdate(_ context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error) {
	d, ok := r.st.reservations[resKey{depositID, presentationID, warehouseID}]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (r *reservationRepo) LockOrCreate(_ context.Context, depositID, presentationID, warehouseID int64) (*entity.ReservationDetail, error) {
	k := resKey{depositID, presentationID, warehouseID}
	d, ok := r.st.reservations[k]
	if !ok {
		now := time.Now()
		d = &entity.ReservationDetail{
			DepositID:      depositID,
			PresentationID: presentationID,
			WarehouseID:    warehouseID,
			RequestedQty:   decimal.Zero,
			ReservedQty:    decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		r.st.reservations[k] = d
	}
	c := *d
	return &c, nil
}

func (r *reservationRepo) Upsert(_ context.Context, d *entity.ReservationDetail) error {
	if d.ReservedQty.IsNegative() || d.ReservedQty.GreaterThan(d.RequestedQty) {
		return errors.New("memory: línea de anticipo inconsistente")
	}
	c := *d
	r.st.reservations[resKey{d.DepositID, d.PresentationID, d.WarehouseID}] = &c
	return nil
}

func (r *reservationRepo) ListByDeposit(_ context.Context, depositID int64, _ bool) ([]*entity.ReservationDetail, error) {
	var out []*entity.ReservationDetail
	for k, d := range r.st.reservations {
		if k.deposit == depositID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].PresentationID < out[j].PresentationID
	})
	return out, nil
}

// ── Traslados ─────────────────────────────────────────────────────────────────

type transferRepo struct{ st *state }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	t.ID = r.st.nextID()
	r.st.transfers[t.ID] = copyTransfer(t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id int64) (*entity.Transfer, error) {
	t, ok := r.st.transfers[id]
	if !ok {
		return nil, nil
	}
	return copyTransfer(t), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) UpdateState(_ context.Context, t *entity.Transfer) error {
	cur, ok := r.st.transfers[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.State = t.State
	cur.CancelReason = t.CancelReason
	cur.UpdatedAt = t.UpdatedAt
	return nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type consumptionRepo struct{ st *state }

func (r *consumptionRepo) Create(_ context.Context, c *entity.SaleLotConsumption) error {
	c.ID = r.st.nextID()
	cp := *c
	r.st.consumptions = append(r.st.consumptions, &cp)
	return nil
}

func (r *consumptionRepo) ListBySale(_ context.Context, saleID int64) ([]*entity.SaleLotConsumption, error) {
	var out []*entity.SaleLotConsumption
	for _, c := range r.st.consumptions {
		if c.SaleID == saleID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *consumptionRepo) ListByDeposit(_ context.Context, depositID int64) ([]*entity.SaleLotConsumption, error) {
	var out []*entity.SaleLotConsumption
	for _, c := range r.st.consumptions {
		if c.DepositID == depositID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type saleRepo struct{ st *state }

func (r *saleRepo) GetForUpdate(_ context.Context, saleID int64) (*entity.Sale, error) {
	s, ok := r.st.sales[saleID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *saleRepo) MarkCancelled(_ context.Context, saleID int64, reason string, at time.Time) error {
	s, ok := r.st.sales[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = entity.SaleStatusCancelled
	s.CancelReason = reason
	s.CancelledAt = &at
	return nil
}

type receivableRepo struct{ st *state }

func (r *receivableRepo) HasPaymentApplications(_ context.Context, saleID int64) (bool, error) {
	return r.st.paid[saleID], nil
}
