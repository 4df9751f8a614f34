package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// DispatchLine línea de venta a despachar.
type DispatchLine struct {
	SaleLineID     int64
	PresentationID int64
	Quantity       decimal.Decimal
}

// DispatchInput despacho de una venta confirmada.
type DispatchInput struct {
	SaleID      int64
	WarehouseID int64 // 0 = bodega de la venta
	// DepositID anticipo aplicado a la venta; limita el consumo de reservado a lo que él retiene.
	DepositID int64
	UserID    string
	Lines     []DispatchLine
}

// DispatchResult consumos por lote registrados para la venta.
type DispatchResult struct {
	OperationID  string
	Consumptions []*entity.SaleLotConsumption
}

// DispatchUseCase despacho de ventas: primero reservado, luego disponible, en orden FEFO.
type DispatchUseCase struct {
	deps Deps
}

// NewDispatchUseCase construye el caso de uso.
func NewDispatchUseCase(deps Deps) *DispatchUseCase {
	return &DispatchUseCase{deps: deps.withDefaults()}
}

type dispatchChunk struct {
	line DispatchLine
	lot  int64
	qty  decimal.Decimal
	pool entity.StockPool
}

// Dispatch descuenta las líneas de la venta. Si falta stock en cualquier línea nada se confirma.
func (uc *DispatchUseCase) Dispatch(ctx context.Context, in DispatchInput) (*DispatchResult, error) {
	if in.SaleID <= 0 || len(in.Lines) == 0 || in.WarehouseID < 0 || in.DepositID < 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, l := range in.Lines {
		if l.PresentationID <= 0 || !domain.ValidQuantity(l.Quantity) {
			return nil, domain.ErrInvalidInput
		}
	}
	var res *DispatchResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "dispatch", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			res, err = uc.dispatchTx(ctx, repos, in)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", res.OperationID).
		Int64("sale_id", in.SaleID).
		Int64("deposit_id", in.DepositID).
		Int("consumptions", len(res.Consumptions)).
		Msg("venta despachada")
	return res, nil
}

func (uc *DispatchUseCase) dispatchTx(ctx context.Context, repos TxRepos, in DispatchInput) (*DispatchResult, error) {
	sale, err := repos.Sales.GetForUpdate(ctx, in.SaleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %d", domain.ErrNotFound, in.SaleID)
	}
	if sale.IsCancelled() {
		return nil, fmt.Errorf("%w: venta %d anulada", domain.ErrIllegalState, in.SaleID)
	}
	warehouseID := in.WarehouseID
	if warehouseID == 0 {
		warehouseID = sale.WarehouseID
	} else if sale.WarehouseID != 0 && sale.WarehouseID != warehouseID {
		return nil, fmt.Errorf("%w: la venta %d pertenece a la bodega %d", domain.ErrInvalidInput, in.SaleID, sale.WarehouseID)
	}
	if err := activeWarehouse(ctx, repos.Warehouses, warehouseID); err != nil {
		return nil, err
	}
	prior, err := repos.Consumptions.ListBySale(ctx, in.SaleID)
	if err != nil {
		return nil, err
	}
	if len(prior) > 0 {
		return nil, fmt.Errorf("%w: venta %d ya despachada", domain.ErrIllegalState, in.SaleID)
	}

	// Cupo de reservado por presentación cuando la venta aplica un anticipo.
	var details map[int64]*entity.ReservationDetail
	var outstanding map[dinv.RowKey]decimal.Decimal
	if in.DepositID > 0 {
		list, err := repos.Reservations.ListByDeposit(ctx, in.DepositID, true)
		if err != nil {
			return nil, err
		}
		details = make(map[int64]*entity.ReservationDetail, len(list))
		for _, d := range list {
			if d.WarehouseID == warehouseID {
				details[d.PresentationID] = d
			}
		}
		if outstanding, err = depositOutstanding(ctx, repos, in.DepositID); err != nil {
			return nil, err
		}
	}

	reservedCands := make(map[int64][]entity.LotStock)
	availableCands := make(map[int64][]entity.LotStock)
	depositQuota := make(map[int64]decimal.Decimal)
	var chunks []dispatchChunk
	for _, line := range in.Lines {
		p := line.PresentationID
		if _, ok := reservedCands[p]; !ok {
			r, err := repos.Stock.ListByPresentation(ctx, warehouseID, p, entity.PoolReserved)
			if err != nil {
				return nil, err
			}
			a, err := repos.Stock.ListByPresentation(ctx, warehouseID, p, entity.PoolAvailable)
			if err != nil {
				return nil, err
			}
			if details != nil {
				restrictToDeposit(r, outstanding)
				quota := decimal.Zero
				if d, ok := details[p]; ok {
					quota = d.ReservedQty
				}
				depositQuota[p] = quota
			}
			reservedCands[p], availableCands[p] = r, a
		}

		remaining := line.Quantity
		fromReserved := remaining
		if details != nil {
			fromReserved = decimal.Min(fromReserved, depositQuota[p])
		}
		covered := decimal.Zero
		if fromReserved.IsPositive() {
			plan, err := dinv.PlanFEFO(reservedCands[p], fromReserved, entity.PoolReserved)
			if err != nil {
				return nil, err
			}
			for _, pl := range plan.Lines {
				chunks = append(chunks, dispatchChunk{line: line, lot: pl.LotID, qty: pl.Quantity, pool: entity.PoolReserved})
				consume(reservedCands[p], pl.LotID, entity.PoolReserved, pl.Quantity)
			}
			covered = plan.Covered
			if details != nil {
				depositQuota[p] = depositQuota[p].Sub(plan.Covered)
			}
			remaining = remaining.Sub(plan.Covered)
		}
		if remaining.IsPositive() {
			plan, err := dinv.PlanFEFO(availableCands[p], remaining, entity.PoolAvailable)
			if err != nil {
				return nil, err
			}
			for _, pl := range plan.Lines {
				chunks = append(chunks, dispatchChunk{line: line, lot: pl.LotID, qty: pl.Quantity, pool: entity.PoolAvailable})
				consume(availableCands[p], pl.LotID, entity.PoolAvailable, pl.Quantity)
			}
			covered = covered.Add(plan.Covered)
			if !plan.Complete() {
				return nil, &domain.StockError{
					Kind:           domain.ErrInsufficientStock,
					WarehouseID:    warehouseID,
					PresentationID: p,
					Pool:           entity.PoolCombined.String(),
					Requested:      line.Quantity,
					Available:      covered,
				}
			}
		}
	}

	// Bloqueo en orden de lote y revalidación del plan contra las filas bloqueadas.
	keys := make([]dinv.RowKey, 0, len(chunks))
	need := make(map[dinv.RowKey]map[entity.StockPool]decimal.Decimal)
	for _, c := range chunks {
		k := dinv.RowKey{WarehouseID: warehouseID, LotID: c.lot}
		keys = append(keys, k)
		if need[k] == nil {
			need[k] = make(map[entity.StockPool]decimal.Decimal)
		}
		need[k][c.pool] = need[k][c.pool].Add(c.qty)
	}
	// Sin anticipo, el reservado que se consume pertenece a otros anticipos: se imputa a ellos.
	var holders map[dinv.RowKey][]*reservedHolder
	if in.DepositID == 0 {
		var reservedKeys []dinv.RowKey
		for k, byPool := range need {
			if byPool[entity.PoolReserved].IsPositive() {
				reservedKeys = append(reservedKeys, k)
			}
		}
		if holders, err = lockReservedHolders(ctx, repos, reservedKeys); err != nil {
			return nil, err
		}
	}
	rows, err := lockRows(ctx, repos, keys, nil)
	if err != nil {
		return nil, err
	}
	for k, byPool := range need {
		for pool, qty := range byPool {
			if have := rows[k].PoolQty(pool); have.LessThan(qty) {
				return nil, staleError(k.WarehouseID, k.LotID, pool, qty, have)
			}
		}
	}

	now := uc.deps.Clock()
	opID := newOperationID()
	res := &DispatchResult{OperationID: opID}
	for _, c := range chunks {
		q := c.qty.Neg()
		d := Delta{WarehouseID: warehouseID, LotID: c.lot, MustExist: true, Available: decimal.Zero, Reserved: decimal.Zero}
		if c.pool == entity.PoolReserved {
			d.Reserved = q
		} else {
			d.Available = q
		}
		entry := &entity.MovementEntry{
			OperationID:       opID,
			Kind:              entity.MovementSaleOut,
			OriginWarehouseID: entity.WarehouseRef(warehouseID),
			Quantity:          q,
			Pool:              c.pool,
			SourceModule:      entity.SourceVenta,
			SourceID:          strconv.FormatInt(in.SaleID, 10),
			CreatedBy:         in.UserID,
		}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return nil, err
		}
		parts := []depositPart{{depositID: 0, qty: c.qty}}
		if c.pool == entity.PoolReserved {
			if in.DepositID > 0 {
				parts[0].depositID = in.DepositID
			} else {
				parts = attribute(holders[dinv.RowKey{WarehouseID: warehouseID, LotID: c.lot}], c.line.PresentationID, c.qty)
			}
		}
		for _, part := range parts {
			cons := &entity.SaleLotConsumption{
				SaleID:      in.SaleID,
				SaleLineID:  c.line.SaleLineID,
				WarehouseID: warehouseID,
				LotID:       c.lot,
				Quantity:    part.qty,
				Pool:        c.pool,
				DepositID:   part.depositID,
				CreatedAt:   now,
			}
			if err := repos.Consumptions.Create(ctx, cons); err != nil {
				return nil, err
			}
			res.Consumptions = append(res.Consumptions, cons)
		}
	}

	for _, hs := range holders {
		for _, h := range hs {
			if err := h.flush(ctx, repos, warehouseID, now); err != nil {
				return nil, err
			}
		}
	}

	for p, d := range details {
		quota, ok := depositQuota[p]
		if !ok || quota.Equal(d.ReservedQty) {
			continue
		}
		d.ReservedQty = quota
		d.UpdatedAt = now
		if err := repos.Reservations.Upsert(ctx, d); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// reservedHolder anticipo que retiene reservado en una fila. Sus líneas ya están bloqueadas.
type reservedHolder struct {
	depositID int64
	firstHold int64
	left      decimal.Decimal
	details   []*entity.ReservationDetail
	taken     map[int64]decimal.Decimal // por presentación
}

type depositPart struct {
	depositID int64
	qty       decimal.Decimal
}

// lockReservedHolders bloquea las líneas de los anticipos que retienen reservado en las filas dadas
// y devuelve, por fila, los anticipos ordenados por su primera retención. Un mismo anticipo se
// comparte entre filas para que el ajuste de sus líneas se haga una sola vez.
func lockReservedHolders(ctx context.Context, repos TxRepos, keys []dinv.RowKey) (map[dinv.RowKey][]*reservedHolder, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	sortKeys(keys)
	firstByKey := make(map[dinv.RowKey]map[int64]int64, len(keys))
	var deposits []int64
	seen := make(map[int64]bool)
	for _, k := range keys {
		entries, err := repos.Journal.List(ctx, repository.KardexFilter{
			WarehouseID:  k.WarehouseID,
			LotID:        k.LotID,
			Kind:         entity.MovementReservationHold,
			SourceModule: entity.SourceAnticipo,
		})
		if err != nil {
			return nil, err
		}
		first := make(map[int64]int64)
		for _, e := range entries {
			if wh, ok := e.AffectedWarehouse(); !ok || wh != k.WarehouseID {
				continue
			}
			dep, err := strconv.ParseInt(e.SourceID, 10, 64)
			if err != nil || dep <= 0 {
				continue
			}
			if id, ok := first[dep]; !ok || e.ID < id {
				first[dep] = e.ID
			}
			if !seen[dep] {
				seen[dep] = true
				deposits = append(deposits, dep)
			}
		}
		firstByKey[k] = first
	}
	sort.Slice(deposits, func(i, j int) bool { return deposits[i] < deposits[j] })

	byDeposit := make(map[int64]*reservedHolder, len(deposits))
	outstanding := make(map[int64]map[dinv.RowKey]decimal.Decimal, len(deposits))
	for _, dep := range deposits {
		details, err := repos.Reservations.ListByDeposit(ctx, dep, true)
		if err != nil {
			return nil, err
		}
		out, err := depositOutstanding(ctx, repos, dep)
		if err != nil {
			return nil, err
		}
		byDeposit[dep] = &reservedHolder{depositID: dep, details: details, taken: make(map[int64]decimal.Decimal)}
		outstanding[dep] = out
	}

	holders := make(map[dinv.RowKey][]*reservedHolder, len(keys))
	for _, k := range keys {
		var hs []*reservedHolder
		for dep, firstID := range firstByKey[k] {
			held := outstanding[dep][k]
			if !held.IsPositive() {
				continue
			}
			base := byDeposit[dep]
			hs = append(hs, &reservedHolder{
				depositID: dep,
				firstHold: firstID,
				left:      held,
				details:   base.details,
				taken:     base.taken,
			})
		}
		sort.Slice(hs, func(i, j int) bool { return hs[i].firstHold < hs[j].firstHold })
		holders[k] = hs
	}
	return holders, nil
}

// attribute reparte qty entre los anticipos de la fila, el más antiguo primero.
// Lo que ningún anticipo retiene queda sin anticipo.
func attribute(hs []*reservedHolder, presentationID int64, qty decimal.Decimal) []depositPart {
	var parts []depositPart
	remaining := qty
	for _, h := range hs {
		if !remaining.IsPositive() {
			break
		}
		part := decimal.Min(remaining, h.left)
		if !part.IsPositive() {
			continue
		}
		h.left = h.left.Sub(part)
		h.taken[presentationID] = h.taken[presentationID].Add(part)
		parts = append(parts, depositPart{depositID: h.depositID, qty: part})
		remaining = remaining.Sub(part)
	}
	if remaining.IsPositive() {
		parts = append(parts, depositPart{qty: remaining})
	}
	return parts
}

// flush descuenta de las líneas del anticipo lo consumido por la venta, sin bajar de cero.
func (h *reservedHolder) flush(ctx context.Context, repos TxRepos, warehouseID int64, now time.Time) error {
	for _, d := range h.details {
		if d.WarehouseID != warehouseID {
			continue
		}
		taken, ok := h.taken[d.PresentationID]
		if !ok || !taken.IsPositive() {
			continue
		}
		delete(h.taken, d.PresentationID)
		next := decimal.Max(d.ReservedQty.Sub(taken), decimal.Zero)
		if next.Equal(d.ReservedQty) {
			continue
		}
		d.ReservedQty = next
		d.UpdatedAt = now
		if err := repos.Reservations.Upsert(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// consume descuenta del candidato lo ya planificado para que otras líneas no lo vuelvan a tomar.
func consume(cands []entity.LotStock, lotID int64, pool entity.StockPool, qty decimal.Decimal) {
	for i := range cands {
		if cands[i].LotID != lotID {
			continue
		}
		if pool == entity.PoolReserved {
			cands[i].Reserved = cands[i].Reserved.Sub(qty)
		} else {
			cands[i].Available = cands[i].Available.Sub(qty)
		}
		return
	}
}
