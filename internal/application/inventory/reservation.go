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

// ReserveInput solicitud de reserva para un anticipo.
type ReserveInput struct {
	DepositID      int64
	WarehouseID    int64
	PresentationID int64
	Quantity       decimal.Decimal
	// AllowShortfall acepta cobertura parcial; lo no cubierto queda solo en RequestedQty.
	AllowShortfall bool
	UserID         string
}

// ReleaseInput solicitud de liberación parcial de un anticipo.
type ReleaseInput struct {
	DepositID      int64
	WarehouseID    int64
	PresentationID int64
	Quantity       decimal.Decimal
	UserID         string
}

// LotQty cantidad movida de un lote.
type LotQty struct {
	LotID    int64
	Quantity decimal.Decimal
}

// ReservationResult resultado de reservar o liberar.
type ReservationResult struct {
	OperationID string
	Lines       []LotQty
	Moved       decimal.Decimal
	Shortfall   decimal.Decimal
	Detail      *entity.ReservationDetail
}

// ReleaseAllResult resultado de liberar todo un anticipo.
type ReleaseAllResult struct {
	OperationID string
	Released    map[dinv.RowKey]decimal.Decimal
	Details     []*entity.ReservationDetail
}

// ReservationUseCase reservas de stock contra anticipos.
type ReservationUseCase struct {
	deps Deps
}

// NewReservationUseCase construye el caso de uso.
func NewReservationUseCase(deps Deps) *ReservationUseCase {
	return &ReservationUseCase{deps: deps.withDefaults()}
}

// Reserve mueve cantidad de disponible a reservado siguiendo FEFO. Todo o nada salvo AllowShortfall.
func (uc *ReservationUseCase) Reserve(ctx context.Context, in ReserveInput) (*ReservationResult, error) {
	if in.DepositID <= 0 || in.WarehouseID <= 0 || in.PresentationID <= 0 || !domain.ValidQuantity(in.Quantity) {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	var res *ReservationResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "reservation.reserve", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			res, err = uc.reserveTx(ctx, repos, in)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", res.OperationID).
		Int64("deposit_id", in.DepositID).
		Int64("warehouse_id", in.WarehouseID).
		Int64("presentation_id", in.PresentationID).
		Str("reserved", res.Moved.String()).
		Str("shortfall", res.Shortfall.String()).
		Msg("reserva registrada")
	return res, nil
}

func (uc *ReservationUseCase) reserveTx(ctx context.Context, repos TxRepos, in ReserveInput) (*ReservationResult, error) {
	detail, err := repos.Reservations.LockOrCreate(ctx, in.DepositID, in.PresentationID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	plan, err := planFEFO(ctx, repos.Stock, in.WarehouseID, in.PresentationID, in.Quantity, entity.PoolAvailable)
	if err != nil {
		return nil, err
	}
	if !plan.Complete() && !in.AllowShortfall {
		return nil, &domain.StockError{
			Kind:           domain.ErrInsufficientStock,
			WarehouseID:    in.WarehouseID,
			PresentationID: in.PresentationID,
			Pool:           entity.PoolAvailable.String(),
			Requested:      in.Quantity,
			Available:      plan.Covered,
		}
	}

	keys := make([]dinv.RowKey, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		keys = append(keys, dinv.RowKey{WarehouseID: in.WarehouseID, LotID: l.LotID})
	}
	rows, err := lockRows(ctx, repos, keys, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range plan.Lines {
		row := rows[dinv.RowKey{WarehouseID: in.WarehouseID, LotID: l.LotID}]
		if row.Available.LessThan(l.Quantity) {
			return nil, staleError(in.WarehouseID, l.LotID, entity.PoolAvailable, l.Quantity, row.Available)
		}
	}

	now := uc.deps.Clock()
	opID := newOperationID()
	res := &ReservationResult{OperationID: opID, Moved: decimal.Zero}
	for _, l := range sortedLines(plan.Lines) {
		entry := &entity.MovementEntry{
			OperationID:       opID,
			Kind:              entity.MovementReservationHold,
			OriginWarehouseID: entity.WarehouseRef(in.WarehouseID),
			DestWarehouseID:   entity.WarehouseRef(in.WarehouseID),
			Quantity:          l.Quantity,
			SourceModule:      entity.SourceAnticipo,
			SourceID:          strconv.FormatInt(in.DepositID, 10),
			CreatedBy:         in.UserID,
		}
		d := Delta{WarehouseID: in.WarehouseID, LotID: l.LotID, Available: l.Quantity.Neg(), Reserved: l.Quantity, MustExist: true}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return nil, err
		}
		res.Lines = append(res.Lines, LotQty{LotID: l.LotID, Quantity: l.Quantity})
		res.Moved = res.Moved.Add(l.Quantity)
	}
	res.Shortfall = in.Quantity.Sub(res.Moved)

	detail.RequestedQty = detail.RequestedQty.Add(in.Quantity)
	detail.ReservedQty = detail.ReservedQty.Add(res.Moved)
	detail.UpdatedAt = now
	if err := repos.Reservations.Upsert(ctx, detail); err != nil {
		return nil, err
	}
	res.Detail = detail
	return res, nil
}

// Release devuelve a disponible parte de lo reservado por el anticipo.
func (uc *ReservationUseCase) Release(ctx context.Context, in ReleaseInput) (*ReservationResult, error) {
	if in.DepositID <= 0 || in.WarehouseID <= 0 || in.PresentationID <= 0 || !domain.ValidQuantity(in.Quantity) {
		return nil, domain.ErrInvalidInput
	}
	var res *ReservationResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "reservation.release", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			res, err = uc.releaseTx(ctx, repos, in)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", res.OperationID).
		Int64("deposit_id", in.DepositID).
		Int64("warehouse_id", in.WarehouseID).
		Int64("presentation_id", in.PresentationID).
		Str("released", res.Moved.String()).
		Msg("reserva liberada")
	return res, nil
}

func (uc *ReservationUseCase) releaseTx(ctx context.Context, repos TxRepos, in ReleaseInput) (*ReservationResult, error) {
	detail, err := repos.Reservations.GetForUpdate(ctx, in.DepositID, in.PresentationID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	held := decimal.Zero
	if detail != nil {
		held = detail.ReservedQty
	}
	if detail == nil || in.Quantity.GreaterThan(held) {
		return nil, &domain.StockError{
			Kind:           domain.ErrInsufficientReservation,
			WarehouseID:    in.WarehouseID,
			PresentationID: in.PresentationID,
			Pool:           entity.PoolReserved.String(),
			Requested:      in.Quantity,
			Available:      held,
		}
	}

	outstanding, err := depositOutstanding(ctx, repos, in.DepositID)
	if err != nil {
		return nil, err
	}
	candidates, err := repos.Stock.ListByPresentation(ctx, in.WarehouseID, in.PresentationID, entity.PoolReserved)
	if err != nil {
		return nil, err
	}
	restrictToDeposit(candidates, outstanding)
	plan, err := dinv.PlanFEFO(candidates, in.Quantity, entity.PoolReserved)
	if err != nil {
		return nil, err
	}
	if !plan.Complete() {
		return nil, &domain.StockError{
			Kind:           domain.ErrInsufficientReservation,
			WarehouseID:    in.WarehouseID,
			PresentationID: in.PresentationID,
			Pool:           entity.PoolReserved.String(),
			Requested:      in.Quantity,
			Available:      plan.Covered,
		}
	}

	keys := make([]dinv.RowKey, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		keys = append(keys, dinv.RowKey{WarehouseID: in.WarehouseID, LotID: l.LotID})
	}
	rows, err := lockRows(ctx, repos, keys, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range plan.Lines {
		row := rows[dinv.RowKey{WarehouseID: in.WarehouseID, LotID: l.LotID}]
		if row.Reserved.LessThan(l.Quantity) {
			return nil, staleError(in.WarehouseID, l.LotID, entity.PoolReserved, l.Quantity, row.Reserved)
		}
	}

	now := uc.deps.Clock()
	opID := newOperationID()
	res := &ReservationResult{OperationID: opID, Moved: decimal.Zero}
	for _, l := range sortedLines(plan.Lines) {
		if err := releaseLot(ctx, repos, now, opID, in.DepositID, in.WarehouseID, l.LotID, l.Quantity, in.UserID); err != nil {
			return nil, err
		}
		res.Lines = append(res.Lines, LotQty{LotID: l.LotID, Quantity: l.Quantity})
		res.Moved = res.Moved.Add(l.Quantity)
	}
	res.Shortfall = decimal.Zero

	detail.ReservedQty = detail.ReservedQty.Sub(res.Moved)
	detail.UpdatedAt = now
	if err := repos.Reservations.Upsert(ctx, detail); err != nil {
		return nil, err
	}
	res.Detail = detail
	return res, nil
}

// ReleaseAll libera todo lo que el anticipo aún retiene y deja sus líneas con ReservedQty en cero.
func (uc *ReservationUseCase) ReleaseAll(ctx context.Context, depositID int64, userID string) (*ReleaseAllResult, error) {
	if depositID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var res *ReleaseAllResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "reservation.release_all", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			res, err = uc.releaseAllTx(ctx, repos, depositID, userID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", res.OperationID).
		Int64("deposit_id", depositID).
		Int("lots", len(res.Released)).
		Msg("anticipo liberado por completo")
	return res, nil
}

func (uc *ReservationUseCase) releaseAllTx(ctx context.Context, repos TxRepos, depositID int64, userID string) (*ReleaseAllResult, error) {
	details, err := repos.Reservations.ListByDeposit(ctx, depositID, true)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("%w: anticipo %d sin líneas de reserva", domain.ErrNotFound, depositID)
	}
	outstanding, err := depositOutstanding(ctx, repos, depositID)
	if err != nil {
		return nil, err
	}
	keys := make([]dinv.RowKey, 0, len(outstanding))
	for k, q := range outstanding {
		if q.IsPositive() {
			keys = append(keys, k)
		}
	}
	rows, err := lockRows(ctx, repos, keys, nil)
	if err != nil {
		return nil, err
	}

	now := uc.deps.Clock()
	opID := newOperationID()
	res := &ReleaseAllResult{OperationID: opID, Released: make(map[dinv.RowKey]decimal.Decimal)}
	sortKeys(keys)
	for _, k := range keys {
		qty := decimal.Min(outstanding[k], rows[k].Reserved)
		if !qty.IsPositive() {
			continue
		}
		if err := releaseLot(ctx, repos, now, opID, depositID, k.WarehouseID, k.LotID, qty, userID); err != nil {
			return nil, err
		}
		res.Released[k] = qty
	}
	for _, d := range details {
		d.ReservedQty = decimal.Zero
		d.UpdatedAt = now
		if err := repos.Reservations.Upsert(ctx, d); err != nil {
			return nil, err
		}
	}
	res.Details = details
	return res, nil
}

// Details devuelve las líneas de reserva del anticipo.
func (uc *ReservationUseCase) Details(ctx context.Context, depositID int64) ([]*entity.ReservationDetail, error) {
	if depositID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var out []*entity.ReservationDetail
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Reservations.ListByDeposit(ctx, depositID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: anticipo %d", domain.ErrNotFound, depositID)
	}
	return out, nil
}

func (uc *ReservationUseCase) checkWarehouse(ctx context.Context, warehouseID int64) error {
	return checkWarehouse(ctx, uc.deps, warehouseID)
}

// checkWarehouse valida la bodega antes de abrir la transacción.
func checkWarehouse(ctx context.Context, deps Deps, warehouseID int64) error {
	return activeWarehouse(ctx, deps.Warehouses, warehouseID)
}

// activeWarehouse exige que la bodega exista y acepte movimientos. Sin repositorio no valida.
func activeWarehouse(ctx context.Context, warehouses repository.WarehouseRepository, warehouseID int64) error {
	if warehouses == nil {
		return nil
	}
	w, err := warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("%w: bodega %d", domain.ErrNotFound, warehouseID)
	}
	if !w.AcceptsMovements() {
		return fmt.Errorf("%w: bodega %d inactiva", domain.ErrIllegalState, warehouseID)
	}
	return nil
}

// releaseLot mueve qty de reservado a disponible en una fila y registra reservation_release.
func releaseLot(ctx context.Context, repos TxRepos, now time.Time, opID string, depositID, warehouseID, lotID int64, qty decimal.Decimal, userID string) error {
	entry := &entity.MovementEntry{
		OperationID:       opID,
		Kind:              entity.MovementReservationRelease,
		OriginWarehouseID: entity.WarehouseRef(warehouseID),
		DestWarehouseID:   entity.WarehouseRef(warehouseID),
		Quantity:          qty,
		SourceModule:      entity.SourceAnticipo,
		SourceID:          strconv.FormatInt(depositID, 10),
		CreatedBy:         userID,
	}
	d := Delta{WarehouseID: warehouseID, LotID: lotID, Available: qty, Reserved: qty.Neg(), MustExist: true}
	_, err := applyDelta(ctx, repos, now, d, entry)
	return err
}

// depositOutstanding calcula lo que el anticipo aún retiene por fila: holds - releases - consumos de reservado.
func depositOutstanding(ctx context.Context, repos TxRepos, depositID int64) (map[dinv.RowKey]decimal.Decimal, error) {
	entries, err := repos.Journal.ListBySource(ctx, entity.SourceAnticipo, strconv.FormatInt(depositID, 10))
	if err != nil {
		return nil, err
	}
	out := make(map[dinv.RowKey]decimal.Decimal)
	for _, e := range entries {
		wh, ok := e.AffectedWarehouse()
		if !ok {
			continue
		}
		k := dinv.RowKey{WarehouseID: wh, LotID: e.LotID}
		switch e.Kind {
		case entity.MovementReservationHold:
			out[k] = out[k].Add(e.Quantity)
		case entity.MovementReservationRelease:
			out[k] = out[k].Sub(e.Quantity)
		}
	}
	consumed, err := repos.Consumptions.ListByDeposit(ctx, depositID)
	if err != nil {
		return nil, err
	}
	for _, c := range consumed {
		if c.Pool != entity.PoolReserved {
			continue
		}
		k := dinv.RowKey{WarehouseID: c.WarehouseID, LotID: c.LotID}
		out[k] = out[k].Sub(c.Quantity)
	}
	return out, nil
}

// restrictToDeposit limita el reservado de cada candidato a lo que retiene el anticipo.
func restrictToDeposit(candidates []entity.LotStock, outstanding map[dinv.RowKey]decimal.Decimal) {
	for i := range candidates {
		k := dinv.RowKey{WarehouseID: candidates[i].WarehouseID, LotID: candidates[i].LotID}
		held, ok := outstanding[k]
		if !ok || held.IsNegative() {
			held = decimal.Zero
		}
		candidates[i].Reserved = decimal.Min(candidates[i].Reserved, held)
	}
}

func staleError(warehouseID, lotID int64, pool entity.StockPool, requested, available decimal.Decimal) error {
	return &domain.StockError{
		Kind:        domain.ErrInsufficientStock,
		WarehouseID: warehouseID,
		LotID:       lotID,
		Pool:        pool.String(),
		Requested:   requested,
		Available:   available,
		Stale:       true,
	}
}

// sortedLines devuelve las líneas del plan en orden de id de lote, el mismo orden de los bloqueos.
func sortedLines(lines []dinv.PlanLine) []dinv.PlanLine {
	out := append([]dinv.PlanLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LotID < out[j].LotID })
	return out
}

func sortKeys(keys []dinv.RowKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LotID != keys[j].LotID {
			return keys[i].LotID < keys[j].LotID
		}
		return keys[i].WarehouseID < keys[j].WarehouseID
	})
}
