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
	"github.com/shopspring/decimal"
)

// CreateTransferInput datos para crear un traslado.
type CreateTransferInput struct {
	OriginWarehouseID int64
	DestWarehouseID   int64
	Lines             []entity.TransferLine
	Notes             string
	UserID            string
}

// TransferUseCase traslados entre bodegas en dos fases o de una sola vez.
type TransferUseCase struct {
	deps Deps
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(deps Deps) *TransferUseCase {
	return &TransferUseCase{deps: deps.withDefaults()}
}

func (uc *TransferUseCase) validate(ctx context.Context, in *CreateTransferInput) error {
	if in.OriginWarehouseID <= 0 || in.DestWarehouseID <= 0 || len(in.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	if in.OriginWarehouseID == in.DestWarehouseID {
		return fmt.Errorf("%w: bodega origen y destino deben ser distintas", domain.ErrInvalidInput)
	}
	merged := make(map[int64]decimal.Decimal, len(in.Lines))
	for _, l := range in.Lines {
		if l.LotID <= 0 || !domain.ValidQuantity(l.Quantity) {
			return domain.ErrInvalidInput
		}
		merged[l.LotID] = merged[l.LotID].Add(l.Quantity)
	}
	lines := make([]entity.TransferLine, 0, len(merged))
	for lot, q := range merged {
		lines = append(lines, entity.TransferLine{LotID: lot, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LotID < lines[j].LotID })
	in.Lines = lines

	if err := checkWarehouse(ctx, uc.deps, in.OriginWarehouseID); err != nil {
		return err
	}
	return checkWarehouse(ctx, uc.deps, in.DestWarehouseID)
}

func (uc *TransferUseCase) createTx(ctx context.Context, repos TxRepos, in CreateTransferInput, now time.Time) (*entity.Transfer, error) {
	for _, l := range in.Lines {
		lot, err := repos.Lots.GetByID(ctx, l.LotID)
		if err != nil {
			return nil, err
		}
		if lot == nil {
			return nil, fmt.Errorf("%w: lote %d", domain.ErrNotFound, l.LotID)
		}
	}
	t := &entity.Transfer{
		OriginWarehouseID: in.OriginWarehouseID,
		DestWarehouseID:   in.DestWarehouseID,
		State:             entity.TransferPending,
		Lines:             in.Lines,
		Notes:             in.Notes,
		CreatedBy:         in.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repos.Transfers.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Create registra un traslado pendiente; no mueve stock.
func (uc *TransferUseCase) Create(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	if err := uc.validate(ctx, &in); err != nil {
		return nil, err
	}
	var t *entity.Transfer
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		t, err = uc.createTx(ctx, repos, in, uc.deps.Clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().Int64("transfer_id", t.ID).Int64("origin", t.OriginWarehouseID).Int64("dest", t.DestWarehouseID).Msg("traslado creado")
	return t, nil
}

// TransferNow crea el traslado y confirma salida e ingreso en la misma transacción.
func (uc *TransferUseCase) TransferNow(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	if err := uc.validate(ctx, &in); err != nil {
		return nil, err
	}
	var t *entity.Transfer
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "transfer.now", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			now := uc.deps.Clock()
			var err error
			if t, err = uc.createTx(ctx, repos, in, now); err != nil {
				return err
			}
			// Origen y destino se bloquean juntos antes de mover nada.
			if err := lockTransferRows(ctx, repos, t, true, true); err != nil {
				return err
			}
			opID := newOperationID()
			if err := uc.salidaTx(ctx, repos, t, opID, in.UserID, now); err != nil {
				return err
			}
			if err := uc.ingresoTx(ctx, repos, t, opID, in.UserID, now); err != nil {
				return err
			}
			t.State = entity.TransferCompleted
			t.UpdatedAt = now
			return repos.Transfers.UpdateState(ctx, t)
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().Int64("transfer_id", t.ID).Msg("traslado inmediato completado")
	return t, nil
}

// ConfirmSalida descuenta el origen: pending -> in_transit.
func (uc *TransferUseCase) ConfirmSalida(ctx context.Context, id int64, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, id, "transfer.confirm_salida", func(ctx context.Context, repos TxRepos, t *entity.Transfer, now time.Time) error {
		if t.State != entity.TransferPending {
			return fmt.Errorf("%w: traslado %d en estado %s, se esperaba pending", domain.ErrConflict, t.ID, t.State.Name())
		}
		if err := activeWarehouse(ctx, repos.Warehouses, t.OriginWarehouseID); err != nil {
			return err
		}
		if err := uc.salidaTx(ctx, repos, t, newOperationID(), userID, now); err != nil {
			return err
		}
		t.State = entity.TransferInTransit
		return nil
	})
}

// ConfirmIngreso acredita el destino: in_transit -> completed.
func (uc *TransferUseCase) ConfirmIngreso(ctx context.Context, id int64, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, id, "transfer.confirm_ingreso", func(ctx context.Context, repos TxRepos, t *entity.Transfer, now time.Time) error {
		if t.State != entity.TransferInTransit {
			return fmt.Errorf("%w: traslado %d en estado %s, se esperaba in_transit", domain.ErrConflict, t.ID, t.State.Name())
		}
		if err := activeWarehouse(ctx, repos.Warehouses, t.DestWarehouseID); err != nil {
			return err
		}
		if err := uc.ingresoTx(ctx, repos, t, newOperationID(), userID, now); err != nil {
			return err
		}
		t.State = entity.TransferCompleted
		return nil
	})
}

// Cancel anula el traslado compensando según la fase alcanzada.
func (uc *TransferUseCase) Cancel(ctx context.Context, id int64, reason, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, id, "transfer.cancel", func(ctx context.Context, repos TxRepos, t *entity.Transfer, now time.Time) error {
		opID := newOperationID()
		switch t.State {
		case entity.TransferPending:
		case entity.TransferInTransit:
			if err := uc.compensateTx(ctx, repos, t, opID, userID, reason, false, now); err != nil {
				return err
			}
		case entity.TransferCompleted:
			if err := uc.compensateTx(ctx, repos, t, opID, userID, reason, true, now); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: traslado %d ya anulado", domain.ErrConflict, t.ID)
		}
		t.State = entity.TransferCancelled
		t.CancelReason = reason
		return nil
	})
}

// Get devuelve el traslado.
func (uc *TransferUseCase) Get(ctx context.Context, id int64) (*entity.Transfer, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var t *entity.Transfer
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		t, err = repos.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: traslado %d", domain.ErrNotFound, id)
	}
	return t, nil
}

func (uc *TransferUseCase) transition(ctx context.Context, id int64, op string, step func(ctx context.Context, repos TxRepos, t *entity.Transfer, now time.Time) error) (*entity.Transfer, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var t *entity.Transfer
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, op, func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			t, err = repos.Transfers.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("%w: traslado %d", domain.ErrNotFound, id)
			}
			now := uc.deps.Clock()
			if err := step(ctx, repos, t, now); err != nil {
				return err
			}
			t.UpdatedAt = now
			return repos.Transfers.UpdateState(ctx, t)
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().Int64("transfer_id", t.ID).Str("state", t.State.Name()).Str("op", op).Msg("traslado actualizado")
	return t, nil
}

func (uc *TransferUseCase) salidaTx(ctx context.Context, repos TxRepos, t *entity.Transfer, opID, userID string, now time.Time) error {
	if err := lockTransferRows(ctx, repos, t, true, false); err != nil {
		return err
	}
	for _, l := range t.Lines {
		entry := uc.entry(t, opID, userID, entity.MovementTransferOut, l.Quantity.Neg(), "")
		d := Delta{WarehouseID: t.OriginWarehouseID, LotID: l.LotID, Available: l.Quantity.Neg(), Reserved: decimal.Zero, MustExist: true}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return err
		}
	}
	return nil
}

func (uc *TransferUseCase) ingresoTx(ctx context.Context, repos TxRepos, t *entity.Transfer, opID, userID string, now time.Time) error {
	if err := lockTransferRows(ctx, repos, t, false, true); err != nil {
		return err
	}
	for _, l := range t.Lines {
		entry := uc.entry(t, opID, userID, entity.MovementTransferIn, l.Quantity, "")
		d := Delta{WarehouseID: t.DestWarehouseID, LotID: l.LotID, Available: l.Quantity, Reserved: decimal.Zero}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return err
		}
	}
	return nil
}

// lockTransferRows bloquea en una sola pasada ordenada las filas de origen y/o destino del traslado.
// Las de destino se crean en cero si faltan.
func lockTransferRows(ctx context.Context, repos TxRepos, t *entity.Transfer, origin, dest bool) error {
	keys := make([]dinv.RowKey, 0, 2*len(t.Lines))
	create := make(map[dinv.RowKey]bool, len(t.Lines))
	for _, l := range t.Lines {
		if origin {
			keys = append(keys, dinv.RowKey{WarehouseID: t.OriginWarehouseID, LotID: l.LotID})
		}
		if dest {
			k := dinv.RowKey{WarehouseID: t.DestWarehouseID, LotID: l.LotID}
			keys = append(keys, k)
			create[k] = true
		}
	}
	_, err := lockRows(ctx, repos, keys, create)
	return err
}

// compensateTx revierte con ajustes: con fromDest primero debita el destino y luego acredita el origen.
func (uc *TransferUseCase) compensateTx(ctx context.Context, repos TxRepos, t *entity.Transfer, opID, userID, reason string, fromDest bool, now time.Time) error {
	keys := make([]dinv.RowKey, 0, 2*len(t.Lines))
	create := make(map[dinv.RowKey]bool, len(t.Lines))
	for _, l := range t.Lines {
		k := dinv.RowKey{WarehouseID: t.OriginWarehouseID, LotID: l.LotID}
		keys = append(keys, k)
		create[k] = true
		if fromDest {
			keys = append(keys, dinv.RowKey{WarehouseID: t.DestWarehouseID, LotID: l.LotID})
		}
	}
	if _, err := lockRows(ctx, repos, keys, create); err != nil {
		return err
	}
	notes := "anulación traslado " + strconv.FormatInt(t.ID, 10)
	if reason != "" {
		notes += ": " + reason
	}
	for _, l := range t.Lines {
		if fromDest {
			entry := uc.entry(t, opID, userID, entity.MovementAdjustment, l.Quantity.Neg(), notes)
			entry.DestWarehouseID = nil
			entry.OriginWarehouseID = entity.WarehouseRef(t.DestWarehouseID)
			d := Delta{WarehouseID: t.DestWarehouseID, LotID: l.LotID, Available: l.Quantity.Neg(), Reserved: decimal.Zero, MustExist: true}
			if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
				return err
			}
		}
		entry := uc.entry(t, opID, userID, entity.MovementAdjustment, l.Quantity, notes)
		entry.OriginWarehouseID = nil
		entry.DestWarehouseID = entity.WarehouseRef(t.OriginWarehouseID)
		d := Delta{WarehouseID: t.OriginWarehouseID, LotID: l.LotID, Available: l.Quantity, Reserved: decimal.Zero}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return err
		}
	}
	return nil
}

func (uc *TransferUseCase) entry(t *entity.Transfer, opID, userID string, kind entity.MovementKind, qty decimal.Decimal, notes string) *entity.MovementEntry {
	return &entity.MovementEntry{
		OperationID:       opID,
		Kind:              kind,
		OriginWarehouseID: entity.WarehouseRef(t.OriginWarehouseID),
		DestWarehouseID:   entity.WarehouseRef(t.DestWarehouseID),
		Quantity:          qty,
		SourceModule:      entity.SourceTransferencia,
		SourceID:          strconv.FormatInt(t.ID, 10),
		Notes:             notes,
		CreatedBy:         userID,
	}
}
