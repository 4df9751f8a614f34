package inventory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReceiptInput línea de recepción de compra confirmada.
type ReceiptInput struct {
	ReceiptID      int64
	ReceiptLineID  int64
	WarehouseID    int64
	PresentationID int64
	LotCode        string
	ManufacturedAt *time.Time
	ExpiresAt      time.Time
	Quantity       decimal.Decimal
	UserID         string
}

// ReceiptResult lote creado y existencia resultante.
type ReceiptResult struct {
	Lot   *entity.Lot
	Row   *entity.StockRow
	Entry *entity.MovementEntry
}

// ReceiptUseCase punto de entrada de recepción: crea el lote y acredita disponible.
type ReceiptUseCase struct {
	deps Deps
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(deps Deps) *ReceiptUseCase {
	return &ReceiptUseCase{deps: deps.withDefaults()}
}

// Receive crea el lote y registra purchase_in en una sola transacción.
func (uc *ReceiptUseCase) Receive(ctx context.Context, in ReceiptInput) (*ReceiptResult, error) {
	in.LotCode = strings.TrimSpace(in.LotCode)
	if in.ReceiptID <= 0 || in.ReceiptLineID <= 0 || in.WarehouseID <= 0 || in.PresentationID <= 0 ||
		in.LotCode == "" || in.ExpiresAt.IsZero() || !domain.ValidQuantity(in.Quantity) {
		return nil, domain.ErrInvalidInput
	}
	if in.ManufacturedAt != nil && in.ManufacturedAt.After(in.ExpiresAt) {
		return nil, domain.ErrInvalidInput
	}
	if err := checkWarehouse(ctx, uc.deps, in.WarehouseID); err != nil {
		return nil, err
	}
	var res *ReceiptResult
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		now := uc.deps.Clock()
		lot := &entity.Lot{
			PresentationID: in.PresentationID,
			Code:           in.LotCode,
			ReceiptLineID:  in.ReceiptLineID,
			ManufacturedAt: in.ManufacturedAt,
			ExpiresAt:      in.ExpiresAt,
			CreatedAt:      now,
		}
		if err := repos.Lots.Create(ctx, lot); err != nil {
			return err
		}
		entry := &entity.MovementEntry{
			OperationID:     newOperationID(),
			Kind:            entity.MovementPurchaseIn,
			DestWarehouseID: entity.WarehouseRef(in.WarehouseID),
			Quantity:        in.Quantity,
			SourceModule:    entity.SourceRecepcion,
			SourceID:        strconv.FormatInt(in.ReceiptID, 10),
			Notes:           "lote " + in.LotCode,
			CreatedBy:       in.UserID,
		}
		d := Delta{WarehouseID: in.WarehouseID, LotID: lot.ID, Available: in.Quantity, Reserved: decimal.Zero}
		row, err := applyDelta(ctx, repos, now, d, entry)
		if err != nil {
			return err
		}
		res = &ReceiptResult{Lot: lot, Row: row, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Int64("lot_id", res.Lot.ID).
		Str("lot_code", res.Lot.Code).
		Int64("warehouse_id", in.WarehouseID).
		Str("quantity", in.Quantity.String()).
		Msg("recepción registrada")
	return res, nil
}
