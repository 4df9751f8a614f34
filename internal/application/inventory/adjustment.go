package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AdjustmentInput ajuste manual de una fila (merma, corrección de conteo).
type AdjustmentInput struct {
	WarehouseID int64
	LotID       int64
	Quantity    decimal.Decimal // siempre positiva; la dirección la da la operación
	Reason      string
	UserID      string
}

// AdjustmentResult fila resultante y el movimiento registrado.
type AdjustmentResult struct {
	Row   *entity.StockRow
	Entry *entity.MovementEntry
}

// AdjustmentUseCase ingresos y egresos manuales.
type AdjustmentUseCase struct {
	deps Deps
}

// NewAdjustmentUseCase construye el caso de uso.
func NewAdjustmentUseCase(deps Deps) *AdjustmentUseCase {
	return &AdjustmentUseCase{deps: deps.withDefaults()}
}

// Ingress suma a disponible; crea la fila si no existe.
func (uc *AdjustmentUseCase) Ingress(ctx context.Context, in AdjustmentInput) (*AdjustmentResult, error) {
	return uc.adjust(ctx, in, true)
}

// Egress resta de disponible; la fila debe existir y no puede quedar negativa.
func (uc *AdjustmentUseCase) Egress(ctx context.Context, in AdjustmentInput) (*AdjustmentResult, error) {
	return uc.adjust(ctx, in, false)
}

func (uc *AdjustmentUseCase) adjust(ctx context.Context, in AdjustmentInput, ingress bool) (*AdjustmentResult, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.WarehouseID <= 0 || in.LotID <= 0 || !domain.ValidQuantity(in.Quantity) || in.Reason == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := checkWarehouse(ctx, uc.deps, in.WarehouseID); err != nil {
		return nil, err
	}
	opID := newOperationID()
	var res *AdjustmentResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "adjustment", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			lot, err := repos.Lots.GetByID(ctx, in.LotID)
			if err != nil {
				return err
			}
			if lot == nil {
				return fmt.Errorf("%w: lote %d", domain.ErrNotFound, in.LotID)
			}
			entry := &entity.MovementEntry{
				OperationID:  opID,
				Kind:         entity.MovementAdjustment,
				SourceModule: entity.SourceAjuste,
				SourceID:     opID,
				Notes:        in.Reason,
				CreatedBy:    in.UserID,
			}
			d := Delta{WarehouseID: in.WarehouseID, LotID: in.LotID, Reserved: decimal.Zero}
			if ingress {
				entry.Quantity = in.Quantity
				entry.DestWarehouseID = entity.WarehouseRef(in.WarehouseID)
				d.Available = in.Quantity
			} else {
				entry.Quantity = in.Quantity.Neg()
				entry.OriginWarehouseID = entity.WarehouseRef(in.WarehouseID)
				d.Available = in.Quantity.Neg()
				d.MustExist = true
			}
			row, err := applyDelta(ctx, repos, uc.deps.Clock(), d, entry)
			if err != nil {
				return err
			}
			res = &AdjustmentResult{Row: row, Entry: entry}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", opID).
		Int64("warehouse_id", in.WarehouseID).
		Int64("lot_id", in.LotID).
		Str("quantity", res.Entry.Quantity.String()).
		Str("reason", in.Reason).
		Msg("ajuste de inventario")
	return res, nil
}
