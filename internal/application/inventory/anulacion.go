package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CancelSaleResult resultado de anular una venta.
type CancelSaleResult struct {
	OperationID string
	SaleID      int64
	Restored    []*entity.SaleLotConsumption
}

// AnulacionUseCase anulación de ventas reproduciendo sus consumos por lote.
type AnulacionUseCase struct {
	deps Deps
}

// NewAnulacionUseCase construye el caso de uso.
func NewAnulacionUseCase(deps Deps) *AnulacionUseCase {
	return &AnulacionUseCase{deps: deps.withDefaults()}
}

// CancelSale devuelve a disponible lo consumido por la venta y la marca anulada.
// Lo que venía de reservado vuelve a disponible; la reserva del anticipo no se recrea.
func (uc *AnulacionUseCase) CancelSale(ctx context.Context, saleID int64, reason, userID string) (*CancelSaleResult, error) {
	if saleID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var res *CancelSaleResult
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "sale.cancel", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			res, err = uc.cancelTx(ctx, repos, saleID, reason, userID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Logger.Info().
		Str("operation_id", res.OperationID).
		Int64("sale_id", saleID).
		Int("lots", len(res.Restored)).
		Msg("venta anulada")
	return res, nil
}

func (uc *AnulacionUseCase) cancelTx(ctx context.Context, repos TxRepos, saleID int64, reason, userID string) (*CancelSaleResult, error) {
	sale, err := repos.Sales.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %d", domain.ErrNotFound, saleID)
	}
	if sale.IsCancelled() {
		return nil, fmt.Errorf("%w: venta %d ya anulada", domain.ErrIllegalState, saleID)
	}
	paid, err := repos.Receivables.HasPaymentApplications(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, fmt.Errorf("%w: la cuenta por cobrar de la venta %d tiene pagos aplicados", domain.ErrConflict, saleID)
	}
	consumptions, err := repos.Consumptions.ListBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if len(consumptions) == 0 {
		return nil, fmt.Errorf("%w: venta %d sin consumos por lote", domain.ErrIllegalState, saleID)
	}

	// Un crédito por fila, en orden de lote.
	credit := make(map[dinv.RowKey]decimal.Decimal)
	keys := make([]dinv.RowKey, 0, len(consumptions))
	create := make(map[dinv.RowKey]bool)
	for _, c := range consumptions {
		k := dinv.RowKey{WarehouseID: c.WarehouseID, LotID: c.LotID}
		if _, ok := credit[k]; !ok {
			keys = append(keys, k)
			create[k] = true
		}
		credit[k] = credit[k].Add(c.Quantity)
	}
	sortKeys(keys)
	if _, err := lockRows(ctx, repos, keys, create); err != nil {
		return nil, err
	}

	now := uc.deps.Clock()
	opID := newOperationID()
	notes := "anulación venta " + strconv.FormatInt(saleID, 10)
	if reason != "" {
		notes += ": " + reason
	}
	for _, k := range keys {
		entry := &entity.MovementEntry{
			OperationID:     opID,
			Kind:            entity.MovementAdjustment,
			DestWarehouseID: entity.WarehouseRef(k.WarehouseID),
			Quantity:        credit[k],
			SourceModule:    entity.SourceVenta,
			SourceID:        strconv.FormatInt(saleID, 10),
			Notes:           notes,
			CreatedBy:       userID,
		}
		d := Delta{WarehouseID: k.WarehouseID, LotID: k.LotID, Available: credit[k], Reserved: decimal.Zero}
		if _, err := applyDelta(ctx, repos, now, d, entry); err != nil {
			return nil, err
		}
	}
	if err := repos.Sales.MarkCancelled(ctx, saleID, reason, now); err != nil {
		return nil, err
	}
	sort.SliceStable(consumptions, func(i, j int) bool { return consumptions[i].LotID < consumptions[j].LotID })
	return &CancelSaleResult{OperationID: opID, SaleID: saleID, Restored: consumptions}, nil
}
