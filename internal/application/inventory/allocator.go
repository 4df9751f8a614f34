package inventory

import (
	"context"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// planFEFO lee candidatos sin bloquear y arma el plan. Es solo consultivo: quien lo ejecute debe
// bloquear las filas y volver a validar.
func planFEFO(ctx context.Context, stock repository.StockRowRepository, warehouseID, presentationID int64, qty decimal.Decimal, pool entity.StockPool) (dinv.Plan, error) {
	candidates, err := stock.ListByPresentation(ctx, warehouseID, presentationID, pool)
	if err != nil {
		return dinv.Plan{}, err
	}
	return dinv.PlanFEFO(candidates, qty, pool)
}

// Coverage proyección de cobertura de una cantidad por pool.
type Coverage struct {
	WarehouseID    int64
	PresentationID int64
	Requested      decimal.Decimal
	Available      dinv.Plan
	Reserved       dinv.Plan
	// Shortfall lo que falta aun sumando disponible y reservado.
	Shortfall decimal.Decimal
}

// AllocatorUseCase consultas FEFO de solo lectura.
type AllocatorUseCase struct {
	deps Deps
}

// NewAllocatorUseCase construye el caso de uso.
func NewAllocatorUseCase(deps Deps) *AllocatorUseCase {
	return &AllocatorUseCase{deps: deps.withDefaults()}
}

// Plan devuelve el plan FEFO para la cantidad en el pool indicado. Un plan parcial no es error.
func (uc *AllocatorUseCase) Plan(ctx context.Context, warehouseID, presentationID int64, qty decimal.Decimal, pool entity.StockPool) (dinv.Plan, error) {
	if warehouseID <= 0 || presentationID <= 0 {
		return dinv.Plan{}, domain.ErrInvalidInput
	}
	var plan dinv.Plan
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		plan, err = planFEFO(ctx, repos.Stock, warehouseID, presentationID, qty, pool)
		return err
	})
	return plan, err
}

// Coverage calcula el plan contra disponible, contra reservado y el faltante combinado.
func (uc *AllocatorUseCase) Coverage(ctx context.Context, warehouseID, presentationID int64, qty decimal.Decimal) (*Coverage, error) {
	if warehouseID <= 0 || presentationID <= 0 || !domain.ValidQuantity(qty) {
		return nil, domain.ErrInvalidInput
	}
	out := &Coverage{WarehouseID: warehouseID, PresentationID: presentationID, Requested: qty}
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		if out.Available, err = planFEFO(ctx, repos.Stock, warehouseID, presentationID, qty, entity.PoolAvailable); err != nil {
			return err
		}
		if out.Reserved, err = planFEFO(ctx, repos.Stock, warehouseID, presentationID, qty, entity.PoolReserved); err != nil {
			return err
		}
		combined, err := planFEFO(ctx, repos.Stock, warehouseID, presentationID, qty, entity.PoolCombined)
		if err != nil {
			return err
		}
		out.Shortfall = combined.Shortfall
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
