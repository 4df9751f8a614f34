package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Discrepancy fila cuya existencia no coincide con la reconstrucción desde el kardex.
type Discrepancy struct {
	WarehouseID int64
	LotID       int64
	Expected    dinv.Balance
	Actual      dinv.Balance
}

// ReconcileReport resultado de conciliar una bodega (0 = todas).
type ReconcileReport struct {
	WarehouseID   int64
	RowsChecked   int
	Discrepancies []Discrepancy
	CheckedAt     time.Time
}

// OK indica que kardex y existencias coinciden.
func (r *ReconcileReport) OK() bool { return len(r.Discrepancies) == 0 }

// ReconcileUseCase verifica la ley del kardex: reproducir los movimientos desde cero da la existencia actual.
type ReconcileUseCase struct {
	deps        Deps
	concurrency int
}

// NewReconcileUseCase construye el caso de uso; concurrency acota ReconcileAll (mínimo 1).
func NewReconcileUseCase(deps Deps, concurrency int) *ReconcileUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReconcileUseCase{deps: deps.withDefaults(), concurrency: concurrency}
}

// Reconcile concilia una bodega y registra cada discrepancia encontrada.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, warehouseID int64) (*ReconcileReport, error) {
	var entries []*entity.MovementEntry
	var rows []*entity.StockRow
	// Kardex y filas se leen en la misma instantánea.
	err := uc.deps.TxRunner.RunReadOnly(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		if entries, err = repos.Journal.ListForReplay(ctx, warehouseID); err != nil {
			return err
		}
		rows, err = repos.Stock.ListByWarehouse(ctx, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	expected := dinv.Replay(entries)
	report := &ReconcileReport{WarehouseID: warehouseID, RowsChecked: len(rows), CheckedAt: uc.deps.Clock()}
	seen := make(map[dinv.RowKey]bool, len(rows))
	for _, r := range rows {
		k := dinv.RowKey{WarehouseID: r.WarehouseID, LotID: r.LotID}
		seen[k] = true
		exp, ok := expected[k]
		if !ok {
			exp = dinv.Balance{Available: decimal.Zero, Reserved: decimal.Zero}
		}
		act := dinv.Balance{Available: r.Available, Reserved: r.Reserved}
		if !exp.Available.Equal(act.Available) || !exp.Reserved.Equal(act.Reserved) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{WarehouseID: k.WarehouseID, LotID: k.LotID, Expected: exp, Actual: act})
		}
	}
	for k, exp := range expected {
		if seen[k] || (warehouseID != 0 && k.WarehouseID != warehouseID) {
			continue
		}
		if exp.Available.IsZero() && exp.Reserved.IsZero() {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			WarehouseID: k.WarehouseID,
			LotID:       k.LotID,
			Expected:    exp,
			Actual:      dinv.Balance{Available: decimal.Zero, Reserved: decimal.Zero},
		})
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		a, b := report.Discrepancies[i], report.Discrepancies[j]
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.LotID < b.LotID
	})

	for _, d := range report.Discrepancies {
		uc.deps.Logger.Error().
			Int64("warehouse_id", d.WarehouseID).
			Int64("lot_id", d.LotID).
			Str("expected_available", d.Expected.Available.String()).
			Str("actual_available", d.Actual.Available.String()).
			Str("expected_reserved", d.Expected.Reserved.String()).
			Str("actual_reserved", d.Actual.Reserved.String()).
			Msg("kardex y existencia no coinciden")
	}
	uc.deps.Logger.Info().Int64("warehouse_id", warehouseID).Int("rows", report.RowsChecked).Int("discrepancies", len(report.Discrepancies)).Msg("conciliación terminada")
	return report, nil
}

// ReconcileAll concilia varias bodegas en paralelo. Sin ids usa las bodegas activas.
func (uc *ReconcileUseCase) ReconcileAll(ctx context.Context, warehouseIDs []int64) ([]*ReconcileReport, error) {
	if len(warehouseIDs) == 0 && uc.deps.Warehouses != nil {
		active, err := uc.deps.Warehouses.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		for _, w := range active {
			warehouseIDs = append(warehouseIDs, w.ID)
		}
	}
	reports := make([]*ReconcileReport, len(warehouseIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, id := range warehouseIDs {
		i, id := i, id
		g.Go(func() error {
			r, err := uc.Reconcile(gctx, id)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
