package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// Delta cambio con signo sobre una fila de existencia.
// MustExist exige que la fila ya exista (egresos); si es false se crea en cero (primer ingreso).
type Delta struct {
	WarehouseID int64
	LotID       int64
	Available   decimal.Decimal
	Reserved    decimal.Decimal
	MustExist   bool
}

// applyDelta bloquea la fila, valida no-negatividad, la guarda y agrega el movimiento al kardex.
// Debe llamarse dentro de TxRunner.Run: fila y kardex se confirman o revierten juntos.
func applyDelta(ctx context.Context, repos TxRepos, now time.Time, d Delta, entry *entity.MovementEntry) (*entity.StockRow, error) {
	row, err := lockRow(ctx, repos, d.WarehouseID, d.LotID, !d.MustExist)
	if err != nil {
		return nil, err
	}
	newAvailable := row.Available.Add(d.Available)
	newReserved := row.Reserved.Add(d.Reserved)
	if newAvailable.IsNegative() {
		return nil, &domain.StockError{
			Kind:        domain.ErrInsufficientStock,
			WarehouseID: d.WarehouseID,
			LotID:       d.LotID,
			Pool:        entity.PoolAvailable.String(),
			Requested:   d.Available.Neg(),
			Available:   row.Available,
		}
	}
	if newReserved.IsNegative() {
		return nil, &domain.StockError{
			Kind:        domain.ErrInsufficientStock,
			WarehouseID: d.WarehouseID,
			LotID:       d.LotID,
			Pool:        entity.PoolReserved.String(),
			Requested:   d.Reserved.Neg(),
			Available:   row.Reserved,
		}
	}
	row.Available = newAvailable
	row.Reserved = newReserved
	row.LastUpdatedAt = now
	if err := repos.Stock.Save(ctx, row); err != nil {
		return nil, err
	}
	row.Exists = true

	entry.LotID = d.LotID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if err := repos.Journal.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("kardex: %w", err)
	}
	return row, nil
}

// lockRow bloquea una fila; con create=true la crea en cero si no existe.
func lockRow(ctx context.Context, repos TxRepos, warehouseID, lotID int64, create bool) (*entity.StockRow, error) {
	if create {
		return repos.Stock.LockOrCreate(ctx, warehouseID, lotID)
	}
	row, err := repos.Stock.GetForUpdate(ctx, warehouseID, lotID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%w: existencia bodega %d lote %d", domain.ErrNotFound, warehouseID, lotID)
	}
	return row, nil
}

// lockRows bloquea las filas en orden (lote, bodega) ascendente para evitar interbloqueos.
// Las claves en create se crean en cero si faltan; las demás deben existir.
func lockRows(ctx context.Context, repos TxRepos, keys []dinv.RowKey, create map[dinv.RowKey]bool) (map[dinv.RowKey]*entity.StockRow, error) {
	uniq := make([]dinv.RowKey, 0, len(keys))
	seen := make(map[dinv.RowKey]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sortKeys(uniq)
	rows := make(map[dinv.RowKey]*entity.StockRow, len(uniq))
	for _, k := range uniq {
		row, err := lockRow(ctx, repos, k.WarehouseID, k.LotID, create[k])
		if err != nil {
			return nil, err
		}
		rows[k] = row
	}
	return rows, nil
}

func newOperationID() string {
	return uuid.NewString()
}

// LedgerUseCase expone lectura y ajuste directo de la existencia por lote.
type LedgerUseCase struct {
	deps Deps
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(deps Deps) *LedgerUseCase {
	return &LedgerUseCase{deps: deps.withDefaults()}
}

// Get devuelve la fila; si no existe devuelve una fila en cero.
func (uc *LedgerUseCase) Get(ctx context.Context, warehouseID, lotID int64) (*entity.StockRow, error) {
	if warehouseID <= 0 || lotID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var row *entity.StockRow
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		row, err = repos.Stock.Get(ctx, warehouseID, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = entity.ZeroStockRow(warehouseID, lotID)
	}
	return row, nil
}

// ApplyDelta aplica un delta y registra el movimiento en una sola transacción, con reintento si hay bloqueo.
func (uc *LedgerUseCase) ApplyDelta(ctx context.Context, d Delta, entry *entity.MovementEntry) (*entity.StockRow, error) {
	if d.WarehouseID <= 0 || d.LotID <= 0 || entry == nil || !entry.Kind.Valid() ||
		!domain.FitsScale(d.Available) || !domain.FitsScale(d.Reserved) {
		return nil, domain.ErrInvalidInput
	}
	if entry.OperationID == "" {
		entry.OperationID = newOperationID()
	}
	var row *entity.StockRow
	err := uc.deps.Retry.Do(ctx, uc.deps.Logger, "ledger.apply_delta", func(ctx context.Context) error {
		return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			e := *entry
			row, err = applyDelta(ctx, repos, uc.deps.Clock(), d, &e)
			if err == nil {
				*entry = e
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// LowStockItem fila por debajo de su mínimo con la cantidad sugerida para reponer.
type LowStockItem struct {
	WarehouseID  int64
	LotID        int64
	Available    decimal.Decimal
	MinThreshold decimal.Decimal
	Missing      decimal.Decimal
}

// ListLowStock lista filas con available < mínimo, ordenadas por faltante descendente.
func (uc *LedgerUseCase) ListLowStock(ctx context.Context, warehouseID int64) ([]LowStockItem, error) {
	var rows []*entity.StockRow
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		rows, err = repos.Stock.ListBelowMinimum(ctx, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, LowStockItem{
			WarehouseID:  r.WarehouseID,
			LotID:        r.LotID,
			Available:    r.Available,
			MinThreshold: r.MinThreshold,
			Missing:      r.MinThreshold.Sub(r.Available),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Missing.GreaterThan(items[j].Missing)
	})
	return items, nil
}

// SetMinThreshold fija el mínimo de una fila existente.
func (uc *LedgerUseCase) SetMinThreshold(ctx context.Context, warehouseID, lotID int64, threshold decimal.Decimal) error {
	if warehouseID <= 0 || lotID <= 0 || threshold.IsNegative() || !domain.FitsScale(threshold) {
		return domain.ErrInvalidInput
	}
	return uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		row, err := repos.Stock.GetForUpdate(ctx, warehouseID, lotID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%w: existencia bodega %d lote %d", domain.ErrNotFound, warehouseID, lotID)
		}
		return repos.Stock.SetMinThreshold(ctx, warehouseID, lotID, threshold)
	})
}

