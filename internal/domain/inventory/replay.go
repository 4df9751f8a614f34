package inventory

import (
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RowKey identifica una fila de existencia.
type RowKey struct {
	WarehouseID int64
	LotID       int64
}

// Balance cantidades reconstruidas de una fila.
type Balance struct {
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// Effect devuelve el cambio (available, reserved) que un movimiento produce en su bodega afectada.
func Effect(m *entity.MovementEntry) (available, reserved decimal.Decimal) {
	q := m.Quantity
	switch m.Kind {
	case entity.MovementPurchaseIn, entity.MovementTransferIn, entity.MovementTransferOut, entity.MovementAdjustment:
		return q, decimal.Zero
	case entity.MovementSaleOut:
		if m.Pool == entity.PoolReserved {
			return decimal.Zero, q
		}
		return q, decimal.Zero
	case entity.MovementReservationHold:
		return q.Neg(), q
	case entity.MovementReservationRelease:
		return q, q.Neg()
	}
	return decimal.Zero, decimal.Zero
}

// Replay reconstruye las existencias desde cero aplicando los movimientos en el orden recibido.
// Movimientos sin bodega afectada se ignoran.
func Replay(entries []*entity.MovementEntry) map[RowKey]Balance {
	out := make(map[RowKey]Balance)
	for _, m := range entries {
		wh, ok := m.AffectedWarehouse()
		if !ok {
			continue
		}
		key := RowKey{WarehouseID: wh, LotID: m.LotID}
		b, seen := out[key]
		if !seen {
			b = Balance{Available: decimal.Zero, Reserved: decimal.Zero}
		}
		da, dr := Effect(m)
		b.Available = b.Available.Add(da)
		b.Reserved = b.Reserved.Add(dr)
		out[key] = b
	}
	return out
}
