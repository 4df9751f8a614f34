package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRow representa la existencia por lote (existencia_por_lote) de una bodega.
// Available es lo que puede prometerse; Reserved lo apartado por anticipos. Ambos >= 0.
type StockRow struct {
	WarehouseID   int64
	LotID         int64
	Available     decimal.Decimal
	Reserved      decimal.Decimal
	MinThreshold  decimal.Decimal
	LastUpdatedAt time.Time
	// Exists es false cuando la fila aún no se ha creado (sin primer ingreso); se trata como cero.
	Exists bool
}

// ZeroStockRow devuelve la fila implícita de una combinación bodega+lote sin ingresos.
func ZeroStockRow(warehouseID, lotID int64) *StockRow {
	return &StockRow{
		WarehouseID:  warehouseID,
		LotID:        lotID,
		Available:    decimal.Zero,
		Reserved:     decimal.Zero,
		MinThreshold: decimal.Zero,
	}
}

// Total es available + reserved.
func (s *StockRow) Total() decimal.Decimal {
	return s.Available.Add(s.Reserved)
}

// PoolQty devuelve la cantidad del pool indicado.
func (s *StockRow) PoolQty(pool StockPool) decimal.Decimal {
	switch pool {
	case PoolReserved:
		return s.Reserved
	case PoolCombined:
		return s.Total()
	default:
		return s.Available
	}
}

// LotStock es una fila de existencia unida a los datos del lote; es el candidato que ordena FEFO.
type LotStock struct {
	LotID          int64
	PresentationID int64
	WarehouseID    int64
	ExpiresAt      time.Time
	Available      decimal.Decimal
	Reserved       decimal.Decimal
}

// PoolQty devuelve la cantidad del pool indicado.
func (l LotStock) PoolQty(pool StockPool) decimal.Decimal {
	switch pool {
	case PoolReserved:
		return l.Reserved
	case PoolCombined:
		return l.Available.Add(l.Reserved)
	default:
		return l.Available
	}
}
