package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLotConsumption (venta_detalle_lote) enlaza una línea de venta con el lote y la cantidad
// realmente descontada. Es lo que se reproduce para anular la venta.
type SaleLotConsumption struct {
	ID          int64
	SaleID      int64
	SaleLineID  int64
	WarehouseID int64
	LotID       int64
	Quantity    decimal.Decimal
	Pool        StockPool
	// DepositID es el anticipo al que se cargó el consumo de reservado; 0 si no aplica.
	DepositID int64
	CreatedAt time.Time
}
