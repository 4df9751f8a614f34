package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationDetail es la línea de un anticipo: (depósito, presentación, bodega).
// Invariante: RequestedQty >= ReservedQty >= 0. Nunca se borra, aun liberada por completo.
type ReservationDetail struct {
	DepositID      int64
	PresentationID int64
	WarehouseID    int64
	RequestedQty   decimal.Decimal
	ReservedQty    decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Pending es la demanda registrada que aún no tiene stock reservado.
func (d *ReservationDetail) Pending() decimal.Decimal {
	return d.RequestedQty.Sub(d.ReservedQty)
}
