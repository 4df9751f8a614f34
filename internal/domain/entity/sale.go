package entity

import "time"

// Estados de venta que interesan al motor de inventario (el módulo de ventas es dueño de la cabecera).
const (
	SaleStatusActive    = "ACTIVA"
	SaleStatusCancelled = "ANULADA"
)

// Sale cabecera mínima de una venta tal como la ve el motor de inventario.
type Sale struct {
	ID           int64
	WarehouseID  int64
	ReceivableID *int64
	Status       string
	CancelReason string
	CancelledAt  *time.Time
}

// IsCancelled indica si la venta ya fue anulada.
func (s *Sale) IsCancelled() bool {
	return s.Status == SaleStatusCancelled
}
