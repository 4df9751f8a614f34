package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DispatchLineRequest línea de venta a despachar.
type DispatchLineRequest struct {
	SaleLineID     int64           `json:"sale_line_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// DispatchRequest body para POST /api/sales/:sale_id/dispatch.
type DispatchRequest struct {
	WarehouseID int64                 `json:"warehouse_id,omitempty" validate:"omitempty,gt=0"`
	DepositID   int64                 `json:"deposit_id,omitempty" validate:"omitempty,gt=0"`
	Lines       []DispatchLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ConsumptionDTO consumo por lote de una venta.
type ConsumptionDTO struct {
	ID          int64           `json:"id"`
	SaleLineID  int64           `json:"sale_line_id"`
	WarehouseID int64           `json:"warehouse_id"`
	LotID       int64           `json:"lot_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Pool        string          `json:"pool"`
	DepositID   int64           `json:"deposit_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DispatchResponse consumos registrados.
type DispatchResponse struct {
	OperationID  string           `json:"operation_id"`
	SaleID       int64            `json:"sale_id"`
	Consumptions []ConsumptionDTO `json:"consumptions"`
}

// CancelSaleRequest body para POST /api/sales/:sale_id/cancel.
type CancelSaleRequest struct {
	Reason string `json:"reason" validate:"required,max=200"`
}

// CancelSaleResponse resultado de anular una venta.
type CancelSaleResponse struct {
	OperationID string           `json:"operation_id"`
	SaleID      int64            `json:"sale_id"`
	Restored    []ConsumptionDTO `json:"restored"`
}
