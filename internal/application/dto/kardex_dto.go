package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// KardexQuery filtros de GET /api/kardex y /api/kardex/pdf.
type KardexQuery struct {
	WarehouseID  int64  `query:"warehouse_id" validate:"omitempty,gt=0"`
	LotID        int64  `query:"lot_id" validate:"omitempty,gt=0"`
	Kind         string `query:"kind"`
	SourceModule string `query:"source_module" validate:"omitempty,oneof=venta compra anticipo transferencia ajuste recepcion"`
	From         string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	PageRequest
}

// MovementDTO fila del kardex.
type MovementDTO struct {
	ID                int64           `json:"id"`
	OperationID       string          `json:"operation_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Kind              string          `json:"kind"`
	OriginWarehouseID *int64          `json:"origin_warehouse_id,omitempty"`
	DestWarehouseID   *int64          `json:"dest_warehouse_id,omitempty"`
	LotID             int64           `json:"lot_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	Pool              string          `json:"pool,omitempty"`
	SourceModule      string          `json:"source_module"`
	SourceID          string          `json:"source_id"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
}

// KardexResponse página del kardex.
type KardexResponse struct {
	Items []MovementDTO `json:"items"`
	Page  PageResponse  `json:"page"`
}
