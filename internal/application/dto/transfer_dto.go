package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferLineDTO línea de traslado.
type TransferLineDTO struct {
	LotID    int64           `json:"lot_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateTransferRequest body para POST /api/transfers. Immediate ejecuta ambas fases de una vez.
type CreateTransferRequest struct {
	OriginWarehouseID int64             `json:"origin_warehouse_id" validate:"required,gt=0"`
	DestWarehouseID   int64             `json:"dest_warehouse_id" validate:"required,gt=0,nefield=OriginWarehouseID"`
	Lines             []TransferLineDTO `json:"lines" validate:"required,min=1,dive"`
	Notes             string            `json:"notes,omitempty" validate:"max=500"`
	Immediate         bool              `json:"immediate,omitempty"`
}

// CancelTransferRequest body para POST /api/transfers/:id/cancel.
type CancelTransferRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

// TransferResponse traslado.
type TransferResponse struct {
	ID                int64             `json:"id"`
	OriginWarehouseID int64             `json:"origin_warehouse_id"`
	DestWarehouseID   int64             `json:"dest_warehouse_id"`
	State             string            `json:"state"`
	Lines             []TransferLineDTO `json:"lines"`
	Notes             string            `json:"notes,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	CreatedBy         string            `json:"created_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
