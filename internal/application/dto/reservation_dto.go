package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReserveRequest body para POST /api/reservations.
// AllowShortfall nil toma el valor configurado (LEDGER_ALLOW_SHORTFALL).
type ReserveRequest struct {
	DepositID      int64           `json:"deposit_id" validate:"required,gt=0"`
	WarehouseID    int64           `json:"warehouse_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
	AllowShortfall *bool           `json:"allow_shortfall,omitempty"`
}

// ReleaseRequest body para POST /api/reservations/release.
type ReleaseRequest struct {
	DepositID      int64           `json:"deposit_id" validate:"required,gt=0"`
	WarehouseID    int64           `json:"warehouse_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// LotQtyDTO cantidad movida en un lote.
type LotQtyDTO struct {
	LotID    int64           `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReservationDetailDTO línea de anticipo.
type ReservationDetailDTO struct {
	DepositID      int64           `json:"deposit_id"`
	PresentationID int64           `json:"presentation_id"`
	WarehouseID    int64           `json:"warehouse_id"`
	RequestedQty   decimal.Decimal `json:"requested_qty"`
	ReservedQty    decimal.Decimal `json:"reserved_qty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ReservationResponse resultado de reservar o liberar.
type ReservationResponse struct {
	OperationID string                `json:"operation_id"`
	Lines       []LotQtyDTO           `json:"lines"`
	Moved       decimal.Decimal       `json:"moved"`
	Shortfall   decimal.Decimal       `json:"shortfall"`
	Detail      *ReservationDetailDTO `json:"detail,omitempty"`
}

// ReleaseAllResponse resultado de liberar un anticipo completo.
type ReleaseAllResponse struct {
	OperationID string                 `json:"operation_id"`
	Released    []ReleasedRowDTO       `json:"released"`
	Details     []ReservationDetailDTO `json:"details"`
}

// ReleasedRowDTO cantidad liberada en una fila.
type ReleasedRowDTO struct {
	WarehouseID int64           `json:"warehouse_id"`
	LotID       int64           `json:"lot_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}
