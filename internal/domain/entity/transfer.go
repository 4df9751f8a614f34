package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState estado del traslado entre bodegas; se persiste como código de una letra.
type TransferState string

const (
	TransferPending   TransferState = "P"
	TransferInTransit TransferState = "T"
	TransferCompleted TransferState = "C"
	TransferCancelled TransferState = "X"
)

// Name devuelve el nombre legible del estado.
func (s TransferState) Name() string {
	switch s {
	case TransferPending:
		return "pending"
	case TransferInTransit:
		return "in_transit"
	case TransferCompleted:
		return "completed"
	case TransferCancelled:
		return "cancelled"
	}
	return string(s)
}

// Transfer es un traslado de lotes entre dos bodegas distintas. Las líneas se fijan al crearlo.
type Transfer struct {
	ID                int64
	OriginWarehouseID int64
	DestWarehouseID   int64
	State             TransferState
	Lines             []TransferLine
	Notes             string
	CancelReason      string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TransferLine cantidad de un lote dentro del traslado.
type TransferLine struct {
	LotID    int64
	Quantity decimal.Decimal
}
