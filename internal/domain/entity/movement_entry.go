package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind es el tipo de movimiento del kardex; se persiste como código corto.
type MovementKind string

const (
	MovementPurchaseIn         MovementKind = "PI" // purchase_in
	MovementSaleOut            MovementKind = "SO" // sale_out
	MovementReservationHold    MovementKind = "RH" // reservation_hold
	MovementReservationRelease MovementKind = "RR" // reservation_release
	MovementTransferOut        MovementKind = "TO" // transfer_out
	MovementTransferIn         MovementKind = "TI" // transfer_in
	MovementAdjustment         MovementKind = "AJ" // adjustment
)

var movementKindNames = map[MovementKind]string{
	MovementPurchaseIn:         "purchase_in",
	MovementSaleOut:            "sale_out",
	MovementReservationHold:    "reservation_hold",
	MovementReservationRelease: "reservation_release",
	MovementTransferOut:        "transfer_out",
	MovementTransferIn:         "transfer_in",
	MovementAdjustment:         "adjustment",
}

// Valid indica si el código es un tipo conocido.
func (k MovementKind) Valid() bool {
	_, ok := movementKindNames[k]
	return ok
}

// Name devuelve el nombre legible (purchase_in, sale_out, ...).
func (k MovementKind) Name() string {
	if n, ok := movementKindNames[k]; ok {
		return n
	}
	return string(k)
}

// ParseMovementKind acepta el nombre legible o el código.
func ParseMovementKind(s string) (MovementKind, bool) {
	if MovementKind(s).Valid() {
		return MovementKind(s), true
	}
	for k, n := range movementKindNames {
		if n == s {
			return k, true
		}
	}
	return "", false
}

// SourceModule identifica el módulo dueño del registro que causó el movimiento.
type SourceModule string

const (
	SourceVenta         SourceModule = "venta"
	SourceCompra        SourceModule = "compra"
	SourceAnticipo      SourceModule = "anticipo"
	SourceTransferencia SourceModule = "transferencia"
	SourceAjuste        SourceModule = "ajuste"
	SourceRecepcion     SourceModule = "recepcion"
)

// Valid indica si el módulo es uno de los conocidos.
func (m SourceModule) Valid() bool {
	switch m {
	case SourceVenta, SourceCompra, SourceAnticipo, SourceTransferencia, SourceAjuste, SourceRecepcion:
		return true
	}
	return false
}

// MovementEntry es una fila del kardex: append-only, nunca se actualiza ni se borra.
// Quantity es con signo: positivo = el stock aumenta en el lado indicado; Kind desambigua la dirección.
type MovementEntry struct {
	ID                int64
	OperationID       string
	Timestamp         time.Time
	Kind              MovementKind
	OriginWarehouseID *int64
	DestWarehouseID   *int64
	LotID             int64
	Quantity          decimal.Decimal
	Pool              StockPool // solo significativo en sale_out
	SourceModule      SourceModule
	SourceID          string
	Notes             string
	CreatedBy         string
}

// AffectedWarehouse devuelve la bodega cuya existencia cambió con este movimiento.
func (m *MovementEntry) AffectedWarehouse() (int64, bool) {
	var side *int64
	switch m.Kind {
	case MovementPurchaseIn, MovementTransferIn:
		side = m.DestWarehouseID
	case MovementSaleOut, MovementTransferOut, MovementReservationHold, MovementReservationRelease:
		side = m.OriginWarehouseID
	case MovementAdjustment:
		if m.Quantity.IsPositive() {
			side = m.DestWarehouseID
		} else {
			side = m.OriginWarehouseID
		}
	}
	if side == nil {
		return 0, false
	}
	return *side, true
}

// WarehouseRef devuelve un puntero a id, útil al armar los lados origen/destino.
func WarehouseRef(id int64) *int64 {
	return &id
}
