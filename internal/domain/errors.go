package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrDuplicate               = errors.New("recurso duplicado")
	ErrUnauthorized            = errors.New("no autorizado")
	ErrForbidden               = errors.New("acceso denegado")
	ErrConflict                = errors.New("conflicto con el estado actual")
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrInsufficientReservation = errors.New("reserva insuficiente")
	ErrBusy                    = errors.New("recurso bloqueado, reintente")
)

// ErrIllegalState es un conflicto de máquina de estados (venta ya anulada, traslado ya confirmado...).
var ErrIllegalState = fmt.Errorf("estado inválido: %w", ErrConflict)

// StockError describe un faltante con el contexto necesario para mostrarlo o registrarlo.
// Kind es ErrInsufficientStock o ErrInsufficientReservation.
type StockError struct {
	Kind           error
	WarehouseID    int64
	LotID          int64
	PresentationID int64
	Pool           string
	Requested      decimal.Decimal
	Available      decimal.Decimal
	// Stale indica que el plan FEFO quedó desactualizado al tomar el bloqueo; la operación completa
	// puede reintentarse.
	Stale bool
}

func (e *StockError) Error() string {
	switch {
	case e.LotID != 0:
		return fmt.Sprintf("%v: bodega %d lote %d (%s) solicitado %s disponible %s",
			e.Kind, e.WarehouseID, e.LotID, e.Pool, e.Requested.String(), e.Available.String())
	case e.PresentationID != 0:
		return fmt.Sprintf("%v: bodega %d presentación %d (%s) solicitado %s disponible %s",
			e.Kind, e.WarehouseID, e.PresentationID, e.Pool, e.Requested.String(), e.Available.String())
	default:
		return fmt.Sprintf("%v: solicitado %s disponible %s", e.Kind, e.Requested.String(), e.Available.String())
	}
}

func (e *StockError) Unwrap() error { return e.Kind }

// IsRetryable indica si la operación completa puede reintentarse (bloqueo agotado o plan obsoleto).
func IsRetryable(err error) bool {
	if errors.Is(err, ErrBusy) {
		return true
	}
	var se *StockError
	return errors.As(err, &se) && se.Stale
}
