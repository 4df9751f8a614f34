package entity

import "time"

// Lot es un lote trazable de una presentación de producto. Inmutable una vez creado; nunca se borra.
type Lot struct {
	ID             int64
	PresentationID int64
	Code           string // único por línea de recepción
	ReceiptLineID  int64
	ManufacturedAt *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
