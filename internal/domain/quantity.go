package domain

import "github.com/shopspring/decimal"

// QuantityScale decimales que admiten las columnas de cantidad (NUMERIC(18,4)).
const QuantityScale = 4

// ValidQuantity cantidad positiva representable sin redondeo.
func ValidQuantity(q decimal.Decimal) bool {
	return q.IsPositive() && FitsScale(q)
}

// FitsScale indica si q no tiene más de QuantityScale decimales.
func FitsScale(q decimal.Decimal) bool {
	return q.Truncate(QuantityScale).Equal(q)
}
