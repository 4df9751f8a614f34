package entity

// StockPool selecciona el campo de StockRow contra el que se planifica o descuenta.
type StockPool string

const (
	PoolAvailable StockPool = "D" // disponible
	PoolReserved  StockPool = "R" // reservado
	PoolCombined  StockPool = "C" // disponible + reservado (solo planificación)
)

// Valid indica si el pool es uno de los conocidos.
func (p StockPool) Valid() bool {
	switch p {
	case PoolAvailable, PoolReserved, PoolCombined:
		return true
	}
	return false
}

func (p StockPool) String() string {
	switch p {
	case PoolAvailable:
		return "available"
	case PoolReserved:
		return "reserved"
	case PoolCombined:
		return "available+reserved"
	}
	return string(p)
}

// ParseStockPool acepta el nombre largo o el código.
func ParseStockPool(s string) (StockPool, bool) {
	switch s {
	case "available", "D", "":
		return PoolAvailable, true
	case "reserved", "R":
		return PoolReserved, true
	case "combined", "available+reserved", "C":
		return PoolCombined, true
	}
	return "", false
}
