package entity

import "time"

// Warehouse bodega donde existen filas de existencia por lote. El motor solo lee bodegas;
// su alta y edición pertenecen a otro módulo.
type Warehouse struct {
	ID        int64
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AcceptsMovements indica si la bodega puede recibir o entregar existencias.
// Una bodega inactiva conserva su kardex pero no admite movimientos nuevos.
func (w *Warehouse) AcceptsMovements() bool {
	return w != nil && w.Active
}
