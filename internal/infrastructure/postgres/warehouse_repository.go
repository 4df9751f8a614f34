package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// GetByID obtiene una bodega por ID; nil, nil si no existe.
func (r *WarehouseRepo) GetByID(ctx context.Context, id int64) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := pgxscan.Get(ctx, r.q, &w, `
		SELECT id, name, COALESCE(address, '') AS address, active, created_at, updated_at
		FROM bodegas WHERE id = $1`, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("get warehouse", err)
	}
	return &w, nil
}

// ListActive lista bodegas activas por id.
func (r *WarehouseRepo) ListActive(ctx context.Context) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	err := pgxscan.Select(ctx, r.q, &out, `
		SELECT id, name, COALESCE(address, '') AS address, active, created_at, updated_at
		FROM bodegas WHERE active ORDER BY id`)
	if err != nil {
		return nil, wrap("list warehouses", err)
	}
	return out, nil
}
