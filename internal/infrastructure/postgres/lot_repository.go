package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación del puerto LotRepository sobre la tabla lotes.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes.
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

// Create inserta el lote; código repetido en la misma línea de recepción → ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO lotes (presentation_id, code, receipt_line_id, manufactured_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		lot.PresentationID, lot.Code, lot.ReceiptLineID, lot.ManufacturedAt, lot.ExpiresAt, lot.CreatedAt,
	).Scan(&lot.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s en línea de recepción %d", domain.ErrDuplicate, lot.Code, lot.ReceiptLineID)
		}
		return wrap("create lot", err)
	}
	return nil
}

// GetByID obtiene un lote; nil, nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id int64) (*entity.Lot, error) {
	var lot entity.Lot
	err := pgxscan.Get(ctx, r.q, &lot, `
		SELECT id, presentation_id, code, receipt_line_id, manufactured_at, expires_at, created_at
		FROM lotes WHERE id = $1`, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, wrap("get lot", err)
	}
	return &lot, nil
}
