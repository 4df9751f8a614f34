package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PlanLine cantidad a tomar de un lote.
type PlanLine struct {
	LotID     int64
	Quantity  decimal.Decimal
	ExpiresAt string // YYYY-MM-DD, informativo
}

// Plan resultado de la asignación FEFO. Covered + Shortfall = Requested.
type Plan struct {
	Pool      entity.StockPool
	Requested decimal.Decimal
	Covered   decimal.Decimal
	Shortfall decimal.Decimal
	Lines     []PlanLine
}

// Complete indica si el plan cubre toda la cantidad solicitada.
func (p Plan) Complete() bool {
	return p.Shortfall.IsZero()
}

// SortFEFO ordena candidatos por vencimiento ascendente y, a igual vencimiento, por id de lote ascendente.
func SortFEFO(candidates []entity.LotStock) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		return a.LotID < b.LotID
	})
}

// PlanFEFO toma de forma voraz min(restante, cantidad del lote) de los lotes en orden FEFO hasta agotar
// la cantidad o los lotes. Devuelve un plan parcial si no alcanza; el llamador decide si lo acepta.
// No modifica candidates.
func PlanFEFO(candidates []entity.LotStock, quantity decimal.Decimal, pool entity.StockPool) (Plan, error) {
	if !quantity.IsPositive() || !pool.Valid() {
		return Plan{}, domain.ErrInvalidInput
	}
	ranked := make([]entity.LotStock, 0, len(candidates))
	for _, c := range candidates {
		if c.PoolQty(pool).IsPositive() {
			ranked = append(ranked, c)
		}
	}
	SortFEFO(ranked)

	plan := Plan{Pool: pool, Requested: quantity, Covered: decimal.Zero}
	remaining := quantity
	for _, c := range ranked {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.PoolQty(pool))
		plan.Lines = append(plan.Lines, PlanLine{
			LotID:     c.LotID,
			Quantity:  take,
			ExpiresAt: c.ExpiresAt.Format("2006-01-02"),
		})
		plan.Covered = plan.Covered.Add(take)
		remaining = remaining.Sub(take)
	}
	plan.Shortfall = remaining
	return plan, nil
}
