package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

func TestGenerateKardexPDF(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &inventory.KardexReport{
		Title:       "Kardex bodega 1",
		WarehouseID: 1,
		GeneratedAt: now,
		Entries: []*entity.MovementEntry{
			{ID: 1, Timestamp: now, Kind: entity.MovementPurchaseIn, DestWarehouseID: entity.WarehouseRef(1),
				LotID: 10, Quantity: decimal.NewFromInt(50), SourceModule: entity.SourceRecepcion, SourceID: "9"},
			{ID: 2, Timestamp: now, Kind: entity.MovementSaleOut, OriginWarehouseID: entity.WarehouseRef(1),
				LotID: 10, Quantity: decimal.NewFromInt(-5), Pool: entity.PoolAvailable,
				SourceModule: entity.SourceVenta, SourceID: "7", CreatedBy: "u1"},
		},
	}

	out, err := NewMarotoKardexGenerator().GenerateKardexPDF(context.Background(), report)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestFiltersLine(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := filtersLine(&inventory.KardexReport{LotID: 3, From: &from})
	assert.Equal(t, "Bodega: todas   |   Lote: 3   |   Periodo: 01/01/2026 a hoy", got)
}
