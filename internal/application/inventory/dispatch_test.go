package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// Bodega W con L1 (vence 2025-06-01, 5) y L2 (vence 2025-07-01, 5): reservar 7 y despachar 7.
func TestDispatch_EscenarioReservaYDespacho(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(7)})
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 0, 5)
	f.assertRow(t, whMain, l2, 3, 2)

	f.store.AddSale(500, whMain)
	res, err := f.dispatch.Dispatch(ctx, appinv.DispatchInput{
		SaleID: 500, WarehouseID: whMain, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(7)}},
	})
	require.NoError(t, err)

	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, l1, res.Consumptions[0].LotID)
	assert.True(t, res.Consumptions[0].Quantity.Equal(qty(5)))
	assert.Equal(t, entity.PoolReserved, res.Consumptions[0].Pool)
	assert.Equal(t, l2, res.Consumptions[1].LotID)
	assert.True(t, res.Consumptions[1].Quantity.Equal(qty(2)))
	assert.Equal(t, entity.PoolReserved, res.Consumptions[1].Pool)

	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 3, 0)
	f.assertReconciled(t)
}

func TestDispatch_ConAnticipoDescuentaLaLinea(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4)})
	require.NoError(t, err)

	f.store.AddSale(501, whMain)
	res, err := f.dispatch.Dispatch(ctx, appinv.DispatchInput{
		SaleID: 501, DepositID: 100, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(6)}},
	})
	require.NoError(t, err)

	// 4 del reservado del anticipo en L1; el resto sale de disponible (L1 1 y L2 1).
	require.Len(t, res.Consumptions, 3)
	assert.Equal(t, int64(100), res.Consumptions[0].DepositID)
	assert.Equal(t, int64(0), res.Consumptions[1].DepositID)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 4, 0)

	details, err := f.reservation.Details(ctx, 100)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].ReservedQty.IsZero())
	assert.True(t, details[0].RequestedQty.Equal(qty(4)))
	f.assertReconciled(t)
}

// Dos líneas de la misma presentación comparten los lotes sin sobregirar ninguno.
func TestDispatch_LineasCompartenLotes(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 4)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 4)
	l3 := f.receive(t, whMain, presQ, "Q1", "2025-05-01", 2)

	f.store.AddSale(502, whMain)
	res, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: 502, UserID: testUser,
		Lines: []appinv.DispatchLine{
			{SaleLineID: 1, PresentationID: presP, Quantity: qty(3)},
			{SaleLineID: 2, PresentationID: presQ, Quantity: qty(2)},
			{SaleLineID: 3, PresentationID: presP, Quantity: qty(3)},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Consumptions, 4)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 2, 0)
	f.assertRow(t, whMain, l3, 0, 0)
	f.assertReconciled(t)
}

func TestDispatch_FaltanteRevierteTodaLaVenta(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 4)
	l3 := f.receive(t, whMain, presQ, "Q1", "2025-05-01", 2)
	before := len(f.store.Journal())

	f.store.AddSale(503, whMain)
	_, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: 503, UserID: testUser,
		Lines: []appinv.DispatchLine{
			{SaleLineID: 1, PresentationID: presQ, Quantity: qty(2)},
			{SaleLineID: 2, PresentationID: presP, Quantity: qty(5)},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	f.assertRow(t, whMain, l1, 4, 0)
	f.assertRow(t, whMain, l3, 2, 0)
	assert.Len(t, f.store.Journal(), before)

	// La venta sigue sin consumos: anularla no aplica.
	_, err = f.anulacion.CancelSale(context.Background(), 503, "sin despacho", testUser)
	assert.ErrorIs(t, err, domain.ErrIllegalState)
}

func TestDispatch_VentaYaDespachadaOInexistente(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, presP, "L1", "2025-06-01", 10)
	f.store.AddSale(504, whMain)
	in := appinv.DispatchInput{
		SaleID: 504, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(1)}},
	}
	_, err := f.dispatch.Dispatch(context.Background(), in)
	require.NoError(t, err)

	_, err = f.dispatch.Dispatch(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrIllegalState)
	assert.ErrorIs(t, err, domain.ErrConflict)

	in.SaleID = 9999
	_, err = f.dispatch.Dispatch(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatch_EntradaInvalida(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{SaleID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: 1, Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(0)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Un despacho cuyo plan queda obsoleto al bloquear se rehace con lo que realmente hay.
func TestDispatch_PlanObsoletoSeReintenta(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	f.store.AddSale(520, whMain)

	f.store.InterleaveOnLock(1, func(row *entity.StockRow) { row.Available = qty(2) })
	res, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: 520, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(4)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, l1, res.Consumptions[0].LotID)
	assert.True(t, res.Consumptions[0].Quantity.Equal(qty(2)))
	assert.Equal(t, l2, res.Consumptions[1].LotID)
	assert.True(t, res.Consumptions[1].Quantity.Equal(qty(2)))
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 3, 0)
}

// La bodega propia de la venta también debe estar activa.
func TestDispatch_BodegaDeLaVentaInactiva(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	f.store.AddSale(530, whMain)
	f.store.DeactivateWarehouse(whMain)

	_, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: 530, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrIllegalState)
	f.assertRow(t, whMain, l1, 5, 0)
}
