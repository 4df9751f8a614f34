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

func dispatchSale(t *testing.T, f *fixture, saleID, depositID int64, n int64) {
	t.Helper()
	f.store.AddSale(saleID, whMain)
	_, err := f.dispatch.Dispatch(context.Background(), appinv.DispatchInput{
		SaleID: saleID, DepositID: depositID, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(n)}},
	})
	require.NoError(t, err)
}

func TestCancelSale_DevuelveConsumosADisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(3)})
	require.NoError(t, err)
	dispatchSale(t, f, 600, 100, 7)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 3, 0)

	res, err := f.anulacion.CancelSale(ctx, 600, "cliente desiste", testUser)
	require.NoError(t, err)
	assert.Len(t, res.Restored, 3)

	// Lo reservado vuelve a disponible; la reserva del anticipo no se recrea.
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertRow(t, whMain, l2, 5, 0)
	sale := f.store.Sale(600)
	require.NotNil(t, sale)
	assert.Equal(t, entity.SaleStatusCancelled, sale.Status)
	assert.Equal(t, "cliente desiste", sale.CancelReason)

	entries, err := f.kardex.ListBySource(ctx, entity.SourceVenta, "600")
	require.NoError(t, err)
	var adjustments int
	for _, e := range entries {
		if e.Kind == entity.MovementAdjustment {
			adjustments++
		}
	}
	assert.Equal(t, 2, adjustments, "un ajuste compensatorio por fila")

	// ReleaseAll posterior no libera lo que la venta consumió.
	out, err := f.reservation.ReleaseAll(ctx, 100, testUser)
	require.NoError(t, err)
	assert.Empty(t, out.Released)
	f.assertReconciled(t)

	_, err = f.anulacion.CancelSale(ctx, 600, "otra vez", testUser)
	assert.ErrorIs(t, err, domain.ErrIllegalState)
}

func TestCancelSale_ConPagosAplicados(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	dispatchSale(t, f, 601, 0, 2)
	f.store.MarkPaid(601)

	_, err := f.anulacion.CancelSale(context.Background(), 601, "x", testUser)
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.assertRow(t, whMain, l1, 3, 0)
	assert.Equal(t, entity.SaleStatusActive, f.store.Sale(601).Status)
}

func TestCancelSale_VentaInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.anulacion.CancelSale(context.Background(), 4040, "x", testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Una venta registrada pero nunca despachada no tiene nada que devolver.
func TestCancelSale_SinConsumos(t *testing.T) {
	f := newFixture(t)
	f.store.AddSale(602, whMain)
	before := len(f.store.Journal())

	_, err := f.anulacion.CancelSale(context.Background(), 602, "x", testUser)
	assert.ErrorIs(t, err, domain.ErrIllegalState)
	assert.Equal(t, entity.SaleStatusActive, f.store.Sale(602).Status)
	assert.Len(t, f.store.Journal(), before)
}
