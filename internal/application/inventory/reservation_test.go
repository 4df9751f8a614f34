package inventory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	appinv "github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Reserve
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_PlanFEFOYMueveADisponible(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)

	res, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(7),
	})
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, l1, res.Lines[0].LotID)
	assert.True(t, res.Lines[0].Quantity.Equal(qty(5)))
	assert.Equal(t, l2, res.Lines[1].LotID)
	assert.True(t, res.Lines[1].Quantity.Equal(qty(2)))
	assert.True(t, res.Shortfall.IsZero())

	f.assertRow(t, whMain, l1, 0, 5)
	f.assertRow(t, whMain, l2, 3, 2)
	assert.True(t, res.Detail.RequestedQty.Equal(qty(7)))
	assert.True(t, res.Detail.ReservedQty.Equal(qty(7)))
	f.assertReconciled(t)
}

func TestReserve_SinCoberturaNoConfirmaNada(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	before := len(f.store.Journal())

	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(8),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, presP, se.PresentationID)
	assert.True(t, se.Available.Equal(qty(5)))
	assert.False(t, se.Stale)

	f.assertRow(t, whMain, l1, 5, 0)
	assert.Len(t, f.store.Journal(), before, "no debe escribirse kardex")
	_, err = f.reservation.Details(context.Background(), 100)
	assert.ErrorIs(t, err, domain.ErrNotFound, "la línea del anticipo no debe quedar creada")
}

func TestReserve_ConFaltantePermitido(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)

	res, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(8), AllowShortfall: true,
	})
	require.NoError(t, err)

	assert.True(t, res.Moved.Equal(qty(5)))
	assert.True(t, res.Shortfall.Equal(qty(3)))
	assert.True(t, res.Detail.RequestedQty.Equal(qty(8)))
	assert.True(t, res.Detail.ReservedQty.Equal(qty(5)))
	assert.True(t, res.Detail.Pending().Equal(qty(3)))
	f.assertRow(t, whMain, l1, 0, 5)
}

func TestReserve_BodegaInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 1, WarehouseID: 99, PresentationID: presP, Quantity: qty(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_ReintentaSiHayBloqueo(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)

	f.store.InjectBusy(2)
	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(2),
	})
	require.NoError(t, err, "dos bloqueos caben en tres intentos")
	f.assertRow(t, whMain, l1, 3, 2)

	f.store.InjectBusy(3)
	_, err = f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(2),
	})
	assert.ErrorIs(t, err, domain.ErrBusy)
	f.assertRow(t, whMain, l1, 3, 2)
}

// Otra transacción vacía L1 entre el plan y el bloqueo: el plan se descarta y se rehace con L2.
func TestReserve_PlanObsoletoSeReintenta(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	f.store.LockTrace()

	f.store.InterleaveOnLock(1, func(row *entity.StockRow) { row.Available = qty(1) })
	res, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4),
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, l1, res.Lines[0].LotID)
	assert.True(t, res.Lines[0].Quantity.Equal(qty(1)))
	assert.Equal(t, l2, res.Lines[1].LotID)
	assert.True(t, res.Lines[1].Quantity.Equal(qty(3)))
	f.assertRow(t, whMain, l1, 0, 1)
	f.assertRow(t, whMain, l2, 2, 3)

	// El primer intento solo alcanzó a bloquear L1.
	trace := f.store.LockTrace()
	require.NotEmpty(t, trace)
	assert.Equal(t, l1, trace[0].LotID)
}

// Si el plan queda obsoleto en todos los intentos, el error sale marcado como Stale y nada se confirma.
func TestReserve_PlanObsoletoAgotaLosIntentos(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	l3 := f.receive(t, whMain, presP, "L3", "2025-08-01", 5)
	before := len(f.store.Journal())

	f.store.InterleaveOnLock(3, func(row *entity.StockRow) { row.Available = qty(0) })
	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Stale)
	assert.Equal(t, l3, se.LotID, "el tercer intento planificó sobre L3")

	assert.Len(t, f.store.Journal(), before)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whMain, l2, 0, 0)
	f.assertRow(t, whMain, l3, 0, 0)
}

// Muchos anticipos compiten por el mismo lote: nunca se reserva más de lo disponible.
func TestReserve_ConcurrenteSinSobreventa(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 10)

	var ok, short int64
	var g errgroup.Group
	for i := int64(1); i <= 25; i++ {
		i := i
		g.Go(func() error {
			_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
				DepositID: 500 + i, WarehouseID: whMain, PresentationID: presP, Quantity: qty(1),
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt64(&short, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(10), ok)
	assert.Equal(t, int64(15), short)
	f.assertRow(t, whMain, l1, 0, 10)
	f.assertReconciled(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Release / ReleaseAll
// ──────────────────────────────────────────────────────────────────────────────

func TestRelease_SegundaVezFallaSinDobleCredito(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4),
	})
	require.NoError(t, err)

	in := appinv.ReleaseInput{DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4)}
	res, err := f.reservation.Release(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Detail.ReservedQty.IsZero())
	assert.True(t, res.Detail.RequestedQty.Equal(qty(4)))
	f.assertRow(t, whMain, l1, 5, 0)

	_, err = f.reservation.Release(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInsufficientReservation)
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertReconciled(t)
}

func TestRelease_ExcedeLoReservado(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	_, err := f.reservation.Reserve(context.Background(), appinv.ReserveInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(2),
	})
	require.NoError(t, err)

	_, err = f.reservation.Release(context.Background(), appinv.ReleaseInput{
		DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(3),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientReservation)

	_, err = f.reservation.Release(context.Background(), appinv.ReleaseInput{
		DepositID: 999, WarehouseID: whMain, PresentationID: presP, Quantity: qty(1),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientReservation, "anticipo desconocido")
}

// Liberar un anticipo no toca lo reservado por otro anticipo en el mismo lote.
func TestRelease_SoloLoDelAnticipo(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(5)})
	require.NoError(t, err)
	_, err = f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 2, WarehouseID: whMain, PresentationID: presP, Quantity: qty(3)})
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 0, 5)
	f.assertRow(t, whMain, l2, 2, 3)

	res, err := f.reservation.Release(ctx, appinv.ReleaseInput{DepositID: 2, WarehouseID: whMain, PresentationID: presP, Quantity: qty(2)})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, l2, res.Lines[0].LotID)
	f.assertRow(t, whMain, l1, 0, 5)
	f.assertRow(t, whMain, l2, 4, 1)

	out, err := f.reservation.ReleaseAll(ctx, 1, testUser)
	require.NoError(t, err)
	assert.Len(t, out.Released, 1)
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertRow(t, whMain, l2, 4, 1)
	f.assertReconciled(t)
}

func TestReleaseAll_DescuentaConsumosDelAnticipo(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	l2 := f.receive(t, whMain, presP, "L2", "2025-07-01", 5)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 100, WarehouseID: whMain, PresentationID: presP, Quantity: qty(7)})
	require.NoError(t, err)

	f.store.AddSale(500, whMain)
	_, err = f.dispatch.Dispatch(ctx, appinv.DispatchInput{
		SaleID: 500, DepositID: 100, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(3)}},
	})
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 0, 2)

	res, err := f.reservation.ReleaseAll(ctx, 100, testUser)
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 2, 0)
	f.assertRow(t, whMain, l2, 5, 0)

	require.Len(t, res.Details, 1)
	assert.True(t, res.Details[0].ReservedQty.IsZero())
	assert.True(t, res.Details[0].RequestedQty.Equal(qty(7)), "la demanda se conserva")

	// Segunda vez no libera nada más.
	again, err := f.reservation.ReleaseAll(ctx, 100, testUser)
	require.NoError(t, err)
	assert.Empty(t, again.Released)
	f.assertRow(t, whMain, l1, 2, 0)
	f.assertReconciled(t)
}

func TestReleaseAll_AnticipoSinLineas(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservation.ReleaseAll(context.Background(), 42, testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Una venta sin anticipo que toma reservado lo imputa al anticipo que lo retenía; liberar ese
// anticipo después no toca la reserva de otro sobre la misma fila.
func TestReleaseAll_NoLiberaReservaDeOtroAnticipo(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 1, WarehouseID: whMain, PresentationID: presP, Quantity: qty(5)})
	require.NoError(t, err)

	f.store.AddSale(500, whMain)
	res, err := f.dispatch.Dispatch(ctx, appinv.DispatchInput{
		SaleID: 500, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(5)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Consumptions, 1)
	assert.Equal(t, entity.PoolReserved, res.Consumptions[0].Pool)
	assert.Equal(t, int64(1), res.Consumptions[0].DepositID, "el consumo se imputa al anticipo que retenía el lote")

	details, err := f.reservation.Details(ctx, 1)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].ReservedQty.IsZero())

	_, err = f.adjustments.Ingress(ctx, appinv.AdjustmentInput{WarehouseID: whMain, LotID: l1, Quantity: qty(5), Reason: "conteo físico"})
	require.NoError(t, err)
	_, err = f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 2, WarehouseID: whMain, PresentationID: presP, Quantity: qty(5)})
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 0, 5)

	out, err := f.reservation.ReleaseAll(ctx, 1, testUser)
	require.NoError(t, err)
	assert.Empty(t, out.Released)
	f.assertRow(t, whMain, l1, 0, 5)

	_, err = f.reservation.Release(ctx, appinv.ReleaseInput{DepositID: 2, WarehouseID: whMain, PresentationID: presP, Quantity: qty(5), UserID: testUser})
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertReconciled(t)
}

// Con dos anticipos sobre el mismo lote, el consumo sin anticipo se reparte del más antiguo al más nuevo.
func TestDispatch_SinAnticipoImputaPorAntiguedad(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 10)
	ctx := context.Background()

	_, err := f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 7, WarehouseID: whMain, PresentationID: presP, Quantity: qty(3)})
	require.NoError(t, err)
	_, err = f.reservation.Reserve(ctx, appinv.ReserveInput{DepositID: 3, WarehouseID: whMain, PresentationID: presP, Quantity: qty(4)})
	require.NoError(t, err)

	f.store.AddSale(510, whMain)
	res, err := f.dispatch.Dispatch(ctx, appinv.DispatchInput{
		SaleID: 510, UserID: testUser,
		Lines: []appinv.DispatchLine{{SaleLineID: 1, PresentationID: presP, Quantity: qty(5)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, int64(7), res.Consumptions[0].DepositID)
	assert.True(t, res.Consumptions[0].Quantity.Equal(qty(3)))
	assert.Equal(t, int64(3), res.Consumptions[1].DepositID)
	assert.True(t, res.Consumptions[1].Quantity.Equal(qty(2)))
	f.assertRow(t, whMain, l1, 3, 2)

	out, err := f.reservation.ReleaseAll(ctx, 3, testUser)
	require.NoError(t, err)
	assert.True(t, out.Released[dinv.RowKey{WarehouseID: whMain, LotID: l1}].Equal(qty(2)))
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertReconciled(t)
}
