package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/memory"
)

func transferInput(lotID int64, n int64) appinv.CreateTransferInput {
	return appinv.CreateTransferInput{
		OriginWarehouseID: whMain,
		DestWarehouseID:   whBranch,
		Lines:             []entity.TransferLine{{LotID: lotID, Quantity: qty(n)}},
		UserID:            testUser,
	}
}

// Crear, confirmar ambas fases y anular desde completado restaura ambas bodegas exactamente.
func TestTransfer_IdaYVueltaRestauraExistencias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 15)

	tr, err := f.transfers.Create(ctx, transferInput(l1, 10))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, tr.State)
	f.assertRow(t, whMain, l1, 15, 0)

	tr, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, tr.State)
	f.assertRow(t, whMain, l1, 5, 0)
	f.assertRow(t, whBranch, l1, 0, 0)

	tr, err = f.transfers.ConfirmIngreso(ctx, tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, tr.State)
	f.assertRow(t, whBranch, l1, 10, 0)

	tr, err = f.transfers.Cancel(ctx, tr.ID, "devolución", testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, tr.State)
	f.assertRow(t, whMain, l1, 15, 0)
	f.assertRow(t, whBranch, l1, 0, 0)
	f.assertReconciled(t)

	_, err = f.transfers.Cancel(ctx, tr.ID, "otra vez", testUser)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTransfer_TransicionesInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 5)

	tr, err := f.transfers.Create(ctx, transferInput(l1, 2))
	require.NoError(t, err)

	_, err = f.transfers.ConfirmIngreso(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrConflict, "ingreso antes de salida")

	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	require.NoError(t, err)
	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrConflict, "salida repetida")

	_, err = f.transfers.ConfirmSalida(ctx, 12345, testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_SalidaSinStockNoCambiaEstado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 3)

	tr, err := f.transfers.Create(ctx, transferInput(l1, 4))
	require.NoError(t, err)

	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.State)
	f.assertRow(t, whMain, l1, 3, 0)
}

func TestTransfer_AnularEnTransitoAcreditaOrigen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 8)

	tr, err := f.transfers.Create(ctx, transferInput(l1, 8))
	require.NoError(t, err)
	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 0, 0)

	_, err = f.transfers.Cancel(ctx, tr.ID, "camión varado", testUser)
	require.NoError(t, err)
	f.assertRow(t, whMain, l1, 8, 0)
	f.assertReconciled(t)
}

// Si el destino ya consumió lo trasladado, anular desde completado falla completo.
func TestTransfer_AnularCompletadoConDestinoConsumido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 10)

	tr, err := f.transfers.TransferNow(ctx, transferInput(l1, 10))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, tr.State)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whBranch, l1, 10, 0)

	_, err = f.adjustments.Egress(ctx, appinv.AdjustmentInput{WarehouseID: whBranch, LotID: l1, Quantity: qty(3), Reason: "merma"})
	require.NoError(t, err)

	_, err = f.transfers.Cancel(ctx, tr.ID, "error", testUser)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, got.State)
	f.assertRow(t, whMain, l1, 0, 0)
	f.assertRow(t, whBranch, l1, 7, 0)
	f.assertReconciled(t)
}

func TestTransfer_ValidacionesDeCreacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 10)

	in := transferInput(l1, 1)
	in.DestWarehouseID = whMain
	_, err := f.transfers.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "misma bodega")

	in = transferInput(l1, 1)
	in.DestWarehouseID = 99
	_, err = f.transfers.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound, "bodega destino inexistente")

	_, err = f.transfers.Create(ctx, transferInput(4242, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound, "lote inexistente")

	in = transferInput(l1, 2)
	in.Lines = append(in.Lines, entity.TransferLine{LotID: l1, Quantity: qty(3)})
	tr, err := f.transfers.Create(ctx, in)
	require.NoError(t, err)
	require.Len(t, tr.Lines, 1, "líneas del mismo lote se agrupan")
	assert.True(t, tr.Lines[0].Quantity.Equal(qty(5)))
}

// El traslado inmediato bloquea origen y destino en una sola pasada por (lote, bodega),
// aunque el origen tenga el id de bodega mayor.
func TestTransferNow_BloqueaOrigenYDestinoEnOrden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whBranch, presP, "L1", "2025-06-01", 6)
	f.store.LockTrace()

	_, err := f.transfers.TransferNow(ctx, appinv.CreateTransferInput{
		OriginWarehouseID: whBranch,
		DestWarehouseID:   whMain,
		Lines:             []entity.TransferLine{{LotID: l1, Quantity: qty(4)}},
		UserID:            testUser,
	})
	require.NoError(t, err)

	trace := f.store.LockTrace()
	require.GreaterOrEqual(t, len(trace), 2)
	assert.Equal(t, memory.LockEvent{WarehouseID: whMain, LotID: l1}, trace[0])
	assert.Equal(t, memory.LockEvent{WarehouseID: whBranch, LotID: l1}, trace[1])
	f.assertRow(t, whBranch, l1, 2, 0)
	f.assertRow(t, whMain, l1, 4, 0)
	f.assertReconciled(t)
}

// Confirmar una fase exige que la bodega que se mueve siga activa; anular sigue permitido.
func TestTransfer_ConfirmarConBodegaInactiva(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.receive(t, whMain, presP, "L1", "2025-06-01", 10)

	tr, err := f.transfers.Create(ctx, transferInput(l1, 4))
	require.NoError(t, err)

	f.store.DeactivateWarehouse(whMain)
	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrIllegalState, "origen inactivo")
	f.assertRow(t, whMain, l1, 10, 0)

	f.store.AddWarehouse(whMain, "Principal")
	_, err = f.transfers.ConfirmSalida(ctx, tr.ID, testUser)
	require.NoError(t, err)

	f.store.DeactivateWarehouse(whBranch)
	_, err = f.transfers.ConfirmIngreso(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrIllegalState, "destino inactivo")
	f.assertRow(t, whBranch, l1, 0, 0)

	got, err := f.transfers.Cancel(ctx, tr.ID, "destino cerrado", testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, got.State)
	f.assertRow(t, whMain, l1, 10, 0)
	f.assertReconciled(t)
}
