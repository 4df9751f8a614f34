package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	whMain   int64 = 1
	whBranch int64 = 2
	presP    int64 = 77
	presQ    int64 = 78
	testUser       = "tester"
)

type fixture struct {
	store       *memory.Store
	ledger      *appinv.LedgerUseCase
	allocator   *appinv.AllocatorUseCase
	receipts    *appinv.ReceiptUseCase
	reservation *appinv.ReservationUseCase
	dispatch    *appinv.DispatchUseCase
	transfers   *appinv.TransferUseCase
	adjustments *appinv.AdjustmentUseCase
	anulacion   *appinv.AnulacionUseCase
	reconcile   *appinv.ReconcileUseCase
	kardex      *appinv.KardexUseCase
	receiptSeq  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddWarehouse(whMain, "Principal")
	store.AddWarehouse(whBranch, "Sucursal")
	deps := appinv.Deps{
		TxRunner:   store,
		Warehouses: store.Warehouses(),
		Retry:      appinv.RetryPolicy{MaxAttempts: 3},
		Logger:     logger.Nop(),
		Clock:      time.Now,
	}
	return &fixture{
		store:       store,
		ledger:      appinv.NewLedgerUseCase(deps),
		allocator:   appinv.NewAllocatorUseCase(deps),
		receipts:    appinv.NewReceiptUseCase(deps),
		reservation: appinv.NewReservationUseCase(deps),
		dispatch:    appinv.NewDispatchUseCase(deps),
		transfers:   appinv.NewTransferUseCase(deps),
		adjustments: appinv.NewAdjustmentUseCase(deps),
		anulacion:   appinv.NewAnulacionUseCase(deps),
		reconcile:   appinv.NewReconcileUseCase(deps, 2),
		kardex:      appinv.NewKardexUseCase(deps, nil),
	}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// receive registra un lote con stock inicial y devuelve su id.
func (f *fixture) receive(t *testing.T, warehouseID, presentationID int64, code, expires string, n int64) int64 {
	t.Helper()
	f.receiptSeq++
	res, err := f.receipts.Receive(context.Background(), appinv.ReceiptInput{
		ReceiptID:      1000 + f.receiptSeq,
		ReceiptLineID:  f.receiptSeq,
		WarehouseID:    warehouseID,
		PresentationID: presentationID,
		LotCode:        code,
		ExpiresAt:      date(expires),
		Quantity:       qty(n),
		UserID:         testUser,
	})
	require.NoError(t, err, "la recepción debe registrarse")
	return res.Lot.ID
}

// assertRow verifica disponible y reservado de una fila.
func (f *fixture) assertRow(t *testing.T, warehouseID, lotID, available, reserved int64) {
	t.Helper()
	row := f.store.Row(warehouseID, lotID)
	assert.True(t, row.Available.Equal(qty(available)), "bodega %d lote %d disponible: esperado %d, obtenido %s", warehouseID, lotID, available, row.Available)
	assert.True(t, row.Reserved.Equal(qty(reserved)), "bodega %d lote %d reservado: esperado %d, obtenido %s", warehouseID, lotID, reserved, row.Reserved)
}

// assertReconciled verifica que el kardex reproduce exactamente las existencias.
func (f *fixture) assertReconciled(t *testing.T) {
	t.Helper()
	report, err := f.reconcile.Reconcile(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, report.OK(), "discrepancias: %+v", report.Discrepancies)
}
