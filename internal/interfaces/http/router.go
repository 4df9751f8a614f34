package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/pkg/jwt"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger       *inventory.LedgerUseCase
	Allocator    *inventory.AllocatorUseCase
	Receipts     *inventory.ReceiptUseCase
	Adjustments  *inventory.AdjustmentUseCase
	Reconcile    *inventory.ReconcileUseCase
	Reservations *inventory.ReservationUseCase
	Dispatch     *inventory.DispatchUseCase
	Anulacion    *inventory.AnulacionUseCase
	Transfers    *inventory.TransferUseCase
	Kardex       *inventory.KardexUseCase
	// Idempotency puede ser nil (sin Redis): las mutaciones no se deduplican.
	Idempotency    IdempotencyStore
	AllowShortfall bool
	JWTSecret      string
	Logger         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	// Todas las rutas requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), Idempotency(deps.Idempotency, log))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor, jwt.RoleAuditor)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor, jwt.RoleBodeguero)
	audit := RequireRole(jwt.RoleAdmin, jwt.RoleAuditor)

	stock := NewStockHandler(deps.Ledger, deps.Allocator, deps.Receipts, deps.Adjustments, deps.Reconcile, log)
	api.Get("/stock/low", anyRole, stock.ListLowStock)
	api.Get("/stock/:warehouse_id/:lot_id", anyRole, stock.Get)
	api.Put("/stock/:warehouse_id/:lot_id/min-threshold", warehouse, stock.SetMinThreshold)
	api.Get("/allocation/coverage", anyRole, stock.Coverage)
	api.Post("/receipts", warehouse, stock.Receive)
	api.Post("/adjustments", warehouse, stock.Adjust)
	api.Post("/reconcile", audit, stock.Reconcile)

	reservations := NewReservationHandler(deps.Reservations, deps.AllowShortfall, log)
	api.Post("/reservations", sales, reservations.Reserve)
	api.Post("/reservations/release", sales, reservations.Release)
	api.Post("/reservations/:deposit_id/release-all", sales, reservations.ReleaseAll)
	api.Get("/reservations/:deposit_id", anyRole, reservations.Details)

	sale := NewSaleHandler(deps.Dispatch, deps.Anulacion, log)
	api.Post("/sales/:sale_id/dispatch", sales, sale.Dispatch)
	api.Post("/sales/:sale_id/cancel", RequireRole(jwt.RoleAdmin), sale.Cancel)

	transfers := NewTransferHandler(deps.Transfers, log)
	api.Post("/transfers", warehouse, transfers.Create)
	api.Get("/transfers/:id", anyRole, transfers.Get)
	api.Post("/transfers/:id/confirm-salida", warehouse, transfers.ConfirmSalida)
	api.Post("/transfers/:id/confirm-ingreso", warehouse, transfers.ConfirmIngreso)
	api.Post("/transfers/:id/cancel", warehouse, transfers.Cancel)

	kardex := NewKardexHandler(deps.Kardex, log)
	api.Get("/kardex", anyRole, kardex.List)
	api.Get("/kardex/pdf", anyRole, kardex.ExportPDF)
	api.Get("/kardex/source/:module/:source_id", anyRole, kardex.ListBySource)
}
