package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// StockHandler existencias, cobertura, recepciones, ajustes y conciliación (protegido).
type StockHandler struct {
	ledger     *inventory.LedgerUseCase
	allocator  *inventory.AllocatorUseCase
	receipts   *inventory.ReceiptUseCase
	adjust     *inventory.AdjustmentUseCase
	reconciler *inventory.ReconcileUseCase
	log        *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(
	ledger *inventory.LedgerUseCase,
	allocator *inventory.AllocatorUseCase,
	receipts *inventory.ReceiptUseCase,
	adjust *inventory.AdjustmentUseCase,
	reconciler *inventory.ReconcileUseCase,
	log *logger.Logger,
) *StockHandler {
	return &StockHandler{ledger: ledger, allocator: allocator, receipts: receipts, adjust: adjust, reconciler: reconciler, log: log}
}

// Get godoc
// @Summary      Existencia de un lote en una bodega
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  path  int  true  "ID de la bodega"
// @Param        lot_id        path  int  true  "ID del lote"
// @Success      200  {object}  dto.StockRowResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{warehouse_id}/{lot_id} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	warehouseID, e := paramID(c, "warehouse_id")
	if e != nil {
		return badRequest(c, e)
	}
	lotID, e := paramID(c, "lot_id")
	if e != nil {
		return badRequest(c, e)
	}
	row, err := h.ledger.Get(c.UserContext(), warehouseID, lotID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toStockRowResponse(row))
}

// ListLowStock godoc
// @Summary      Lotes por debajo de su mínimo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  int  false  "Filtrar por bodega. Vacío = todas."
// @Success      200  {array}   dto.LowStockResponse
// @Router       /api/stock/low [get]
func (h *StockHandler) ListLowStock(c *fiber.Ctx) error {
	warehouseID := int64(c.QueryInt("warehouse_id", 0))
	if warehouseID < 0 {
		return badRequest(c, &dto.ErrorResponse{Code: "INVALID_QUERY", Message: "warehouse_id inválido"})
	}
	items, err := h.ledger.ListLowStock(c.UserContext(), warehouseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.LowStockResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockResponse{
			WarehouseID:  it.WarehouseID,
			LotID:        it.LotID,
			Available:    it.Available,
			MinThreshold: it.MinThreshold,
			Missing:      it.Missing,
		})
	}
	return c.JSON(out)
}

// SetMinThreshold godoc
// @Summary      Fijar mínimo de existencia
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        warehouse_id  path  int  true  "ID de la bodega"
// @Param        lot_id        path  int  true  "ID del lote"
// @Param        body  body  dto.MinThresholdRequest  true  "min_threshold >= 0"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{warehouse_id}/{lot_id}/min-threshold [put]
func (h *StockHandler) SetMinThreshold(c *fiber.Ctx) error {
	warehouseID, e := paramID(c, "warehouse_id")
	if e != nil {
		return badRequest(c, e)
	}
	lotID, e := paramID(c, "lot_id")
	if e != nil {
		return badRequest(c, e)
	}
	var in dto.MinThresholdRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	if err := h.ledger.SetMinThreshold(c.UserContext(), warehouseID, lotID, in.MinThreshold); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Coverage godoc
// @Summary      Cobertura FEFO de una presentación
// @Description  Plan sobre disponible y sobre reservado, sin modificar existencias.
// @Tags         allocation
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id     query  int     true  "ID de la bodega"
// @Param        presentation_id  query  int     true  "ID de la presentación"
// @Param        quantity         query  string  true  "Cantidad solicitada"
// @Success      200  {object}  dto.CoverageResponse
// @Router       /api/allocation/coverage [get]
func (h *StockHandler) Coverage(c *fiber.Ctx) error {
	var q dto.CoverageQuery
	if e := bindQuery(c, &q); e != nil {
		return badRequest(c, e)
	}
	qty, err := decimal.NewFromString(q.Quantity)
	if err != nil {
		return badRequest(c, &dto.ErrorResponse{Code: "VALIDATION", Message: "quantity no es un número"})
	}
	cov, err := h.allocator.Coverage(c.UserContext(), q.WarehouseID, q.PresentationID, qty)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.CoverageResponse{
		WarehouseID:    cov.WarehouseID,
		PresentationID: cov.PresentationID,
		Requested:      cov.Requested,
		Available:      toPlanDTO(cov.Available),
		Reserved:       toPlanDTO(cov.Reserved),
		Shortfall:      cov.Shortfall,
	})
}

// Receive godoc
// @Summary      Registrar recepción de un lote
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "Línea de recepción"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiptRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	expires, err := parseDate(in.ExpiresAt)
	if err != nil || expires == nil {
		return badRequest(c, &dto.ErrorResponse{Code: "VALIDATION", Message: "expires_at inválido"})
	}
	manufactured, err := parseDate(in.ManufacturedAt)
	if err != nil {
		return badRequest(c, &dto.ErrorResponse{Code: "VALIDATION", Message: "manufactured_at inválido"})
	}
	res, err := h.receipts.Receive(c.UserContext(), inventory.ReceiptInput{
		ReceiptID:      in.ReceiptID,
		ReceiptLineID:  in.ReceiptLineID,
		WarehouseID:    in.WarehouseID,
		PresentationID: in.PresentationID,
		LotCode:        in.LotCode,
		ManufacturedAt: manufactured,
		ExpiresAt:      *expires,
		Quantity:       in.Quantity,
		UserID:         GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReceiptResponse{
		LotID:     res.Lot.ID,
		LotCode:   res.Lot.Code,
		ExpiresAt: res.Lot.ExpiresAt.Format("2006-01-02"),
		Stock:     toStockRowResponse(res.Row),
	})
}

// Adjust godoc
// @Summary      Ajuste manual de existencia
// @Tags         adjustments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "direction: ingress | egress"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	input := inventory.AdjustmentInput{
		WarehouseID: in.WarehouseID,
		LotID:       in.LotID,
		Quantity:    in.Quantity,
		Reason:      in.Reason,
		UserID:      GetUserID(c),
	}
	var res *inventory.AdjustmentResult
	var err error
	if in.Direction == "ingress" {
		res, err = h.adjust.Ingress(c.UserContext(), input)
	} else {
		res, err = h.adjust.Egress(c.UserContext(), input)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustmentResponse{
		OperationID: res.Entry.OperationID,
		Quantity:    res.Entry.Quantity,
		Stock:       toStockRowResponse(res.Row),
	})
}

// Reconcile godoc
// @Summary      Conciliar kardex contra existencias
// @Tags         reconcile
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReconcileRequest  false  "Bodegas; vacío = todas las activas"
// @Success      200   {array}  dto.ReconcileReportDTO
// @Router       /api/reconcile [post]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if e := bindJSON(c, &in); e != nil {
			return badRequest(c, e)
		}
	}
	reports, err := h.reconciler.ReconcileAll(c.UserContext(), in.WarehouseIDs)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReconcileReportDTOs(reports))
}
