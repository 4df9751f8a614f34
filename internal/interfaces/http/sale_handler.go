package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// SaleHandler despacho y anulación de ventas (protegido).
type SaleHandler struct {
	dispatch  *inventory.DispatchUseCase
	anulacion *inventory.AnulacionUseCase
	log       *logger.Logger
}

// NewSaleHandler construye el handler.
func NewSaleHandler(dispatch *inventory.DispatchUseCase, anulacion *inventory.AnulacionUseCase, log *logger.Logger) *SaleHandler {
	return &SaleHandler{dispatch: dispatch, anulacion: anulacion, log: log}
}

// Dispatch godoc
// @Summary      Despachar una venta (reservado primero, luego disponible, FEFO)
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        sale_id  path  int  true  "ID de la venta"
// @Param        Idempotency-Key  header  string  false  "Llave para reintentos seguros"
// @Param        body  body  dto.DispatchRequest  true  "Líneas de la venta"
// @Success      201   {object}  dto.DispatchResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales/{sale_id}/dispatch [post]
func (h *SaleHandler) Dispatch(c *fiber.Ctx) error {
	saleID, e := paramID(c, "sale_id")
	if e != nil {
		return badRequest(c, e)
	}
	var in dto.DispatchRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	lines := make([]inventory.DispatchLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.DispatchLine{SaleLineID: l.SaleLineID, PresentationID: l.PresentationID, Quantity: l.Quantity})
	}
	res, err := h.dispatch.Dispatch(c.UserContext(), inventory.DispatchInput{
		SaleID:      saleID,
		WarehouseID: in.WarehouseID,
		DepositID:   in.DepositID,
		UserID:      GetUserID(c),
		Lines:       lines,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DispatchResponse{
		OperationID:  res.OperationID,
		SaleID:       saleID,
		Consumptions: toConsumptionDTOs(res.Consumptions),
	})
}

// Cancel godoc
// @Summary      Anular una venta y devolver sus lotes a disponible
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        sale_id  path  int  true  "ID de la venta"
// @Param        body  body  dto.CancelSaleRequest  true  "Motivo"
// @Success      200   {object}  dto.CancelSaleResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{sale_id}/cancel [post]
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	saleID, e := paramID(c, "sale_id")
	if e != nil {
		return badRequest(c, e)
	}
	var in dto.CancelSaleRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	res, err := h.anulacion.CancelSale(c.UserContext(), saleID, in.Reason, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.CancelSaleResponse{
		OperationID: res.OperationID,
		SaleID:      res.SaleID,
		Restored:    toConsumptionDTOs(res.Restored),
	})
}
