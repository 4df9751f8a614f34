package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// TransferHandler traslados entre bodegas (protegido).
type TransferHandler struct {
	uc  *inventory.TransferUseCase
	log *logger.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *inventory.TransferUseCase, log *logger.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear traslado (immediate=true lo ejecuta de una vez)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Bodegas y líneas por lote"
// @Success      201   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	lines := make([]entity.TransferLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, entity.TransferLine{LotID: l.LotID, Quantity: l.Quantity})
	}
	input := inventory.CreateTransferInput{
		OriginWarehouseID: in.OriginWarehouseID,
		DestWarehouseID:   in.DestWarehouseID,
		Lines:             lines,
		Notes:             in.Notes,
		UserID:            GetUserID(c),
	}
	var t *entity.Transfer
	var err error
	if in.Immediate {
		t, err = h.uc.TransferNow(c.UserContext(), input)
	} else {
		t, err = h.uc.Create(c.UserContext(), input)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(t))
}

// Get godoc
// @Summary      Obtener traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	id, e := paramID(c, "id")
	if e != nil {
		return badRequest(c, e)
	}
	t, err := h.uc.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(t))
}

// ConfirmSalida godoc
// @Summary      Confirmar salida de la bodega origen
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/confirm-salida [post]
func (h *TransferHandler) ConfirmSalida(c *fiber.Ctx) error {
	id, e := paramID(c, "id")
	if e != nil {
		return badRequest(c, e)
	}
	t, err := h.uc.ConfirmSalida(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(t))
}

// ConfirmIngreso godoc
// @Summary      Confirmar ingreso en la bodega destino
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/confirm-ingreso [post]
func (h *TransferHandler) ConfirmIngreso(c *fiber.Ctx) error {
	id, e := paramID(c, "id")
	if e != nil {
		return badRequest(c, e)
	}
	t, err := h.uc.ConfirmIngreso(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(t))
}

// Cancel godoc
// @Summary      Anular traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del traslado"
// @Param        body  body  dto.CancelTransferRequest  false  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	id, e := paramID(c, "id")
	if e != nil {
		return badRequest(c, e)
	}
	var in dto.CancelTransferRequest
	if len(c.Body()) > 0 {
		if e := bindJSON(c, &in); e != nil {
			return badRequest(c, e)
		}
	}
	t, err := h.uc.Cancel(c.UserContext(), id, in.Reason, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(t))
}
