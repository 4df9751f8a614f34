package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// ReservationHandler reservas de stock contra anticipos (protegido).
type ReservationHandler struct {
	uc *inventory.ReservationUseCase
	// allowShortfall política por defecto cuando la petición no la indica.
	allowShortfall bool
	log            *logger.Logger
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *inventory.ReservationUseCase, allowShortfall bool, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{uc: uc, allowShortfall: allowShortfall, log: log}
}

// Reserve godoc
// @Summary      Reservar stock para un anticipo (FEFO)
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Llave para reintentos seguros"
// @Param        body  body  dto.ReserveRequest  true  "Anticipo, bodega, presentación y cantidad"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	allow := h.allowShortfall
	if in.AllowShortfall != nil {
		allow = *in.AllowShortfall
	}
	res, err := h.uc.Reserve(c.UserContext(), inventory.ReserveInput{
		DepositID:      in.DepositID,
		WarehouseID:    in.WarehouseID,
		PresentationID: in.PresentationID,
		Quantity:       in.Quantity,
		AllowShortfall: allow,
		UserID:         GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReservationResponse(res))
}

// Release godoc
// @Summary      Liberar parte de una reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReleaseRequest  true  "Anticipo, bodega, presentación y cantidad"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	var in dto.ReleaseRequest
	if e := bindJSON(c, &in); e != nil {
		return badRequest(c, e)
	}
	res, err := h.uc.Release(c.UserContext(), inventory.ReleaseInput{
		DepositID:      in.DepositID,
		WarehouseID:    in.WarehouseID,
		PresentationID: in.PresentationID,
		Quantity:       in.Quantity,
		UserID:         GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReservationResponse(res))
}

// ReleaseAll godoc
// @Summary      Liberar todo lo reservado por un anticipo
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        deposit_id  path  int  true  "ID del anticipo"
// @Success      200  {object}  dto.ReleaseAllResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{deposit_id}/release-all [post]
func (h *ReservationHandler) ReleaseAll(c *fiber.Ctx) error {
	depositID, e := paramID(c, "deposit_id")
	if e != nil {
		return badRequest(c, e)
	}
	res, err := h.uc.ReleaseAll(c.UserContext(), depositID, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReleaseAllResponse(res))
}

// Details godoc
// @Summary      Líneas de un anticipo
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        deposit_id  path  int  true  "ID del anticipo"
// @Success      200  {array}   dto.ReservationDetailDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{deposit_id} [get]
func (h *ReservationHandler) Details(c *fiber.Ctx) error {
	depositID, e := paramID(c, "deposit_id")
	if e != nil {
		return badRequest(c, e)
	}
	details, err := h.uc.Details(c.UserContext(), depositID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toDetailDTOs(details))
}
