package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// retryAfterSeconds valor de Retry-After cuando el recurso está bloqueado.
const retryAfterSeconds = "1"

// respondError traduce errores de dominio a status + dto.ErrorResponse. Los 500 se registran.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var se *domain.StockError
	switch {
	case domain.IsRetryable(err):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "BUSY", Message: "recurso ocupado, reintente"})
	case errors.As(err, &se):
		code := "INSUFFICIENT_STOCK"
		if errors.Is(se.Kind, domain.ErrInsufficientReservation) {
			code = "INSUFFICIENT_RESERVATION"
		}
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: code, Message: se.Error(), Details: stockErrorDetails(se)})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrIllegalState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ILLEGAL_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientReservation):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_RESERVATION", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func stockErrorDetails(se *domain.StockError) map[string]interface{} {
	d := map[string]interface{}{
		"warehouse_id": se.WarehouseID,
		"requested":    se.Requested.String(),
		"available":    se.Available.String(),
	}
	if se.LotID != 0 {
		d["lot_id"] = se.LotID
	}
	if se.PresentationID != 0 {
		d["presentation_id"] = se.PresentationID
	}
	if se.Pool != "" {
		d["pool"] = se.Pool
	}
	return d
}
