package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/redisstore"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// HeaderIdempotencyKey header que el cliente envía para reintentar una mutación sin duplicarla.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore contrato que cumple *redisstore.IdempotencyStore.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*redisstore.StoredResponse, error)
	Complete(ctx context.Context, key string, resp redisstore.StoredResponse) error
	Abort(ctx context.Context, key string) error
}

// Idempotency repite la respuesta guardada cuando llega de nuevo la misma Idempotency-Key.
// Sin header o sin store la petición pasa tal cual. Las respuestas 5xx no se guardan.
func Idempotency(store IdempotencyStore, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderIdempotencyKey)
		if store == nil || raw == "" || c.Method() == fiber.MethodGet {
			return c.Next()
		}
		if len(raw) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_IDEMPOTENCY_KEY", Message: "Idempotency-Key demasiado larga"})
		}
		key := GetUserID(c) + ":" + c.Method() + ":" + c.Path() + ":" + raw
		ctx := c.UserContext()

		stored, err := store.Begin(ctx, key)
		if errors.Is(err, redisstore.ErrInFlight) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_IN_FLIGHT", Message: "petición en curso con la misma Idempotency-Key"})
		}
		if err != nil {
			log.Error().Err(err).Msg("idempotency: store no disponible")
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "BUSY", Message: "no se pudo verificar la Idempotency-Key"})
		}
		if stored != nil {
			c.Set("Idempotent-Replayed", "true")
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).Send(stored.Body)
		}

		if err := c.Next(); err != nil {
			_ = store.Abort(ctx, key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			if err := store.Abort(ctx, key); err != nil {
				log.Warn().Err(err).Msg("idempotency: liberar llave")
			}
			return nil
		}
		resp := redisstore.StoredResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.Complete(ctx, key, resp); err != nil {
			log.Warn().Err(err).Msg("idempotency: guardar respuesta")
		}
		return nil
	}
}
