package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
)

var validate = validator.New()

// bindJSON parsea y valida el body. Devuelve el ErrorResponse listo para 400, o nil.
func bindJSON(c *fiber.Ctx, dst interface{}) *dto.ErrorResponse {
	if err := c.BodyParser(dst); err != nil {
		return &dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"}
	}
	return validateStruct(dst)
}

// bindQuery parsea y valida la query string.
func bindQuery(c *fiber.Ctx, dst interface{}) *dto.ErrorResponse {
	if err := c.QueryParser(dst); err != nil {
		return &dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"}
	}
	return validateStruct(dst)
}

func validateStruct(dst interface{}) *dto.ErrorResponse {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	}
	fields := make(map[string]interface{}, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return &dto.ErrorResponse{Code: "VALIDATION", Message: strings.Join(msgs, "; "), Details: fields}
}

// paramID lee un id numérico positivo de la ruta.
func paramID(c *fiber.Ctx, name string) (int64, *dto.ErrorResponse) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &dto.ErrorResponse{Code: "INVALID_ID", Message: name + " debe ser un entero positivo"}
	}
	return id, nil
}

// parseDate interpreta YYYY-MM-DD en UTC; vacío devuelve nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func badRequest(c *fiber.Ctx, e *dto.ErrorResponse) error {
	return c.Status(fiber.StatusBadRequest).JSON(e)
}
