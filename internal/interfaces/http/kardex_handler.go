package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// KardexHandler consultas del kardex (protegido).
type KardexHandler struct {
	uc  *inventory.KardexUseCase
	log *logger.Logger
}

// NewKardexHandler construye el handler.
func NewKardexHandler(uc *inventory.KardexUseCase, log *logger.Logger) *KardexHandler {
	return &KardexHandler{uc: uc, log: log}
}

// toFilter traduce la query a filtro; "to" es inclusivo por día.
func toFilter(q dto.KardexQuery) (repository.KardexFilter, *dto.ErrorResponse) {
	f := repository.KardexFilter{
		WarehouseID:  q.WarehouseID,
		LotID:        q.LotID,
		SourceModule: entity.SourceModule(q.SourceModule),
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.Kind != "" {
		k, ok := entity.ParseMovementKind(q.Kind)
		if !ok {
			return f, &dto.ErrorResponse{Code: "VALIDATION", Message: "kind desconocido: " + q.Kind}
		}
		f.Kind = k
	}
	from, err := parseDate(q.From)
	if err != nil {
		return f, &dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido"}
	}
	to, err := parseDate(q.To)
	if err != nil {
		return f, &dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido"}
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	f.From, f.To = from, to
	return f, nil
}

// List godoc
// @Summary      Consultar kardex
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id   query  int     false  "Bodega"
// @Param        lot_id         query  int     false  "Lote"
// @Param        kind           query  string  false  "purchase_in, sale_out, ... o código"
// @Param        source_module  query  string  false  "venta, compra, anticipo, transferencia, ajuste, recepcion"
// @Param        from           query  string  false  "YYYY-MM-DD"
// @Param        to             query  string  false  "YYYY-MM-DD (inclusivo)"
// @Param        limit          query  int     false  "Límite"  default(50)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.KardexResponse
// @Router       /api/kardex [get]
func (h *KardexHandler) List(c *fiber.Ctx) error {
	var q dto.KardexQuery
	if e := bindQuery(c, &q); e != nil {
		return badRequest(c, e)
	}
	q.DefaultPage()
	f, e := toFilter(q)
	if e != nil {
		return badRequest(c, e)
	}
	entries, err := h.uc.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.KardexResponse{
		Items: toMovementDTOs(entries),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// ExportPDF godoc
// @Summary      Kardex en PDF
// @Tags         kardex
// @Security     Bearer
// @Produce      application/pdf
// @Param        warehouse_id  query  int     false  "Bodega"
// @Param        lot_id        query  int     false  "Lote"
// @Param        from          query  string  false  "YYYY-MM-DD"
// @Param        to            query  string  false  "YYYY-MM-DD (inclusivo)"
// @Success      200  {file}  binary
// @Router       /api/kardex/pdf [get]
func (h *KardexHandler) ExportPDF(c *fiber.Ctx) error {
	var q dto.KardexQuery
	if e := bindQuery(c, &q); e != nil {
		return badRequest(c, e)
	}
	f, e := toFilter(q)
	if e != nil {
		return badRequest(c, e)
	}
	pdf, filename, err := h.uc.ExportPDF(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// ListBySource godoc
// @Summary      Movimientos de un registro dueño (venta, anticipo, traslado...)
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        module     path  string  true  "Módulo fuente"
// @Param        source_id  path  string  true  "ID del registro"
// @Success      200  {array}  dto.MovementDTO
// @Router       /api/kardex/source/{module}/{source_id} [get]
func (h *KardexHandler) ListBySource(c *fiber.Ctx) error {
	entries, err := h.uc.ListBySource(c.UserContext(), entity.SourceModule(c.Params("module")), c.Params("source_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toMovementDTOs(entries))
}
