package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/inventario-lotes/internal/domain/repository"
)

// DefaultKardexLimit tope de filas por consulta cuando el filtro no indica límite.
const DefaultKardexLimit = 200

// KardexReport datos para la representación en PDF del kardex.
type KardexReport struct {
	Title       string
	WarehouseID int64
	LotID       int64
	From        *time.Time
	To          *time.Time
	GeneratedAt time.Time
	Entries     []*entity.MovementEntry
}

// KardexPDFGenerator puerto para generar el PDF del kardex (implementado con Maroto en infraestructura).
type KardexPDFGenerator interface {
	GenerateKardexPDF(ctx context.Context, report *KardexReport) ([]byte, error)
}

// KardexUseCase consultas del kardex.
type KardexUseCase struct {
	deps      Deps
	generator KardexPDFGenerator
}

// NewKardexUseCase construye el caso de uso; generator puede ser nil si no se exporta PDF.
func NewKardexUseCase(deps Deps, generator KardexPDFGenerator) *KardexUseCase {
	return &KardexUseCase{deps: deps.withDefaults(), generator: generator}
}

// List consulta el kardex con filtros.
func (uc *KardexUseCase) List(ctx context.Context, f repository.KardexFilter) ([]*entity.MovementEntry, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if f.SourceModule != "" && !f.SourceModule.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = DefaultKardexLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var out []*entity.MovementEntry
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Journal.List(ctx, f)
		return err
	})
	return out, err
}

// ListBySource devuelve los movimientos de un registro dueño (venta, anticipo, traslado...).
func (uc *KardexUseCase) ListBySource(ctx context.Context, module entity.SourceModule, sourceID string) ([]*entity.MovementEntry, error) {
	if !module.Valid() || sourceID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out []*entity.MovementEntry
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Journal.ListBySource(ctx, module, sourceID)
		return err
	})
	return out, err
}

// ExportPDF genera el PDF del kardex filtrado. Devuelve bytes y nombre de archivo sugerido.
func (uc *KardexUseCase) ExportPDF(ctx context.Context, f repository.KardexFilter) ([]byte, string, error) {
	if uc.generator == nil {
		return nil, "", fmt.Errorf("kardex: generador PDF no configurado")
	}
	entries, err := uc.List(ctx, f)
	if err != nil {
		return nil, "", err
	}
	now := uc.deps.Clock()
	report := &KardexReport{
		Title:       "Kardex de inventario por lote",
		WarehouseID: f.WarehouseID,
		LotID:       f.LotID,
		From:        f.From,
		To:          f.To,
		GeneratedAt: now,
		Entries:     entries,
	}
	pdf, err := uc.generator.GenerateKardexPDF(ctx, report)
	if err != nil {
		return nil, "", fmt.Errorf("kardex: generar pdf: %w", err)
	}
	filename := fmt.Sprintf("kardex_%d_%s.pdf", f.WarehouseID, now.Format("20060102150405"))
	return pdf, filename, nil
}
