// Package pdf genera la representación imprimible del kardex por lote.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + filtros        │  Fecha de generación      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Fecha | Tipo | Origen | Destino | Lote | Cant.  │
//	│         | Pool | Fuente | Usuario                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: entradas / salidas / neto                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ inventory.KardexPDFGenerator = (*MarotoKardexGenerator)(nil)

// MarotoKardexGenerator implementa inventory.KardexPDFGenerator usando Maroto v2.
type MarotoKardexGenerator struct{}

// NewMarotoKardexGenerator construye el generador.
func NewMarotoKardexGenerator() *MarotoKardexGenerator { return &MarotoKardexGenerator{} }

// GenerateKardexPDF genera el PDF y devuelve sus bytes.
func (g *MarotoKardexGenerator) GenerateKardexPDF(_ context.Context, report *inventory.KardexReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(report.Title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(report.Entries)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(report.Entries))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar kardex: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título y filtros (izq), fecha de generación (der).
func headerRow(report *inventory.KardexReport) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(report.Title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(filtersLine(report), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("KARDEX POR LOTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func filtersLine(report *inventory.KardexReport) string {
	from, to := "inicio", "hoy"
	if report.From != nil {
		from = report.From.Format("02/01/2006")
	}
	if report.To != nil {
		to = report.To.Format("02/01/2006")
	}
	return fmt.Sprintf("Bodega: %s   |   Lote: %s   |   Periodo: %s a %s",
		idOrAll(report.WarehouseID), idOrAll(report.LotID), from, to)
}

// tableHeaderRow: cabecera de la tabla de movimientos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Left),
		h("Fecha", 2, align.Left),
		h("Tipo", 2, align.Left),
		h("Origen", 1, align.Center),
		h("Destino", 1, align.Center),
		h("Lote", 1, align.Center),
		h("Cantidad", 1, align.Right),
		h("Fuente", 2, align.Left),
		h("Usuario", 1, align.Left),
	)
}

// tableDetailRows: una fila por movimiento.
func tableDetailRows(entries []*entity.MovementEntry) []core.Row {
	result := make([]core.Row, 0, len(entries))
	for _, e := range entries {
		qtyColor := colorGray
		if e.Quantity.IsNegative() {
			qtyColor = colorRed
		}
		kind := e.Kind.Name()
		if e.Pool != "" {
			kind += " (" + e.Pool.String() + ")"
		}
		cell := func(s string, size int, a align.Type) core.Col {
			return col.New(size).Add(text.New(s, props.Text{Size: 7.5, Align: a, Top: 1, Left: 1, Right: 1}))
		}
		result = append(result, row.New(6).Add(
			cell(strconv.FormatInt(e.ID, 10), 1, align.Left),
			cell(e.Timestamp.Format("02/01/2006 15:04"), 2, align.Left),
			cell(kind, 2, align.Left),
			cell(warehouseOrDash(e.OriginWarehouseID), 1, align.Center),
			cell(warehouseOrDash(e.DestWarehouseID), 1, align.Center),
			cell(strconv.FormatInt(e.LotID, 10), 1, align.Center),
			col.New(1).Add(text.New(e.Quantity.String(), props.Text{
				Size: 7.5, Align: align.Right, Top: 1, Right: 1, Color: qtyColor,
			})),
			cell(string(e.SourceModule)+" "+e.SourceID, 2, align.Left),
			cell(nonEmpty(e.CreatedBy, "—"), 1, align.Left),
		))
	}
	return result
}

// summaryRow: totales de entradas y salidas del listado.
func summaryRow(entries []*entity.MovementEntry) core.Row {
	in, out := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Quantity.IsPositive() {
			in = in.Add(e.Quantity)
		} else {
			out = out.Add(e.Quantity.Neg())
		}
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(
			label("Entradas:"),
			label("Salidas:"),
			label("Movimientos:"),
		),
		col.New(3).Add(
			value(in.String()),
			value(out.String()),
			value(strconv.Itoa(len(entries))),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func idOrAll(id int64) string {
	if id == 0 {
		return "todas"
	}
	return strconv.FormatInt(id, 10)
}

func warehouseOrDash(id *int64) string {
	if id == nil {
		return "—"
	}
	return strconv.FormatInt(*id, 10)
}
