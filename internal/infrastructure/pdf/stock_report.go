// Package pdf genera el reporte de stock por sede.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + fecha de generación                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Sede | Productos | Unidades | Valor                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DETALLE: Producto | Sede | Cantidad | Costo unit. | Valor   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL GENERAL                                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

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
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

var _ inventory.ReportRenderer = (*StockReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// StockReportGenerator implementa inventory.ReportRenderer usando Maroto v2.
type StockReportGenerator struct {
	title   string
	printer *message.Printer
	now     func() time.Time
}

// NewStockReportGenerator construye el generador; title va en el encabezado (p. ej. APP_NAME).
func NewStockReportGenerator(title string) *StockReportGenerator {
	return &StockReportGenerator{
		title:   title,
		printer: message.NewPrinter(language.Spanish),
		now:     time.Now,
	}
}

// RenderStockReport genera el PDF y devuelve sus bytes.
func (g *StockReportGenerator) RenderStockReport(rows []entity.StockRow, summary []entity.LocationSummary) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de stock", true).
		WithAuthor(g.title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow())
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionTitle("RESUMEN POR SEDE"))
	m.AddRows(tableHeader([]string{"Sede", "Productos", "Unidades", "Valor"}, []int{6, 2, 2, 2}))
	for _, s := range summary {
		m.AddRows(g.summaryRow(s))
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(sectionTitle("DETALLE"))
	m.AddRows(tableHeader([]string{"Producto", "Sede", "Cantidad", "Costo unit.", "Valor"}, []int{4, 3, 1, 2, 2}))
	total := decimal.Zero
	for _, r := range rows {
		m.AddRows(g.detailRow(r))
		total = total.Add(r.StockValue)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalRow(total))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *StockReportGenerator) headerRow() core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(g.title, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Stock por sede", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generado: "+g.now().Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 3, Color: colorGray,
			}),
		),
	)
}

func sectionTitle(label string) core.Row {
	return row.New(8).Add(col.New(12).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2,
	})))
}

func tableHeader(labels []string, sizes []int) core.Row {
	cols := make([]core.Col, 0, len(labels))
	for i, label := range labels {
		a := align.Right
		if i == 0 || (len(labels) == 5 && i == 1) {
			a = align.Left
		}
		cols = append(cols, col.New(sizes[i]).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 1,
		})))
	}
	return row.New(6).Add(cols...)
}

func (g *StockReportGenerator) summaryRow(s entity.LocationSummary) core.Row {
	return row.New(6).Add(
		col.New(6).Add(text.New(s.LocationName, props.Text{Size: 8, Top: 1})),
		col.New(2).Add(text.New(g.integer(s.Products), props.Text{Size: 8, Align: align.Right, Top: 1})),
		col.New(2).Add(text.New(g.integer(s.Units), props.Text{Size: 8, Align: align.Right, Top: 1})),
		col.New(2).Add(text.New(g.money(s.Value), props.Text{Size: 8, Align: align.Right, Top: 1})),
	)
}

func (g *StockReportGenerator) detailRow(r entity.StockRow) core.Row {
	return row.New(6).Add(
		col.New(4).Add(text.New(r.ProductName, props.Text{Size: 8, Top: 1})),
		col.New(3).Add(text.New(r.LocationName, props.Text{Size: 8, Top: 1})),
		col.New(1).Add(text.New(g.integer(r.Quantity), props.Text{Size: 8, Align: align.Right, Top: 1})),
		col.New(2).Add(text.New(g.money(r.UnitCost), props.Text{Size: 8, Align: align.Right, Top: 1})),
		col.New(2).Add(text.New(g.money(r.StockValue), props.Text{Size: 8, Align: align.Right, Top: 1})),
	)
}

func (g *StockReportGenerator) totalRow(total decimal.Decimal) core.Row {
	return row.New(8).Add(
		col.New(8).Add(text.New("TOTAL GENERAL", props.Text{Style: fontstyle.Bold, Size: 9, Top: 2})),
		col.New(4).Add(text.New(g.money(total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 2, Color: colorPrimary,
		})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (g *StockReportGenerator) integer(n int64) string {
	return g.printer.Sprintf("%d", n)
}

// money formatea con separador de miles y dos decimales según el locale.
func (g *StockReportGenerator) money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return g.printer.Sprintf("$ %.2f", f)
}
