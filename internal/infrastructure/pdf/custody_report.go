// Package pdf genera el certificado de cadena de custodia de un producto.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre + código de barras  │  Fecha de emisión      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ESTADO ACTUAL: custodio / estado / última secuencia        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Fecha | Tipo | De | A | Estado | Evidencia       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el código + leyenda                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
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

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

var _ custody.ReportRenderer = (*MarotoReportGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoReportGenerator implementa custody.ReportRenderer usando Maroto v2.
type MarotoReportGenerator struct {
	now func() time.Time
}

// NewMarotoReportGenerator construye el generador.
func NewMarotoReportGenerator() *MarotoReportGenerator {
	return &MarotoReportGenerator{now: time.Now}
}

// RenderCustodyReport genera el PDF con el historial completo y devuelve sus bytes.
func (g *MarotoReportGenerator) RenderCustodyReport(
	_ context.Context,
	product *entity.Product,
	events []*entity.CustodyEvent,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Cadena de custodia "+product.Barcode, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(product, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(currentStateRow(product))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(eventRows(events)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(product, len(events)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(p *entity.Product, issued time.Time) core.Row {
	return row.New(18).Add(
		col.New(8).Add(
			text.New(nonEmpty(p.Name, "Producto"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Código: "+p.Barcode, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("CADENA DE CUSTODIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Emitido: "+issued.UTC().Format("02/01/2006 15:04 MST"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func currentStateRow(p *entity.Product) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ESTADO ACTUAL", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Custodio: %s   |   Estado: %s   |   Eventos: %d   |   Alta: %s",
				p.CurrentOwnerID,
				p.Status,
				p.LastSequence+1,
				p.CreatedAt.UTC().Format("02/01/2006"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Left),
		h("De", 2, align.Left),
		h("A", 2, align.Left),
		h("Estado", 1, align.Left),
		h("Evidencia", 3, align.Left),
	)
}

func eventRows(events []*entity.CustodyEvent) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	rows := make([]core.Row, 0, len(events))
	for _, ev := range events {
		rows = append(rows, row.New(7).Add(
			cell(fmt.Sprintf("%d", ev.SequenceNumber), 1, align.Center),
			cell(ev.Timestamp.UTC().Format("02/01/2006 15:04"), 2, align.Left),
			cell(ev.Kind, 1, align.Left),
			cell(nonEmpty(ev.From(), "—"), 2, align.Left),
			cell(ev.ToOwnerID, 2, align.Left),
			cell(string(ev.Status), 1, align.Left),
			cell(nonEmpty(ev.Evidence(), "—"), 3, align.Left),
		))
	}
	return rows
}

// footerRow QR con el código de barras para volver a escanear el producto.
func footerRow(p *entity.Product, n int) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(p.Barcode, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New(fmt.Sprintf("Historial completo: %d eventos consecutivos desde la creación.", n), props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Los eventos son inmutables; cada transferencia referencia su evidencia fotográfica.", props.Text{
				Size: 7, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
