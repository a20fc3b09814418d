package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Document as a single A4 table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	if len(doc.Preamble) > 0 {
		pdf.SetFont("Arial", "I", 9)
		for _, line := range doc.Preamble {
			pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)

	// first column holds the date and gets a wider share
	width := 190.0
	first := width * 0.2
	rest := (width - first) / float64(maxInt(len(doc.Headers)-1, 1))
	colWidth := func(i int) float64 {
		if i == 0 {
			return first
		}
		return rest
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(14, 116, 144)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range doc.Headers {
		pdf.CellFormat(colWidth(i), 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	for r, row := range doc.Rows {
		highlighted := r == doc.Highlight
		if highlighted {
			pdf.SetFont("Arial", "B", 8)
			pdf.SetFillColor(224, 242, 254)
		} else {
			pdf.SetFont("Arial", "", 8)
		}
		for i := range doc.Headers {
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(colWidth(i), 6, tr(doc.cell(row, i)), "1", 0, align, highlighted, 0, "")
		}
		pdf.Ln(-1)
	}

	if doc.Footer != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(0, 4, tr(doc.Footer), "", 1, "R", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
