package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// wideTableThreshold is the column count at which a dataset switches from
// portrait to landscape. Class lists carry enough columns to need it.
const wideTableThreshold = 7

const (
	portraitTableWidth  = 190.0
	landscapeTableWidth = 277.0
)

// PDFExporter renders datasets into a tabular PDF, choosing page orientation
// from the column count.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation, tableWidth := pageLayout(len(data.Headers))
	colWidth := tableWidth / float64(len(data.Headers))

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	writeTitle(pdf, title)
	writeHeaderRow(pdf, data.Headers, colWidth)
	writeBody(pdf, data, colWidth)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pageLayout(columns int) (orientation string, tableWidth float64) {
	if columns >= wideTableThreshold {
		return "L", landscapeTableWidth
	}
	return "P", portraitTableWidth
}

func writeTitle(pdf *gofpdf.Fpdf, title string) {
	if title == "" {
		return
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

func writeHeaderRow(pdf *gofpdf.Fpdf, headers []string, colWidth float64) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for _, header := range headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func writeBody(pdf *gofpdf.Fpdf, data Dataset, colWidth float64) {
	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
