package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth    = 277.0 // A4 landscape minus margins
	bodyFontName = "body"
)

// PDFExporter renders datasets into a landscape tabular PDF.
// When FontPath points to a TrueType font it is embedded so non-latin text renders;
// otherwise the core Helvetica font is used.
type PDFExporter struct {
	FontPath string
	now      func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{FontPath: fontPath, now: time.Now}
}

// Render creates a PDF document with a title, generation timestamp, table body and page numbers.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	if e.now != nil {
		now = e.now
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)

	font := "Helvetica"
	if e.FontPath != "" {
		pdf.AddUTF8Font(bodyFontName, "", e.FontPath)
		pdf.AddUTF8Font(bodyFontName, "B", e.FontPath)
		font = bodyFontName
	}

	widths := columnWidths(data.Columns)
	header := func() {
		pdf.SetFont(font, "B", 9)
		pdf.SetFillColor(230, 236, 230)
		for i, t := range data.titles() {
			pdf.CellFormat(widths[i], 8, t, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(font, "", 8)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(font, "", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(font, "B", 13)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	}
	pdf.SetFont(font, "", 8)
	pdf.CellFormat(0, 5, "Generated "+now().UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	header()
	_, pageHeight := pdf.GetPageSize()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-15 {
			pdf.AddPage()
			header()
		}
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column) []float64 {
	total := 0.0
	for _, c := range cols {
		total += weight(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = pageWidth * weight(c) / total
	}
	return out
}

func weight(c Column) float64 {
	if c.Width <= 0 {
		return 1
	}
	return c.Width
}
