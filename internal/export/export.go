package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"customer-insights/internal/dataset"
)

// Format is an export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnknownFormat is returned for unsupported export formats.
var ErrUnknownFormat = errors.New("unknown export format")

const sheetName = "Sheet1"

// ParseFormat accepts the format names used in requests.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the download name for a dataset export.
func (f Format) Filename(name string) string {
	return fmt.Sprintf("%s.%s", name, f)
}

// Write renders t in format f. Rows pass through unchanged.
func Write(f Format, t dataset.Table) ([]byte, error) {
	switch f {
	case FormatXLSX:
		return Excel(t)
	case FormatPDF:
		return PDF(t)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Excel writes t to a single sheet workbook, header row first, numbers as numbers.
func Excel(t dataset.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for col, name := range t.Columns {
		if err := setCell(f, col, 0, name); err != nil {
			return nil, err
		}
	}
	for r, row := range t.Rows {
		for col, raw := range row {
			if err := setCell(f, col, r+1, dataset.Cell(raw)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

// PDF writes t as a bordered grid of fixed width cells, one table row per line.
func PDF(t dataset.Table) ([]byte, error) {
	const cellW, cellH = 40, 10

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, col := range t.Columns {
		pdf.CellFormat(cellW, cellH, tr(col), "1", 0, "", false, 0, "")
	}
	pdf.Ln(-1)

	for _, row := range t.Rows {
		for _, item := range row {
			pdf.CellFormat(cellW, cellH, tr(item), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
