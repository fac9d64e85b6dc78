// Package tabular reads and writes spreadsheet-shaped data as CSV or XLSX.
package tabular

import (
	"path/filepath"
	"strings"

	apperrors "blog-cms/internal/shared/errors"
)

// Format is a file format for exports and imports.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apperrors.NewValidationError("unsupported format " + s + ", expected csv or xlsx")
}

// FormatFromFilename picks the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ContentType is the MIME type of files in f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Table is a header row plus data rows. Decoded tables record the 1-based
// source line of each row in Lines; blank rows are dropped.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int
}

// Line returns the source line of row i. Tables built in memory number their
// rows as if written right after the header.
func (t *Table) Line(i int) int {
	if i >= 0 && i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Column returns the index of the header named name, ignoring case, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Value returns row[col] trimmed, or "" when col is out of range.
func Value(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Encode writes t in format f.
func Encode(f Format, t *Table, sheet string) ([]byte, error) {
	if f == FormatXLSX {
		return encodeXLSX(t, sheet)
	}
	return encodeCSV(t)
}

// Decode reads a table in format f. The first row is the header.
func Decode(f Format, data []byte) (*Table, error) {
	if f == FormatXLSX {
		return decodeXLSX(data)
	}
	return decodeCSV(data)
}
