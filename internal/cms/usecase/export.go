package usecase

import (
	"fmt"
	"strconv"
	"time"

	"blog-cms/internal/cms/adapter/filter"
	"blog-cms/internal/cms/adapter/tabular"
	"blog-cms/internal/shared/validation"
)

// exporter turns records of one kind into a spreadsheet.
type exporter[T any] struct {
	name     string
	variable string
	header   []string
	row      func(*T) []string
}

// export filters docs with req.Filter and encodes the survivors in req.Format.
// Records the filter cannot evaluate, for example because a field is missing,
// are left out.
func (e exporter[T]) export(req ExportRequest, docs []*T, now time.Time) (*ExportFile, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	format, err := tabular.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	var expr *filter.Expression
	if req.Filter != "" {
		if expr, err = filter.Compile(e.variable, req.Filter); err != nil {
			return nil, err
		}
	}

	table := &tabular.Table{Header: e.header}
	for _, doc := range docs {
		if expr != nil {
			if ok, err := expr.Match(doc); err != nil || !ok {
				continue
			}
		}
		table.Rows = append(table.Rows, e.row(doc))
	}

	data, err := tabular.Encode(format, table, e.name)
	if err != nil {
		return nil, fmt.Errorf("encode %s export: %w", e.name, err)
	}
	return &ExportFile{
		FileName:    fmt.Sprintf("%s-%s.%s", e.name, now.UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Count:       len(table.Rows),
		Data:        data,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// parseBool accepts the spellings spreadsheets commonly use for true.
func parseBool(s string) bool {
	switch s {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes", "y", "Y", "x", "X":
		return true
	}
	return false
}
