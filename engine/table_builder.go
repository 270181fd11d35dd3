package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a view + column layout
// ============================================================================
// Cells are formatted by column type. Null measures render as "".
// The row cap only shapes the rendered rows; Total always reports the full view.
// ============================================================================

// BuildTable renders the rows of view using the given column layout.
func BuildTable(view RecordView, columns []Column, opts ...Option) *TableData {
	cfg := applyOptions(opts)

	shown := Head(view, cfg.Limit)
	rows := make([][]string, 0, shown.Len())
	for i := 0; i < shown.Len(); i++ {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, formatCell(shown, i, col))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:     cfg.Title,
		Columns:   columns,
		Rows:      rows,
		Total:     view.Len(),
		Truncated: shown.Len() < view.Len(),
		Summary: &Summary{
			Label: fmt.Sprintf("Showing %s of %s records", FormatInt(shown.Len()), FormatInt(view.Len())),
			Values: map[string]string{
				"shown": strconv.Itoa(shown.Len()),
				"total": strconv.Itoa(view.Len()),
			},
		},
	}
}

// ============================================================================
// CELL FORMATTING
// ============================================================================

func formatCell(view RecordView, i int, col Column) string {
	switch col.Type {
	case "number":
		if IsNull(view, i, col.Key) {
			return ""
		}
		return fmt.Sprintf("%.2f", view.Measure(i, col.Key))
	case "integer":
		if IsNull(view, i, col.Key) {
			return ""
		}
		return strconv.FormatInt(int64(view.Measure(i, col.Key)), 10)
	case "currency":
		if IsNull(view, i, col.Key) {
			return ""
		}
		return FormatAmount(view.Measure(i, col.Key), 0)
	case "percent":
		if IsNull(view, i, col.Key) {
			return ""
		}
		return FormatPercent(view.Measure(i, col.Key))
	case "date":
		if tv, ok := view.(TemporalView); ok {
			t := tv.Time(i, col.Key)
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		}
		return view.Dimension(i, col.Key)
	default:
		return view.Dimension(i, col.Key)
	}
}
