package helpers

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/spektr-org/churnboard/engine"
	"github.com/spektr-org/churnboard/schema"
)

// ============================================================================
// CSV HELPER — Reads delimited tables into rows or generic Records
// ============================================================================
// Callers read the bytes from wherever they live (file, upload, export).
// ReadTable is strict: a malformed row fails the whole read with its line
// number, since startup sources must never load partially.
// ============================================================================

// Table is a header row plus data rows, cells trimmed.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadTable reads a CSV stream with a mandatory header row.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0 // every row must match the header width

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV: no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read CSV headers")
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &Table{Headers: headers}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read CSV row") // *csv.ParseError carries the line
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// TableCatalog builds a view and discovered catalog from an already-read table.
// Numeric cells become measures, everything else dimensions; keys are the
// snake_case headers. Empty cells are left out, so they read as null.
func TableCatalog(name string, table *Table) (engine.RecordView, schema.Catalog) {
	return engine.NewSliceView(toRecords(table)), schema.Discover(name, table.Headers, table.Rows)
}

func toRecords(table *Table) []engine.Record {
	keys := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		keys[i] = schema.ToSnakeCase(h)
	}

	records := make([]engine.Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := engine.Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}
		for i, val := range row {
			if i >= len(keys) || val == "" {
				continue
			}
			// Try numeric first
			if f, err := strconv.ParseFloat(strings.ReplaceAll(val, ",", ""), 64); err == nil {
				rec.Measures[keys[i]] = f
			} else {
				rec.Dimensions[keys[i]] = val
			}
		}
		records = append(records, rec)
	}
	return records
}
