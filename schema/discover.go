package schema

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Catalogs for schema-free tables
// ============================================================================
// Reference tables such as the salary reference carry whatever columns the
// source has. Discover inspects the header and a sample of rows and builds a
// catalog so they render and export like the fixed tables:
//   1. Header → canonical key (snake_case) + display name (Title Case)
//   2. Sample values → kind (bool, date, integer, number, text)
// ============================================================================

// DiscoverSampleSize caps the rows inspected per column.
const DiscoverSampleSize = 1000

// Discover builds a catalog for a table from its header row and data rows.
// Every discovered column is optional; duplicate headers keep their first position.
func Discover(name string, headers []string, rows [][]string) Catalog {
	cat := Catalog{Name: name}
	seen := make(map[string]bool, len(headers))

	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := ToSnakeCase(h)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		samples := make([]string, 0, min(len(rows), DiscoverSampleSize))
		for _, row := range rows {
			if len(samples) == DiscoverSampleSize {
				break
			}
			if i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					samples = append(samples, v)
				}
			}
		}

		cat.Columns = append(cat.Columns, Column{
			Key:         key,
			DisplayName: toDisplayName(h),
			Kind:        detectKind(samples),
			Optional:    true,
		})
	}
	return cat
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectKind requires 80%+ of non-empty values to match for bool/date/numeric.
func detectKind(values []string) Kind {
	if len(values) == 0 {
		return KindText
	}

	intCount, numCount, dateCount, boolCount := 0, 0, 0, 0
	for _, v := range values {
		if isInteger(v) {
			intCount++
		}
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)
	switch {
	case boolCount >= threshold && boolCount > 0 && !allDigits(values):
		return KindBool
	case dateCount >= threshold && dateCount > 0:
		return KindDate
	case intCount >= threshold && intCount > 0:
		return KindInteger
	case numCount >= threshold && numCount > 0:
		return KindNumber
	}
	return KindText
}

func isNumeric(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isInteger(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// allDigits keeps 0/1 columns numeric rather than boolean.
func allDigits(values []string) bool {
	for _, v := range values {
		if !isInteger(v) {
			return false
		}
	}
	return true
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no" || s == "1" || s == "0"
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// ToSnakeCase converts "Column Name" or "columnName" → "column_name".
func ToSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// toDisplayName cleans a header for human display.
// "salary_band" → "Salary Band", "Base Salary" → "Base Salary"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}
