package tabular

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vitebski/tabular-seeder/pkg/models"
)

// ErrNoColumns is returned when a file has no header row to parse
var ErrNoColumns = errors.New("no columns to parse from file")

// nullTokens are the cell values treated as missing data
var nullTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

var boolTokens = map[string]bool{
	"True":  true,
	"TRUE":  true,
	"true":  true,
	"False": false,
	"FALSE": false,
	"false": false,
}

// TimestampLayouts are the layouts recognized when inferring timestamp columns
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// IsNull reports whether a raw cell value represents missing data
func IsNull(value string) bool {
	return nullTokens[value]
}

// Build converts a header and raw records into a typed table.
// Records shorter than the header are padded with nulls.
func Build(header []string, records [][]string) (*models.Table, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}

	names := SanitizeHeader(header)
	table := &models.Table{
		Columns: make([]models.Column, len(header)),
		Rows:    make([][]interface{}, len(records)),
	}

	for i := range header {
		column := make([]string, len(records))
		nulls := make([]bool, len(records))
		for r, record := range records {
			if i < len(record) && !IsNull(record[i]) {
				column[r] = record[i]
			} else {
				nulls[r] = true
			}
		}

		table.Columns[i] = models.Column{
			Name:       names[i],
			SourceName: header[i],
			Type:       InferColumnType(column, nulls),
		}
	}

	for r, record := range records {
		row := make([]interface{}, len(header))
		for i, col := range table.Columns {
			if i >= len(record) || IsNull(record[i]) {
				continue
			}
			row[i] = ConvertValue(record[i], col.Type)
		}
		table.Rows[r] = row
	}

	return table, nil
}

// InferColumnType picks one type for all non-null values of a column.
// A column with no values at all is float; a column whose values disagree is text.
func InferColumnType(values []string, nulls []bool) models.ColumnType {
	candidates := []struct {
		typ   models.ColumnType
		match func(string) bool
	}{
		{models.TypeBoolean, isBool},
		{models.TypeInteger, isInteger},
		{models.TypeFloat, isFloat},
		{models.TypeTimestamp, isTimestamp},
	}

	seen := false
	for _, c := range candidates {
		ok := true
		for i, v := range values {
			if nulls[i] {
				continue
			}
			seen = true
			if !c.match(v) {
				ok = false
				break
			}
		}
		if !seen {
			return models.TypeFloat
		}
		if ok {
			return c.typ
		}
	}

	return models.TypeText
}

// ConvertValue parses a non-null raw value into the Go value bound for the column type
func ConvertValue(value string, typ models.ColumnType) interface{} {
	trimmed := strings.TrimSpace(value)
	switch typ {
	case models.TypeBoolean:
		return boolTokens[trimmed]
	case models.TypeInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case models.TypeFloat:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	case models.TypeTimestamp:
		if v, ok := parseTimestamp(trimmed); ok {
			return v
		}
	}
	return value
}

func isBool(v string) bool {
	_, ok := boolTokens[strings.TrimSpace(v)]
	return ok
}

func isInteger(v string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	return err == nil
}

func isFloat(v string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil
}

func isTimestamp(v string) bool {
	_, ok := parseTimestamp(strings.TrimSpace(v))
	return ok
}

func parseTimestamp(v string) (time.Time, bool) {
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
