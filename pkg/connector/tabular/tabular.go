// Package tabular infers canonical column types from raw string grids
// and converts cells into the uniform result value vocabulary. It backs
// every connector whose source is header-plus-rows text: CSV, Excel and
// Google Sheets.
package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
)

// typeInferenceSampleRows bounds how many rows type inference examines.
const typeInferenceSampleRows = 100

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// InferColumnType picks the narrowest canonical type that fits every
// non-empty sample. Empty cells are treated as nulls and skipped; a
// column of only empty cells is a string column.
func InferColumnType(samples []string) core.ColumnType {
	var (
		seen        bool
		isInteger   = true
		isFloat     = true
		isBoolean   = true
		isDate      = true
		isTimestamp = true
	)

	for _, s := range samples {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		seen = true

		if isInteger {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInteger = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBoolean && !isBooleanLiteral(v) {
			isBoolean = false
		}
		if isDate && !parsesAs(v, dateLayouts) {
			isDate = false
		}
		if isTimestamp && !parsesAs(v, timestampLayouts) {
			isTimestamp = false
		}
	}

	switch {
	case !seen:
		return core.ColumnTypeString
	case isBoolean:
		return core.ColumnTypeBoolean
	case isInteger:
		return core.ColumnTypeInteger
	case isFloat:
		return core.ColumnTypeFloat
	case isTimestamp:
		return core.ColumnTypeTimestamp
	case isDate:
		return core.ColumnTypeDate
	default:
		return core.ColumnTypeString
	}
}

func isBooleanLiteral(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

func parsesAs(v string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// ConvertCell converts a raw cell into the value vocabulary for its
// column type. Conversion failures and empty cells fall back to nil or
// the raw string so one odd cell never fails a whole read.
func ConvertCell(raw string, t core.ColumnType) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}

	switch t {
	case core.ColumnTypeInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case core.ColumnTypeFloat, core.ColumnTypeDecimal:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case core.ColumnTypeBoolean:
		switch strings.ToLower(v) {
		case "true", "yes":
			return true
		case "false", "no":
			return false
		}
	}
	return v
}

// BuildColumns assembles canonical columns from a header and raw rows:
// each column's type is inferred from a bounded row sample, and a
// bounded distinct sample preview is attached.
func BuildColumns(header []string, rows [][]string) []core.Column {
	columns := make([]core.Column, 0, len(header))

	sampleRows := rows
	if len(sampleRows) > typeInferenceSampleRows {
		sampleRows = sampleRows[:typeInferenceSampleRows]
	}

	for i, name := range header {
		samples := make([]string, 0, len(sampleRows))
		for _, row := range sampleRows {
			if i < len(row) {
				samples = append(samples, row[i])
			}
		}

		colType := InferColumnType(samples)
		columns = append(columns, core.Column{
			Name:         name,
			Type:         colType,
			Nullable:     true,
			SampleValues: distinctSamples(samples, colType),
		})
	}

	return columns
}

func distinctSamples(raw []string, t core.ColumnType) []any {
	var (
		out  []any
		seen = make(map[string]bool)
	)
	for _, s := range raw {
		v := strings.TrimSpace(s)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, ConvertCell(v, t))
		if len(out) == core.MaxSampleValues {
			break
		}
	}
	return out
}

// BuildResult converts raw string rows into the normalized result shape,
// applying per-column typed conversion. Short rows are padded with nils
// so every row matches the column count.
func BuildResult(query string, header []string, rows [][]string) *core.QueryResult {
	columns := BuildColumns(header, rows)

	result := &core.QueryResult{
		Columns: header,
		Rows:    make([][]any, 0, len(rows)),
		Query:   query,
	}
	for _, raw := range rows {
		row := make([]any, len(header))
		for i := range header {
			if i < len(raw) {
				row[i] = ConvertCell(raw[i], columns[i].Type)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	return result
}

// TableName derives the logical table name from a file name by dropping
// the extension.
func TableName(fileName string) string {
	if idx := strings.LastIndex(fileName, "."); idx > 0 {
		return fileName[:idx]
	}
	return fileName
}
