package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    core.ColumnType
	}{
		{name: "integers", samples: []string{"1", "42", "-7"}, want: core.ColumnTypeInteger},
		{name: "floats", samples: []string{"1.5", "2", "3.0"}, want: core.ColumnTypeFloat},
		{name: "booleans", samples: []string{"true", "False", "yes", "NO"}, want: core.ColumnTypeBoolean},
		{name: "dates", samples: []string{"2024-01-02", "2024-02-03"}, want: core.ColumnTypeDate},
		{name: "timestamps", samples: []string{"2024-01-02 10:00:00", "2024-01-02T10:00:00Z"}, want: core.ColumnTypeTimestamp},
		{name: "strings", samples: []string{"alpha", "beta"}, want: core.ColumnTypeString},
		{name: "mixed falls back to string", samples: []string{"1", "alpha"}, want: core.ColumnTypeString},
		{name: "empty cells are skipped", samples: []string{"", "3", ""}, want: core.ColumnTypeInteger},
		{name: "all empty is string", samples: []string{"", "  "}, want: core.ColumnTypeString},
		{name: "no samples is string", samples: nil, want: core.ColumnTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumnType(tt.samples))
		})
	}
}

func TestConvertCell(t *testing.T) {
	assert.Equal(t, int64(42), ConvertCell("42", core.ColumnTypeInteger))
	assert.Equal(t, 1.5, ConvertCell("1.5", core.ColumnTypeFloat))
	assert.Equal(t, true, ConvertCell("yes", core.ColumnTypeBoolean))
	assert.Equal(t, false, ConvertCell("False", core.ColumnTypeBoolean))
	assert.Nil(t, ConvertCell("  ", core.ColumnTypeString))

	// A cell that fails typed conversion keeps its raw value.
	assert.Equal(t, "n/a", ConvertCell("n/a", core.ColumnTypeInteger))
}

func TestBuildColumns(t *testing.T) {
	header := []string{"id", "city"}
	rows := [][]string{
		{"1", "Oslo"},
		{"2", "Oslo"},
		{"3", "Bergen"},
	}

	columns := BuildColumns(header, rows)
	require.Len(t, columns, 2)

	assert.Equal(t, core.ColumnTypeInteger, columns[0].Type)
	assert.Equal(t, core.ColumnTypeString, columns[1].Type)
	assert.Equal(t, []any{"Oslo", "Bergen"}, columns[1].SampleValues, "samples are distinct, in first-seen order")
}

func TestBuildColumnsSampleCap(t *testing.T) {
	header := []string{"n"}
	var rows [][]string
	for i := 0; i < 50; i++ {
		rows = append(rows, []string{string(rune('a' + i%26))})
	}

	columns := BuildColumns(header, rows)
	require.Len(t, columns, 1)
	assert.LessOrEqual(t, len(columns[0].SampleValues), core.MaxSampleValues)
}

func TestBuildResultPadsShortRows(t *testing.T) {
	header := []string{"a", "b", "c"}
	rows := [][]string{
		{"1", "2", "3"},
		{"4"},
	}

	result := BuildResult("READ_CSV:t", header, rows)
	assert.Equal(t, 2, result.RowCount)
	require.Len(t, result.Rows[1], 3)
	assert.Equal(t, int64(4), result.Rows[1][0])
	assert.Nil(t, result.Rows[1][1])
	assert.Nil(t, result.Rows[1][2])
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "orders", TableName("orders.csv"))
	assert.Equal(t, "report.final", TableName("report.final.xlsx"))
	assert.Equal(t, "README", TableName("README"))
	assert.Equal(t, ".env", TableName(".env"))
}
