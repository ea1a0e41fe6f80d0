package excel_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bifrostdata/bifrost/pkg/connector/excel"
	"github.com/bifrostdata/bifrost/pkg/errors"
	"github.com/bifrostdata/bifrost/pkg/testutil"
)

// fixtureWorkbook writes a two-sheet workbook and returns its directory.
func fixtureWorkbook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	wb := excelize.NewFile()
	defer wb.Close()

	require.NoError(t, wb.SetSheetName("Sheet1", "Sales"))
	require.NoError(t, wb.SetSheetRow("Sales", "A1", &[]any{"region", "amount"}))
	require.NoError(t, wb.SetSheetRow("Sales", "A2", &[]any{"north", 100}))
	require.NoError(t, wb.SetSheetRow("Sales", "A3", &[]any{"south", 250}))

	_, err := wb.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Notes", "A1", &[]any{"note"}))
	require.NoError(t, wb.SetSheetRow("Notes", "A2", &[]any{"reviewed"}))

	require.NoError(t, wb.SaveAs(filepath.Join(dir, "report.xlsx")))
	return dir
}

func TestTestConnection(t *testing.T) {
	c := excel.New()
	dir := fixtureWorkbook(t)

	result := c.TestConnection(context.Background(), testutil.FileConfig("excel", dir, "report.xlsx"))
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Excel", result.Metadata["file_type"])
	assert.Equal(t, 2, result.Metadata["sheet_count"])
}

func TestGetTableList(t *testing.T) {
	c := excel.New()
	ctx := context.Background()

	conn, err := c.Connect(ctx, testutil.FileConfig("excel", fixtureWorkbook(t), "report.xlsx"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	sheets, err := c.GetTableList(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "Notes"}, sheets)
}

func TestExecuteQuery(t *testing.T) {
	c := excel.New()
	ctx := context.Background()

	conn, err := c.Connect(ctx, testutil.FileConfig("excel", fixtureWorkbook(t), "report.xlsx"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQuery(ctx, conn, "READ_SHEET:Sales")
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "amount"}, result.Columns)
	require.Equal(t, 2, result.RowCount)
	assert.Equal(t, "north", result.Rows[0][0])
	assert.Equal(t, int64(100), result.Rows[0][1])
	assert.Equal(t, "Sales", result.Metadata["sheet"])
}

func TestExecuteQueryUnknownSheet(t *testing.T) {
	c := excel.New()
	ctx := context.Background()

	conn, err := c.Connect(ctx, testutil.FileConfig("excel", fixtureWorkbook(t), "report.xlsx"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	_, err = c.ExecuteQuery(ctx, conn, "READ_SHEET:Inventory")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestExecuteQueryWithLimit(t *testing.T) {
	c := excel.New()
	ctx := context.Background()

	conn, err := c.Connect(ctx, testutil.FileConfig("excel", fixtureWorkbook(t), "report.xlsx"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQueryWithLimit(ctx, conn, "READ_SHEET:Sales", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestGetSchema(t *testing.T) {
	c := excel.New()
	ctx := context.Background()

	conn, err := c.Connect(ctx, testutil.FileConfig("excel", fixtureWorkbook(t), "report.xlsx"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	schema, err := c.GetSchema(ctx, conn)
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "Sales", schema.Tables[0].Name)
	assert.Equal(t, int64(2), schema.Tables[0].RowCount)
	assert.Equal(t, "Notes", schema.Tables[1].Name)
}

func TestValidateQuery(t *testing.T) {
	c := excel.New()

	assert.True(t, c.ValidateQuery("READ_SHEET:Sales").Valid)
	assert.False(t, c.ValidateQuery("READ_CSV:Sales").Valid)
	assert.False(t, c.ValidateQuery("READ_SHEET:").Valid)
}
