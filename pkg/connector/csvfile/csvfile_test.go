package csvfile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/csvfile"
	"github.com/bifrostdata/bifrost/pkg/testutil"
)

const ordersCSV = `id,amount,paid,created_at
1,19.99,true,2024-01-02 10:00:00
2,5,false,2024-01-03 11:30:00
3,42.50,true,2024-01-04 09:15:00
`

func TestTestConnection(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()

	t.Run("success", func(t *testing.T) {
		testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

		result := c.TestConnection(context.Background(), testutil.FileConfig("csv", dir, "orders.csv"))
		require.True(t, result.Success, result.Error)
		assert.Equal(t, "CSV", result.Metadata["file_type"])
		assert.Equal(t, 4, result.Metadata["column_count"])
		assert.NotZero(t, result.Metadata["size_bytes"])
	})

	t.Run("file_path names the file", func(t *testing.T) {
		full := testutil.WriteFile(t, dir, "ledger.csv", ordersCSV)

		result := c.TestConnection(context.Background(), testutil.FileConfig("csv", full, "ledger.csv"))
		require.True(t, result.Success, result.Error)
		assert.Equal(t, "CSV", result.Metadata["file_type"])
	})

	t.Run("missing file", func(t *testing.T) {
		result := c.TestConnection(context.Background(), testutil.FileConfig("csv", dir, "absent.csv"))
		require.False(t, result.Success)
		assert.Equal(t, "not_found", result.Metadata["error_type"])
	})

	t.Run("wrong extension", func(t *testing.T) {
		testutil.WriteFile(t, dir, "orders.json", "{}")

		result := c.TestConnection(context.Background(), testutil.FileConfig("csv", dir, "orders.json"))
		require.False(t, result.Success)
		assert.Equal(t, "validation", result.Metadata["error_type"])
	})
}

func TestExecuteQuery(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQuery(ctx, conn, "READ_CSV:orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount", "paid", "created_at"}, result.Columns)
	require.Equal(t, 3, result.RowCount)

	// Cell values carry inferred types, not raw strings.
	assert.Equal(t, int64(1), result.Rows[0][0])
	assert.Equal(t, 19.99, result.Rows[0][1])
	assert.Equal(t, true, result.Rows[0][2])

	assert.Equal(t, "CSV", result.Metadata["file_type"])
}

func TestExecuteQueryWithLimit(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	for _, limit := range []int{1, 2, 3, 10} {
		result, err := c.ExecuteQueryWithLimit(ctx, conn, "READ_CSV:orders", limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.RowCount, limit)
		assert.Len(t, result.Rows, result.RowCount)
	}
}

func TestExecuteQueryUnknownTable(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	_, err = c.ExecuteQuery(ctx, conn, "READ_CSV:customers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers")
}

func TestGetSchema(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	schema, err := c.GetSchema(ctx, conn)
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	table := schema.Tables[0]
	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, int64(3), table.RowCount)

	types := map[string]core.ColumnType{}
	for _, col := range table.Columns {
		types[col.Name] = col.Type
	}
	assert.Equal(t, core.ColumnTypeInteger, types["id"])
	assert.Equal(t, core.ColumnTypeFloat, types["amount"])
	assert.Equal(t, core.ColumnTypeBoolean, types["paid"])
	assert.Equal(t, core.ColumnTypeTimestamp, types["created_at"])
}

func TestTabSeparatedFiles(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.tsv", "id\tname\n1\talpha\n2\tbeta\n")

	cfg := testutil.FileConfig("csv", dir, "orders.tsv")
	cfg.Additional = map[string]string{"delimiter": "tab"}

	ctx := context.Background()
	conn, err := c.Connect(ctx, cfg)
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQuery(ctx, conn, "READ_CSV:orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
}

func TestValidateQuery(t *testing.T) {
	c := csvfile.New()

	assert.True(t, c.ValidateQuery("READ_CSV:orders").Valid)
	assert.True(t, c.ValidateQuery("read_csv:orders").Valid)
	assert.False(t, c.ValidateQuery("SELECT * FROM orders").Valid)
	assert.False(t, c.ValidateQuery("READ_CSV:").Valid)
	assert.False(t, c.ValidateQuery("").Valid)
}

func TestDisconnectIdempotent(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)

	require.NoError(t, c.Disconnect(ctx, conn))
	require.NoError(t, c.Disconnect(ctx, conn))
}

func TestGetSampleData(t *testing.T) {
	c := csvfile.New()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "orders.csv", ordersCSV)

	ctx := context.Background()
	conn, err := c.Connect(ctx, testutil.FileConfig("csv", dir, "orders.csv"))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.GetSampleData(ctx, conn, "orders", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
}
