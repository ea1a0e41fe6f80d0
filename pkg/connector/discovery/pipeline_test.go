package discovery_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

// fakeSource drives the pipeline without a real backend. Failures are
// injected per table or per table.column key.
type fakeSource struct {
	tables      []string
	columns     map[string][]string
	rowCounts   map[string]int64
	failColumns map[string]error // table -> GetColumnList error
	failColumn  map[string]error // table.column -> GetColumnInfo error
	failCounts  map[string]error // table -> GetTableRowCount error
	failTables  error
	maxConns    int
}

func (f *fakeSource) Type() string { return "fake" }

func (f *fakeSource) Capabilities() *core.Capabilities {
	return &core.Capabilities{MaxConnections: f.maxConns}
}

func (f *fakeSource) GetTableList(ctx context.Context, conn *core.Connection) ([]string, error) {
	return f.tables, f.failTables
}

func (f *fakeSource) GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error) {
	if err := f.failColumns[table]; err != nil {
		return nil, err
	}
	return f.columns[table], nil
}

func (f *fakeSource) GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	if err := f.failColumn[table+"."+column]; err != nil {
		return nil, err
	}
	return &core.Column{Name: column, Type: core.ColumnTypeInteger, NativeType: "int"}, nil
}

func (f *fakeSource) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	if err := f.failCounts[table]; err != nil {
		return 0, err
	}
	return f.rowCounts[table], nil
}

func (f *fakeSource) GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error) {
	return map[string]any{"version": "fake 1.0"}, nil
}

func newFake(tables ...string) *fakeSource {
	f := &fakeSource{
		tables:      tables,
		columns:     make(map[string][]string),
		rowCounts:   make(map[string]int64),
		failColumns: make(map[string]error),
		failColumn:  make(map[string]error),
		failCounts:  make(map[string]error),
		maxConns:    1,
	}
	for _, t := range tables {
		f.columns[t] = []string{"id", "name"}
		f.rowCounts[t] = 7
	}
	return f
}

func testConn() *core.Connection {
	return &core.Connection{Type: "fake", Database: "shop"}
}

func TestDiscover(t *testing.T) {
	f := newFake("orders", "users")

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "orders", schema.Tables[0].Name)
	assert.Equal(t, "users", schema.Tables[1].Name)
	assert.Equal(t, int64(7), schema.Tables[0].RowCount)
	assert.Len(t, schema.Tables[0].Columns, 2)
	assert.Empty(t, schema.Warnings)

	assert.Equal(t, "shop", schema.Metadata.SourceName)
	assert.Equal(t, "fake 1.0", schema.Metadata.SourceVersion)
	assert.Equal(t, 2, schema.Metadata.TotalTables)
	assert.Equal(t, 4, schema.Metadata.TotalColumns)
}

func TestDiscoverTableListFailureIsTerminal(t *testing.T) {
	f := newFake()
	f.failTables = errors.New(errors.ErrorTypeConnection, "backend down")

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.Error(t, err)
	assert.Nil(t, schema)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestDiscoverColumnListFailureDropsTable(t *testing.T) {
	f := newFake("orders", "users")
	f.failColumns["orders"] = fmt.Errorf("permission denied")

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "users", schema.Tables[0].Name)

	require.Len(t, schema.Warnings, 1)
	assert.Equal(t, core.WarningScopeTable, schema.Warnings[0].Scope)
	assert.Equal(t, "orders", schema.Warnings[0].Table)
}

func TestDiscoverColumnInfoFailureDegrades(t *testing.T) {
	f := newFake("orders")
	f.failColumn["orders.name"] = fmt.Errorf("type lookup failed")

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	require.Len(t, schema.Tables[0].Columns, 2, "the failed column survives with name-only detail")

	degraded := schema.Tables[0].Columns[1]
	assert.Equal(t, "name", degraded.Name)
	assert.Equal(t, core.ColumnTypeString, degraded.Type)
	assert.True(t, degraded.Nullable)

	require.Len(t, schema.Warnings, 1)
	assert.Equal(t, core.WarningScopeColumn, schema.Warnings[0].Scope)
	assert.Equal(t, "name", schema.Warnings[0].Column)
}

func TestDiscoverRowCountFailureDegrades(t *testing.T) {
	f := newFake("orders")
	f.failCounts["orders"] = fmt.Errorf("count timed out")

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.NoError(t, err)

	assert.Equal(t, int64(-1), schema.Tables[0].RowCount)
	require.Len(t, schema.Warnings, 1)
	assert.Equal(t, core.WarningScopeRowCount, schema.Warnings[0].Scope)
}

func TestDiscoverPreservesOrderUnderParallelism(t *testing.T) {
	names := make([]string, 40)
	for i := range names {
		names[i] = fmt.Sprintf("table_%02d", i)
	}

	f := newFake(names...)
	f.maxConns = 8

	schema, err := discovery.Discover(context.Background(), f, testConn())
	require.NoError(t, err)

	require.Len(t, schema.Tables, len(names))
	for i, table := range schema.Tables {
		assert.Equal(t, names[i], table.Name)
	}
}

func TestDiscoverCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFake("orders")
	_, err := discovery.Discover(ctx, f, testConn())
	require.Error(t, err)
}
