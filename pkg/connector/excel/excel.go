// Package excel implements the Excel connector over excelize. Every
// sheet is a table whose header is the first row; queries use the
// READ_SHEET:<sheet> form.
package excel

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
	"github.com/bifrostdata/bifrost/pkg/connector/tabular"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const verb = "READ_SHEET"

// Connector implements core.Connector for Excel workbooks.
type Connector struct {
	*filebase.Connector
}

// New constructs the Excel connector.
func New() *Connector {
	return &Connector{
		Connector: filebase.NewConnector("excel", "Excel", Capabilities(), ".xlsx", ".xlsm"),
	}
}

// Capabilities returns the static Excel capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections: 1,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeBoolean, core.ColumnTypeTimestamp, core.ColumnTypeDate,
		},
		SupportedOperations: []string{verb},
	}
}

// TestConnection stats the workbook and probes its sheet list.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	return c.TestFile(ctx, cfg, func(path string) (map[string]any, error) {
		wb, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer wb.Close()
		sheets := wb.GetSheetList()
		return map[string]any{"sheet_count": len(sheets)}, nil
	})
}

func (c *Connector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, c, conn)
}

// GetTableList returns the workbook's sheet names in workbook order.
func (c *Connector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	wb, err := c.openWorkbook(conn)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.GetSheetList(), nil
}

func (c *Connector) GetColumnList(_ context.Context, conn *core.Connection, table string) ([]string, error) {
	header, _, err := c.readSheet(conn, table, 0)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Connector) GetColumnInfo(_ context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	header, rows, err := c.readSheet(conn, table, -1)
	if err != nil {
		return nil, err
	}

	for _, col := range tabular.BuildColumns(header, rows) {
		if col.Name == column {
			out := col
			return &out, nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "column %s not found in sheet %s", column, table)
}

func (c *Connector) GetTableInfo(_ context.Context, conn *core.Connection, table string) (*core.Table, error) {
	header, rows, err := c.readSheet(conn, table, -1)
	if err != nil {
		return nil, err
	}

	return &core.Table{
		Name:     table,
		Kind:     core.TableKindTable,
		Columns:  tabular.BuildColumns(header, rows),
		RowCount: int64(len(rows)),
	}, nil
}

func (c *Connector) GetTableRowCount(_ context.Context, conn *core.Connection, table string) (int64, error) {
	_, rows, err := c.readSheet(conn, table, -1)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (c *Connector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	return c.execute(ctx, conn, query, -1)
}

func (c *Connector) ExecuteQueryWithLimit(ctx context.Context, conn *core.Connection, query string, limit int, _ ...any) (*core.QueryResult, error) {
	result, err := c.execute(ctx, conn, query, limit)
	if err != nil {
		return nil, err
	}
	result.Truncate(limit)
	return result, nil
}

func (c *Connector) execute(_ context.Context, conn *core.Connection, query string, limit int) (*core.QueryResult, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	cmd, _ := core.ParseCommand(query)
	started := time.Now()
	header, rows, err := c.readSheet(conn, cmd.Target, limit)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	result := tabular.BuildResult(query, header, rows)
	result.Metadata = map[string]any{
		"file_type": c.FileType(),
		"sheet":     cmd.Target,
	}
	c.ObserveQuery(started, result, nil)
	return result, nil
}

func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, fmt.Sprintf("%s:%s", verb, table), limit)
}

// ValidateQuery accepts READ_SHEET:<sheet> commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verb)
}

func (c *Connector) GetQueryPlan(_ context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	rows := int64(-1)
	if count, err := c.GetTableRowCount(context.Background(), conn, cmd.Target); err == nil {
		rows = count
	}
	return c.SynthesizePlan(verb, cmd.Target, rows), nil
}

func (c *Connector) openWorkbook(conn *core.Connection) (*excelize.File, error) {
	path, err := c.Path(conn)
	if err != nil {
		return nil, err
	}
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to open workbook %s", path))
	}
	return wb, nil
}

// readSheet reads one sheet. limit < 0 reads all data rows; limit 0
// reads only the header.
func (c *Connector) readSheet(conn *core.Connection, sheet string, limit int) ([]string, [][]string, error) {
	wb, err := c.openWorkbook(conn)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()

	idx, err := wb.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, nil, errors.Newf(errors.ErrorTypeNotFound, "sheet %q not found", sheet)
	}

	all, err := wb.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to read sheet %s", sheet))
	}
	if len(all) == 0 {
		return nil, nil, errors.Newf(errors.ErrorTypeFile, "sheet %q is empty", sheet)
	}

	header := all[0]
	rows := all[1:]
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return header, rows, nil
}
