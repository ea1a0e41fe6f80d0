// Package csvfile implements the CSV connector. A CSV file is exposed
// as a single table named after the file, with column types inferred
// from a bounded row sample. Queries use the READ_CSV:<table> form.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/connector/filebase"
	"github.com/bifrostdata/bifrost/pkg/connector/tabular"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const verb = "READ_CSV"

// Connector implements core.Connector for CSV files.
type Connector struct {
	*filebase.Connector
}

// New constructs the CSV connector.
func New() *Connector {
	return &Connector{
		Connector: filebase.NewConnector("csv", "CSV", Capabilities(), ".csv", ".tsv"),
	}
}

// Capabilities returns the static CSV capability descriptor.
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

// TestConnection stats the file and probes the header row.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	delimiter := delimiterFrom(cfg.Get("delimiter", ","))
	return c.TestFile(ctx, cfg, func(path string) (map[string]any, error) {
		header, _, err := read(path, delimiter, 0)
		if err != nil {
			return nil, err
		}
		return map[string]any{"column_count": len(header)}, nil
	})
}

// GetSchema runs the shared discovery pipeline over the single table.
func (c *Connector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, c, conn)
}

// GetTableList returns the one logical table, named after the file.
func (c *Connector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return []string{tabular.TableName(conn.Database)}, nil
}

func (c *Connector) GetColumnList(_ context.Context, conn *core.Connection, table string) ([]string, error) {
	header, _, err := c.readTable(conn, table, 0)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Connector) GetColumnInfo(_ context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	header, rows, err := c.readTable(conn, table, -1)
	if err != nil {
		return nil, err
	}

	for _, col := range tabular.BuildColumns(header, rows) {
		if col.Name == column {
			out := col
			return &out, nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "column %s not found in %s", column, table)
}

func (c *Connector) GetTableInfo(_ context.Context, conn *core.Connection, table string) (*core.Table, error) {
	header, rows, err := c.readTable(conn, table, -1)
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
	_, rows, err := c.readTable(conn, table, -1)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// ExecuteQuery runs a READ_CSV command and materializes the whole file.
func (c *Connector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	return c.execute(ctx, conn, query, -1)
}

// ExecuteQueryWithLimit stops reading after limit data rows.
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
	header, rows, err := c.readTable(conn, cmd.Target, limit)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	result := tabular.BuildResult(query, header, rows)
	result.Metadata = map[string]any{"file_type": c.FileType()}
	c.ObserveQuery(started, result, nil)
	return result, nil
}

// GetSampleData reads the first rows of the table.
func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, fmt.Sprintf("%s:%s", verb, table), limit)
}

// ValidateQuery accepts READ_CSV:<table> commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verb)
}

// GetQueryPlan synthesizes a plan; file reads have no real one.
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

// readTable validates the target against the file's table name and
// reads it. limit < 0 reads everything; limit 0 reads only the header.
func (c *Connector) readTable(conn *core.Connection, table string, limit int) ([]string, [][]string, error) {
	path, err := c.Path(conn)
	if err != nil {
		return nil, nil, err
	}

	if table != tabular.TableName(conn.Database) && table != conn.Database {
		return nil, nil, errors.Newf(errors.ErrorTypeNotFound, "unknown table %q", table)
	}

	delimiter := delimiterFrom(conn.Setting("delimiter", ","))
	header, rows, err := read(path, delimiter, limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to read %s", path))
	}
	return header, rows, nil
}

func read(path string, delimiter rune, limit int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for limit < 0 || len(rows) < limit {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

func delimiterFrom(s string) rune {
	switch s {
	case "\\t", "tab":
		return '\t'
	case ";":
		return ';'
	case "|":
		return '|'
	default:
		if len(s) > 0 {
			return rune(s[0])
		}
		return ','
	}
}
