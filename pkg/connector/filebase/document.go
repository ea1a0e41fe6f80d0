package filebase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/connector/tabular"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

// UnitReader extracts a document's ordered text units: pages for PDF,
// paragraphs for Word, slides for PowerPoint, sections for plain text.
type UnitReader func(path string) ([]string, error)

// DocConnector implements the full connector contract for document
// formats. A document is one table of (unit index, content) rows; the
// extraction verb selects all units, one unit by number, or units
// matching a case-insensitive substring.
type DocConnector struct {
	*Connector

	verb     string
	unitName string
	read     UnitReader
}

// NewDocConnector builds a document connector around a unit reader.
// unitName labels the index column ("page", "slide", "section").
func NewDocConnector(base *Connector, verb, unitName string, read UnitReader) *DocConnector {
	return &DocConnector{
		Connector: base,
		verb:      verb,
		unitName:  unitName,
		read:      read,
	}
}

// TestConnection stats the file and probes the unit count.
func (d *DocConnector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	return d.TestFile(ctx, cfg, func(path string) (map[string]any, error) {
		units, err := d.read(path)
		if err != nil {
			return nil, err
		}
		return map[string]any{d.unitName + "_count": len(units)}, nil
	})
}

func (d *DocConnector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := d.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, d, conn)
}

// GetTableList returns the one logical table, named after the file.
func (d *DocConnector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	if err := d.CheckConnection(conn); err != nil {
		return nil, err
	}
	return []string{tabular.TableName(conn.Database)}, nil
}

func (d *DocConnector) GetColumnList(_ context.Context, conn *core.Connection, table string) ([]string, error) {
	if err := d.checkTable(conn, table); err != nil {
		return nil, err
	}
	return []string{d.unitName, "content"}, nil
}

func (d *DocConnector) GetColumnInfo(_ context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	if err := d.checkTable(conn, table); err != nil {
		return nil, err
	}

	switch column {
	case d.unitName:
		return &core.Column{Name: d.unitName, Type: core.ColumnTypeInteger, Nullable: false}, nil
	case "content":
		return &core.Column{Name: "content", Type: core.ColumnTypeString, Nullable: true}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "column %s not found in %s", column, table)
}

func (d *DocConnector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	count, err := d.GetTableRowCount(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	return &core.Table{
		Name: table,
		Kind: core.TableKindTable,
		Columns: []core.Column{
			{Name: d.unitName, Type: core.ColumnTypeInteger},
			{Name: "content", Type: core.ColumnTypeString, Nullable: true},
		},
		RowCount: count,
	}, nil
}

func (d *DocConnector) GetTableRowCount(_ context.Context, conn *core.Connection, table string) (int64, error) {
	if err := d.checkTable(conn, table); err != nil {
		return 0, err
	}
	units, err := d.readUnits(conn)
	if err != nil {
		return 0, err
	}
	return int64(len(units)), nil
}

func (d *DocConnector) ExecuteQuery(ctx context.Context, conn *core.Connection, query string, _ ...any) (*core.QueryResult, error) {
	return d.execute(ctx, conn, query, -1)
}

func (d *DocConnector) ExecuteQueryWithLimit(ctx context.Context, conn *core.Connection, query string, limit int, _ ...any) (*core.QueryResult, error) {
	result, err := d.execute(ctx, conn, query, limit)
	if err != nil {
		return nil, err
	}
	result.Truncate(limit)
	return result, nil
}

func (d *DocConnector) execute(_ context.Context, conn *core.Connection, query string, limit int) (*core.QueryResult, error) {
	if v := d.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	cmd, _ := core.ParseCommand(query)
	started := time.Now()

	units, err := d.readUnits(conn)
	if err != nil {
		d.ObserveQuery(started, nil, err)
		return nil, err
	}

	selected, err := selectUnits(units, cmd.Target)
	if err != nil {
		d.ObserveQuery(started, nil, err)
		return nil, err
	}

	result := &core.QueryResult{
		Columns: []string{d.unitName, "content"},
		Query:   query,
		Metadata: map[string]any{
			"file_type":          d.FileType(),
			d.unitName + "_count": len(units),
		},
	}
	for _, u := range selected {
		if limit >= 0 && len(result.Rows) >= limit {
			break
		}
		result.Rows = append(result.Rows, []any{int64(u.index), u.content})
	}
	result.RowCount = len(result.Rows)

	d.ObserveQuery(started, result, nil)
	return result, nil
}

func (d *DocConnector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if err := d.checkTable(conn, table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return d.ExecuteQueryWithLimit(ctx, conn, d.verb+":all", limit)
}

// ValidateQuery accepts <verb>:all, <verb>:<n> and <verb>:<text>.
func (d *DocConnector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, d.verb)
}

func (d *DocConnector) GetQueryPlan(_ context.Context, conn *core.Connection, query string) (string, error) {
	if v := d.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	units := int64(-1)
	if all, err := d.readUnits(conn); err == nil {
		units = int64(len(all))
	}
	return d.SynthesizePlan(d.verb, cmd.Target, units), nil
}

func (d *DocConnector) readUnits(conn *core.Connection) ([]string, error) {
	path, err := d.Path(conn)
	if err != nil {
		return nil, err
	}
	units, err := d.read(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to read %s", path))
	}
	return units, nil
}

func (d *DocConnector) checkTable(conn *core.Connection, table string) error {
	if err := d.CheckConnection(conn); err != nil {
		return err
	}
	if table != tabular.TableName(conn.Database) && table != conn.Database {
		return errors.Newf(errors.ErrorTypeNotFound, "unknown table %q", table)
	}
	return nil
}

type unit struct {
	index   int // 1-based
	content string
}

// selectUnits resolves an extraction target: "all" keeps everything, a
// number picks that unit, anything else is a case-insensitive content
// match.
func selectUnits(units []string, target string) ([]unit, error) {
	all := make([]unit, 0, len(units))
	for i, content := range units {
		all = append(all, unit{index: i + 1, content: content})
	}

	if strings.EqualFold(target, "all") || target == "*" {
		return all, nil
	}

	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(units) {
			return nil, errors.Newf(errors.ErrorTypeNotFound,
				"position %d out of range 1..%d", n, len(units))
		}
		return all[n-1 : n], nil
	}

	var matched []unit
	needle := strings.ToLower(target)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.content), needle) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}
