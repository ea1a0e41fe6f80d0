// Package gsheets implements the Google Sheets connector over the
// Sheets API. Every sheet of the configured spreadsheet is a table;
// queries use the READ_SHEET:<sheet>[:<range>] form.
package gsheets

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/connector/tabular"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const verb = "READ_SHEET"

// Connector implements core.Connector for Google Sheets.
type Connector struct {
	*base.Connector
}

// New constructs the Google Sheets connector.
func New() *Connector {
	return &Connector{Connector: base.NewConnector("google_sheets", Capabilities())}
}

// Capabilities returns the static Google Sheets capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections: 2,
		SupportedDataTypes: []core.ColumnType{
			core.ColumnTypeString, core.ColumnTypeInteger, core.ColumnTypeFloat,
			core.ColumnTypeBoolean, core.ColumnTypeTimestamp, core.ColumnTypeDate,
		},
		SupportedOperations: []string{verb},
	}
}

type handle struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
}

// TestConnection builds an API client from the token and fetches the
// spreadsheet's metadata.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	if err := cfg.RequireFields("access_token", "spreadsheet_id"); err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeValidation, "invalid Sheets configuration"), 0)
	}

	connStart := time.Now()
	svc, err := newService(ctx, cfg.AccessToken)
	if err != nil {
		return c.FailTest(err, base.ElapsedMs(connStart))
	}
	connectionMs := base.ElapsedMs(connStart)

	queryStart := time.Now()
	doc, err := svc.Spreadsheets.Get(cfg.Get("spreadsheet_id", "")).Context(ctx).Do()
	if err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeConnection, "cannot fetch spreadsheet"), connectionMs)
	}

	return c.PassTest(connectionMs, base.ElapsedMs(queryStart), map[string]any{
		"title":       doc.Properties.Title,
		"sheet_count": len(doc.Sheets),
	})
}

// Connect builds the API client and verifies the spreadsheet exists.
func (c *Connector) Connect(ctx context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	if err := cfg.RequireFields("access_token", "spreadsheet_id"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid Sheets configuration")
	}

	svc, err := newService(ctx, cfg.AccessToken)
	if err != nil {
		return nil, err
	}

	spreadsheetID := cfg.Get("spreadsheet_id", "")
	doc, err := svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot fetch spreadsheet %s", spreadsheetID))
	}

	conn := c.NewConnection(cfg)
	conn.Database = doc.Properties.Title
	conn.Handle = &handle{svc: svc, spreadsheetID: spreadsheetID, title: doc.Properties.Title}
	return conn, nil
}

// Disconnect drops the API client. Calling it twice is harmless.
func (c *Connector) Disconnect(_ context.Context, conn *core.Connection) error {
	if err := c.CheckConnection(conn); err != nil {
		return err
	}
	c.MarkDisconnected(conn)
	return nil
}

func (c *Connector) GetSchema(ctx context.Context, conn *core.Connection) (*core.Schema, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return discovery.Discover(ctx, c, conn)
}

// GetTableList returns the spreadsheet's sheet titles in document order.
func (c *Connector) GetTableList(ctx context.Context, conn *core.Connection) ([]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	doc, err := h.svc.Spreadsheets.Get(h.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to list sheets")
	}

	titles := make([]string, 0, len(doc.Sheets))
	for _, s := range doc.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

func (c *Connector) GetColumnList(ctx context.Context, conn *core.Connection, table string) ([]string, error) {
	header, _, err := c.readSheet(ctx, conn, table, "", 0)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Connector) GetColumnInfo(ctx context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	header, rows, err := c.readSheet(ctx, conn, table, "", -1)
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

func (c *Connector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	header, rows, err := c.readSheet(ctx, conn, table, "", -1)
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

func (c *Connector) GetTableRowCount(ctx context.Context, conn *core.Connection, table string) (int64, error) {
	_, rows, err := c.readSheet(ctx, conn, table, "", -1)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (c *Connector) GetDatabaseInfo(ctx context.Context, conn *core.Connection) (map[string]any, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, err
	}

	doc, err := h.svc.Spreadsheets.Get(h.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to fetch spreadsheet info")
	}

	return map[string]any{
		"type":           c.Type(),
		"spreadsheet_id": h.spreadsheetID,
		"title":          doc.Properties.Title,
		"sheet_count":    len(doc.Sheets),
	}, nil
}

// ExecuteQuery runs a READ_SHEET command; the optional argument narrows
// the read to an A1 range.
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

func (c *Connector) execute(ctx context.Context, conn *core.Connection, query string, limit int) (*core.QueryResult, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return nil, errors.New(errors.ErrorTypeValidation, v.Error).WithDetail("query", query)
	}

	cmd, _ := core.ParseCommand(query)
	started := time.Now()
	header, rows, err := c.readSheet(ctx, conn, cmd.Target, cmd.Arg, limit)
	if err != nil {
		c.ObserveQuery(started, nil, err)
		return nil, err
	}

	result := tabular.BuildResult(query, header, rows)
	result.Metadata = map[string]any{"sheet": cmd.Target}
	if cmd.Arg != "" {
		result.Metadata["range"] = cmd.Arg
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

// ValidateQuery accepts READ_SHEET:<sheet>[:<range>] commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verb)
}

func (c *Connector) GetQueryPlan(ctx context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	rows := int64(-1)
	if count, err := c.GetTableRowCount(ctx, conn, cmd.Target); err == nil {
		rows = count
	}
	return c.SynthesizePlan(verb, cmd.Target, rows), nil
}

func (c *Connector) handle(conn *core.Connection) (*handle, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	h, ok := conn.Handle.(*handle)
	if !ok || h == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "connection is not open")
	}
	return h, nil
}

// readSheet fetches one sheet's values, optionally narrowed to an A1
// range. The first row is the header. limit < 0 reads everything;
// limit 0 reads only the header.
func (c *Connector) readSheet(ctx context.Context, conn *core.Connection, sheet, a1Range string, limit int) ([]string, [][]string, error) {
	h, err := c.handle(conn)
	if err != nil {
		return nil, nil, err
	}

	readRange := sheet
	if a1Range != "" {
		readRange = fmt.Sprintf("%s!%s", sheet, a1Range)
	}

	values, err := h.svc.Spreadsheets.Values.Get(h.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeQuery,
			fmt.Sprintf("failed to read range %s", readRange))
	}
	if len(values.Values) == 0 {
		return nil, nil, errors.Newf(errors.ErrorTypeQuery, "range %s is empty", readRange)
	}

	header := cellStrings(values.Values[0])
	var rows [][]string
	for _, raw := range values.Values[1:] {
		if limit >= 0 && len(rows) >= limit {
			break
		}
		rows = append(rows, cellStrings(raw))
	}

	return header, rows, nil
}

func cellStrings(cells []any) []string {
	out := make([]string, 0, len(cells))
	for _, cell := range cells {
		out = append(out, fmt.Sprint(cell))
	}
	return out
}

func newService(ctx context.Context, accessToken string) (*sheets.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := sheets.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to build Sheets client")
	}
	return svc, nil
}
