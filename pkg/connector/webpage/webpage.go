// Package webpage implements the web page connector. One URL is one
// logical table of extracted sections (title, headings, paragraphs,
// links); queries use the SCRAPE:<section> form where the target is a
// section name or "all".
package webpage

import (
	"context"
	"time"

	"github.com/bifrostdata/bifrost/pkg/clients"
	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/base"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/connector/discovery"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

const (
	verb      = "SCRAPE"
	tableName = "page"
)

// sectionNames are the extractable page sections, in presentation order.
var sectionNames = []string{"title", "headings", "paragraphs", "links"}

// Connector implements core.Connector for web pages.
type Connector struct {
	*base.Connector
	client *clients.Client
}

// New constructs the web page connector.
func New() *Connector {
	c := &Connector{Connector: base.NewConnector("web", Capabilities())}
	c.client = clients.New(clients.DefaultConfig(), c.GetLogger())
	return c
}

// Capabilities returns the static web page capability descriptor.
func Capabilities() *core.Capabilities {
	return &core.Capabilities{
		MaxConnections:      2,
		SupportedDataTypes:  []core.ColumnType{core.ColumnTypeString},
		SupportedOperations: []string{verb},
	}
}

// TestConnection fetches the page once and reports its shape.
func (c *Connector) TestConnection(ctx context.Context, cfg *config.ConnectionConfig) *core.TestResult {
	if err := cfg.RequireFields("base_url"); err != nil {
		return c.FailTest(errors.Wrap(err, errors.ErrorTypeValidation, "invalid web configuration"), 0)
	}

	started := time.Now()
	resp, err := c.client.Do(ctx, "GET", cfg.BaseURL, nil, nil)
	if err != nil {
		return c.FailTest(err, base.ElapsedMs(started))
	}
	connectionMs := base.ElapsedMs(started)
	if resp.StatusCode >= 400 {
		return c.FailTest(errors.Newf(errors.ErrorTypeConnection,
			"%s returned status %d", cfg.BaseURL, resp.StatusCode), connectionMs)
	}

	parseStart := time.Now()
	page, err := parsePage(resp.Body)
	if err != nil {
		return c.FailTest(err, connectionMs)
	}

	return c.PassTest(connectionMs, base.ElapsedMs(parseStart), map[string]any{
		"status_code":     resp.StatusCode,
		"title":           page.Title,
		"heading_count":   len(page.Headings),
		"paragraph_count": len(page.Paragraphs),
		"link_count":      len(page.Links),
	})
}

// Connect fetches and parses the page once; the parsed page is the
// connection handle, so subsequent reads hit the cached extraction.
func (c *Connector) Connect(ctx context.Context, cfg *config.ConnectionConfig) (*core.Connection, error) {
	if err := cfg.RequireFields("base_url"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid web configuration")
	}

	resp, err := c.client.Do(ctx, "GET", cfg.BaseURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Newf(errors.ErrorTypeConnection,
			"%s returned status %d", cfg.BaseURL, resp.StatusCode)
	}

	page, err := parsePage(resp.Body)
	if err != nil {
		return nil, err
	}
	page.URL = cfg.BaseURL

	conn := c.NewConnection(cfg)
	conn.Host = cfg.BaseURL
	conn.Handle = page
	return conn, nil
}

// Disconnect drops the cached page. Calling it twice is harmless.
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

func (c *Connector) GetTableList(_ context.Context, conn *core.Connection) ([]string, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	return []string{tableName}, nil
}

func (c *Connector) GetColumnList(_ context.Context, conn *core.Connection, table string) ([]string, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}
	return []string{"section", "content"}, nil
}

func (c *Connector) GetColumnInfo(_ context.Context, conn *core.Connection, table, column string) (*core.Column, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}

	switch column {
	case "section":
		samples := make([]any, 0, len(sectionNames))
		for _, s := range sectionNames {
			samples = append(samples, s)
		}
		return &core.Column{Name: "section", Type: core.ColumnTypeString, SampleValues: samples}, nil
	case "content":
		return &core.Column{Name: "content", Type: core.ColumnTypeString, Nullable: true}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "column %s not found in %s", column, table)
}

func (c *Connector) GetTableInfo(ctx context.Context, conn *core.Connection, table string) (*core.Table, error) {
	count, err := c.GetTableRowCount(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	return &core.Table{
		Name: table,
		Kind: core.TableKindTable,
		Columns: []core.Column{
			{Name: "section", Type: core.ColumnTypeString},
			{Name: "content", Type: core.ColumnTypeString, Nullable: true},
		},
		RowCount: count,
	}, nil
}

func (c *Connector) GetTableRowCount(_ context.Context, conn *core.Connection, table string) (int64, error) {
	if err := c.checkTable(conn, table); err != nil {
		return 0, err
	}
	page, err := c.page(conn)
	if err != nil {
		return 0, err
	}
	return int64(len(page.rows("all"))), nil
}

func (c *Connector) GetDatabaseInfo(_ context.Context, conn *core.Connection) (map[string]any, error) {
	page, err := c.page(conn)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":       c.Type(),
		"url":        page.URL,
		"title":      page.Title,
		"paragraphs": len(page.Paragraphs),
		"links":      len(page.Links),
	}, nil
}

// ExecuteQuery extracts the requested section from the cached page.
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

	page, err := c.page(conn)
	if err != nil {
		return nil, err
	}

	cmd, _ := core.ParseCommand(query)
	started := time.Now()

	rows := page.rows(cmd.Target)
	result := &core.QueryResult{
		Columns: []string{"section", "content"},
		Query:   query,
		Metadata: map[string]any{
			"url":   page.URL,
			"title": page.Title,
		},
	}
	for _, row := range rows {
		if limit >= 0 && len(result.Rows) >= limit {
			break
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)

	c.ObserveQuery(started, result, nil)
	return result, nil
}

func (c *Connector) GetSampleData(ctx context.Context, conn *core.Connection, table string, limit int) (*core.QueryResult, error) {
	if err := c.checkTable(conn, table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return c.ExecuteQueryWithLimit(ctx, conn, verb+":all", limit)
}

// ValidateQuery accepts SCRAPE:<section> commands.
func (c *Connector) ValidateQuery(query string) *core.ValidationResult {
	return core.ValidateCommand(query, verb)
}

func (c *Connector) GetQueryPlan(_ context.Context, conn *core.Connection, query string) (string, error) {
	if v := c.ValidateQuery(query); !v.Valid {
		return "", errors.New(errors.ErrorTypeValidation, v.Error)
	}

	cmd, _ := core.ParseCommand(query)
	rows := int64(-1)
	if page, err := c.page(conn); err == nil {
		rows = int64(len(page.rows(cmd.Target)))
	}
	return c.SynthesizePlan(verb, cmd.Target, rows), nil
}

func (c *Connector) page(conn *core.Connection) (*Page, error) {
	if err := c.CheckConnection(conn); err != nil {
		return nil, err
	}
	page, ok := conn.Handle.(*Page)
	if !ok || page == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "connection is not open")
	}
	return page, nil
}

func (c *Connector) checkTable(conn *core.Connection, table string) error {
	if err := c.CheckConnection(conn); err != nil {
		return err
	}
	if table != tableName {
		return errors.Newf(errors.ErrorTypeNotFound, "unknown table %q", table)
	}
	return nil
}
